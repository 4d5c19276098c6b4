package http

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"medcharges/ml"
	"medcharges/money"
	"medcharges/monitoring"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

// metricModelStale is 1 once the artifact behind the loaded model has changed.
const metricModelStale = "model_stale"

const reasonRequired = "is required"

// ModelInfo describes the artifact behind the estimator.
type ModelInfo struct {
	Kind     string    `json:"kind"`
	Path     string    `json:"path"`
	Features []string  `json:"features"`
	LoadedAt time.Time `json:"loaded_at"`
	Stale    bool      `json:"stale"`
}

type Handlers struct {
	estimator *ml.Estimator
	info      ModelInfo
	stale     atomic.Bool
	formatter *money.Formatter
	metrics   *monitoring.MetricsCollector
	logger    *zap.Logger
}

func NewHandlers(estimator *ml.Estimator, info ModelInfo, formatter *money.Formatter, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Handlers {
	if formatter == nil {
		formatter = money.NewFormatter("en", money.DefaultCurrency)
	}
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if info.Features == nil {
		info.Features = ml.FeatureNames()
	}
	h := &Handlers{
		estimator: estimator,
		info:      info,
		formatter: formatter,
		metrics:   metrics,
		logger:    logger,
	}
	h.metrics.SetGauge(metricModelStale, 0, h.modelLabels())
	return h
}

func (h *Handlers) modelLabels() map[string]string {
	return map[string]string{"kind": h.info.Kind, "path": h.info.Path}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /estimate", h.handleFormEstimate)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	mux.HandleFunc("GET /api/health", handleHealth)
}

// MarkStale flags the loaded model as out of date with its artifact file.
func (h *Handlers) MarkStale() {
	h.stale.Store(true)
	h.metrics.SetGauge(metricModelStale, 1, h.modelLabels())
}

type predictResponse struct {
	Charges   float64          `json:"charges"`
	Formatted string           `json:"formatted"`
	Features  ml.FeatureVector `json:"features"`
}

// predictRequest is the JSON body of /api/predict. Numeric fields are pointers
// so that an omitted field is told apart from a zero.
type predictRequest struct {
	Age      *int      `json:"age"`
	Sex      ml.Sex    `json:"sex"`
	BMI      *float64  `json:"bmi"`
	Children *int      `json:"children"`
	Smoker   ml.Smoker `json:"smoker"`
	Region   ml.Region `json:"region"`
}

// profile converts the request, reporting every omitted field. Enum fields
// left out decode to their invalid zero value and are reported by
// PatientProfile.Validate.
func (req predictRequest) profile() (ml.PatientProfile, []ml.FieldError) {
	profile := ml.PatientProfile{Sex: req.Sex, Smoker: req.Smoker, Region: req.Region}
	var errs []ml.FieldError
	if req.Age == nil {
		errs = append(errs, ml.FieldError{Field: "age", Reason: reasonRequired})
	} else {
		profile.Age = *req.Age
	}
	if req.BMI == nil {
		errs = append(errs, ml.FieldError{Field: "bmi", Reason: reasonRequired})
	} else {
		profile.BMI = *req.BMI
	}
	if req.Children == nil {
		errs = append(errs, ml.FieldError{Field: "children", Reason: reasonRequired})
	} else {
		profile.Children = *req.Children
	}
	return profile, errs
}

type errorResponse struct {
	Error  string          `json:"error"`
	Fields []ml.FieldError `json:"fields,omitempty"`
}

type formPage struct {
	Profile ml.PatientProfile
	Regions []ml.Region
	Result  string
	Error   string
	Fields  []ml.FieldError
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, http.StatusOK, formPage{Profile: ml.DefaultProfile()})
}

func (h *Handlers) handleFormEstimate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderForm(w, http.StatusBadRequest, formPage{Profile: ml.DefaultProfile(), Error: "could not read form"})
		return
	}

	profile, fieldErrs := profileFromForm(r)
	if len(fieldErrs) > 0 {
		h.metrics.IncrCounter(ml.MetricInvalidProfiles, 1, nil)
		h.renderForm(w, http.StatusBadRequest, formPage{Profile: profile, Error: "please correct the highlighted fields", Fields: fieldErrs})
		return
	}

	estimate, err := h.estimator.Estimate(r.Context(), profile)
	if err != nil {
		status, resp := h.errorStatus(r, err)
		h.renderForm(w, status, formPage{Profile: profile, Error: resp.Error, Fields: resp.Fields})
		return
	}
	h.renderForm(w, http.StatusOK, formPage{Profile: profile, Result: h.formatter.Format(estimate.Charges)})
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if _, err := decoder.Token(); err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: unexpected data after JSON object"})
		return
	}

	profile, fieldErrs := req.profile()
	if len(fieldErrs) > 0 {
		h.metrics.IncrCounter(ml.MetricInvalidProfiles, 1, nil)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ml.ErrInvalidProfile.Error(), Fields: fieldErrs})
		return
	}

	estimate, err := h.estimator.Estimate(r.Context(), profile)
	if err != nil {
		status, resp := h.errorStatus(r, err)
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Charges:   estimate.Charges,
		Formatted: h.formatter.Format(estimate.Charges),
		Features:  estimate.Features,
	})
}

func (h *Handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	info := h.info
	info.Stale = h.stale.Load()
	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "prometheus" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte(h.metrics.ExportPrometheus()))
		return
	}
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func (h *Handlers) errorStatus(r *http.Request, err error) (int, errorResponse) {
	var verr *ml.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: ml.ErrInvalidProfile.Error(), Fields: verr.Fields}
	case errors.Is(err, ml.ErrInvalidProfile):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, ml.ErrInference):
		h.logger.Error("estimate failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		return http.StatusInternalServerError, errorResponse{Error: "prediction failed"}
	default:
		h.logger.Warn("estimate aborted", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		return http.StatusServiceUnavailable, errorResponse{Error: "request aborted"}
	}
}

func (h *Handlers) renderForm(w http.ResponseWriter, status int, page formPage) {
	page.Regions = ml.Regions()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, page); err != nil {
		h.logger.Error("render form", zap.Error(err))
	}
}

// profileFromForm reads the six form fields. Every field must be present;
// one left empty is reported as required rather than defaulted.
func profileFromForm(r *http.Request) (ml.PatientProfile, []ml.FieldError) {
	var profile ml.PatientProfile
	var errs []ml.FieldError

	field := func(name string, parse func(string) error) {
		v := strings.TrimSpace(r.FormValue(name))
		if v == "" {
			errs = append(errs, ml.FieldError{Field: name, Reason: reasonRequired})
			return
		}
		if err := parse(v); err != nil {
			errs = append(errs, ml.FieldError{Field: name, Reason: err.Error()})
		}
	}

	field("age", func(v string) error {
		age, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("must be a whole number")
		}
		profile.Age = age
		return nil
	})
	field("sex", func(v string) (err error) {
		profile.Sex, err = ml.ParseSex(v)
		return err
	})
	field("bmi", func(v string) error {
		bmi, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New("must be a number")
		}
		profile.BMI = bmi
		return nil
	})
	field("children", func(v string) error {
		children, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("must be a whole number")
		}
		profile.Children = children
		return nil
	})
	field("smoker", func(v string) (err error) {
		profile.Smoker, err = ml.ParseSmoker(v)
		return err
	})
	field("region", func(v string) (err error) {
		profile.Region, err = ml.ParseRegion(v)
		return err
	})
	return profile, errs
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
