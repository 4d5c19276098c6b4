package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"medcharges/ml"
	"medcharges/monitoring"
)

type fakeModel struct {
	value float64
	err   error
	rows  [][]float64
}

func (f *fakeModel) Predict(rows [][]float64) ([]float64, error) {
	f.rows = rows
	if f.err != nil {
		return nil, f.err
	}
	return []float64{f.value}, nil
}

func newTestMux(model ml.Regressor) (*http.ServeMux, *monitoring.MetricsCollector) {
	metrics := monitoring.NewMetricsCollector()
	estimator := ml.NewEstimator(model, nil, ml.WithRecorder(metrics))
	handlers := NewHandlers(estimator, ModelInfo{Kind: ml.KindLinearRegression, Path: "models/reg.json"}, nil, metrics, nil)
	mux := http.NewServeMux()
	handlers.Register(mux)
	return mux, metrics
}

func TestHandlePredict(t *testing.T) {
	model := &fakeModel{value: 12345.678}
	mux, metrics := newTestMux(model)

	body := `{"age":40,"sex":"Female","bmi":30.0,"children":2,"smoker":"Yes","region":"northeast"}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var payload predictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.Charges != 12345.678 {
		t.Fatalf("unexpected charges: %v", payload.Charges)
	}
	if payload.Formatted != "12,345.68 USD" {
		t.Fatalf("unexpected formatted value: %q", payload.Formatted)
	}
	want := ml.FeatureVector{40, 0, 30, 2, 1, 0.2423}
	if payload.Features != want {
		t.Fatalf("unexpected features: %v", payload.Features)
	}
	if len(model.rows) != 1 || len(model.rows[0]) != ml.FeatureCount {
		t.Fatalf("model should receive a single-row batch, got %v", model.rows)
	}
	if metrics.Counter(ml.MetricPredictions) != 1 {
		t.Fatalf("expected one prediction recorded")
	}
}

func TestHandlePredictRejectsOutOfRange(t *testing.T) {
	mux, metrics := newTestMux(&fakeModel{value: 1})

	body := `{"age":17,"sex":"Male","bmi":50.5,"children":1,"smoker":"No","region":"southwest"}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Fields) != 2 {
		t.Fatalf("expected age and bmi errors, got %+v", payload.Fields)
	}
	if metrics.Counter(ml.MetricInvalidProfiles) != 1 {
		t.Fatalf("expected invalid profile counted")
	}
}

func TestHandlePredictBadBody(t *testing.T) {
	mux, _ := newTestMux(&fakeModel{value: 1})

	cases := map[string]string{
		"malformed":      `{"age":`,
		"unknown region": `{"age":30,"sex":"Male","bmi":22,"children":0,"smoker":"No","region":"midwest"}`,
		"unknown field":  `{"age":30,"sex":"Male","bmi":22,"children":0,"smoker":"No","region":"southwest","income":1}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
	}
}

func TestHandlePredictInferenceFailure(t *testing.T) {
	mux, metrics := newTestMux(&fakeModel{err: errors.New("shape mismatch")})

	body := `{"age":25,"sex":"Male","bmi":25,"children":1,"smoker":"No","region":"southwest"}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if metrics.Counter(ml.MetricPredictionErrors) != 1 {
		t.Fatalf("expected prediction error counted")
	}
}

func TestHandlePredictMissingFields(t *testing.T) {
	model := &fakeModel{value: 1}
	mux, metrics := newTestMux(model)

	body := `{"age":40,"sex":"Female","bmi":30.0,"smoker":"Yes","region":"northeast"}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var payload errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	want := []ml.FieldError{{Field: "children", Reason: "is required"}}
	if len(payload.Fields) != 1 || payload.Fields[0] != want[0] {
		t.Fatalf("unexpected field errors: %+v", payload.Fields)
	}
	if model.rows != nil {
		t.Fatal("model should not be called for an incomplete profile")
	}
	if metrics.Counter(ml.MetricInvalidProfiles) != 1 {
		t.Fatalf("expected invalid profile counted")
	}
}

func TestHandlePredictEmptyObject(t *testing.T) {
	model := &fakeModel{value: 1}
	mux, _ := newTestMux(model)

	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Fields) != 3 {
		t.Fatalf("expected age, bmi and children reported, got %+v", payload.Fields)
	}
	if model.rows != nil {
		t.Fatal("model should not be called")
	}
}

func TestHandlePredictZeroChildren(t *testing.T) {
	model := &fakeModel{value: 1}
	mux, _ := newTestMux(model)

	body := `{"age":18,"sex":"Male","bmi":10,"children":0,"smoker":"No","region":"southwest"}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if model.rows[0][3] != 0 {
		t.Fatalf("expected children feature 0, got %v", model.rows[0][3])
	}
}

func TestHandlePredictTrailingData(t *testing.T) {
	model := &fakeModel{value: 1}
	mux, _ := newTestMux(model)

	valid := `{"age":30,"sex":"Male","bmi":22,"children":0,"smoker":"No","region":"southwest"}`
	for name, body := range map[string]string{
		"second object": valid + `{"junk":1}`,
		"garbage":       valid + ` x`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
	}
	if model.rows != nil {
		t.Fatal("model should not be called")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(valid+"\n"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("trailing newline: expected 200, got %d", w.Code)
	}
}
