package ml

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Recorder receives per-request counters. *monitoring.MetricsCollector
// satisfies it.
type Recorder interface {
	IncrCounter(name string, value float64, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
}

const (
	MetricPredictions      = "predictions_total"
	MetricPredictionErrors = "prediction_errors_total"
	MetricInvalidProfiles  = "invalid_profiles_total"
	MetricClamped          = "predictions_clamped_total"
	MetricLatencyMillis    = "prediction_latency_ms"
)

// Estimate is the outcome of one prediction request.
type Estimate struct {
	Charges  float64       `json:"charges"`
	Features FeatureVector `json:"features"`
}

// Estimator validates, encodes and predicts against one injected model.
type Estimator struct {
	model    Regressor
	logger   *zap.Logger
	recorder Recorder
}

type EstimatorOption func(*Estimator)

func WithRecorder(r Recorder) EstimatorOption {
	return func(e *Estimator) { e.recorder = r }
}

func NewEstimator(model Regressor, logger *zap.Logger, opts ...EstimatorOption) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Estimator{model: model, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Estimator) Model() Regressor {
	return e.model
}

func (e *Estimator) Estimate(ctx context.Context, profile PatientProfile) (Estimate, error) {
	if err := ctx.Err(); err != nil {
		return Estimate{}, err
	}
	if err := profile.Validate(); err != nil {
		e.count(MetricInvalidProfiles)
		return Estimate{}, err
	}

	start := time.Now()
	features := Encode(profile)
	charges, err := Predict(e.model, features)
	elapsed := time.Since(start)
	if err != nil {
		e.count(MetricPredictionErrors)
		e.logger.Error("prediction failed", zap.Error(err), zap.Float64s("features", features[:]))
		return Estimate{}, err
	}

	if charges < 0 {
		e.count(MetricClamped)
		e.logger.Warn("negative prediction clamped to zero",
			zap.Float64("raw", charges),
			zap.Float64s("features", features[:]))
		charges = 0
	}

	e.count(MetricPredictions)
	if e.recorder != nil {
		e.recorder.RecordHistogram(MetricLatencyMillis, float64(elapsed.Microseconds())/1000, nil)
	}
	e.logger.Debug("prediction",
		zap.Float64("charges", charges),
		zap.Duration("elapsed", elapsed))
	return Estimate{Charges: charges, Features: features}, nil
}

func (e *Estimator) count(name string) {
	if e.recorder != nil {
		e.recorder.IncrCounter(name, 1, nil)
	}
}
