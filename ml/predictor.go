package ml

import (
	"errors"
	"fmt"
	"math"
)

// Predict runs the model on a single-row batch holding features and
// returns the only output.
func Predict(model Regressor, features FeatureVector) (float64, error) {
	if model == nil {
		return 0, &InferenceError{Err: errors.New("no model loaded")}
	}
	out, err := model.Predict(features.Row())
	if err != nil {
		return 0, &InferenceError{Err: err}
	}
	if len(out) != 1 {
		return 0, &InferenceError{Err: fmt.Errorf("expected 1 output, got %d", len(out))}
	}
	if math.IsNaN(out[0]) || math.IsInf(out[0], 0) {
		return 0, &InferenceError{Err: fmt.Errorf("non-finite output %v", out[0])}
	}
	return out[0], nil
}
