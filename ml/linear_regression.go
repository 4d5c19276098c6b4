package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type LinearRegression struct {
	Intercept    float64
	Coefficients []float64
}

type linearArtifact struct {
	Kind         string    `json:"kind"`
	Features     []string  `json:"features,omitempty"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func NewLinearRegression(intercept float64, coefficients []float64) *LinearRegression {
	return &LinearRegression{
		Intercept:    intercept,
		Coefficients: append([]float64(nil), coefficients...),
	}
}

func (lr *LinearRegression) Kind() string { return KindLinearRegression }

func (lr *LinearRegression) Predict(rows [][]float64) ([]float64, error) {
	if len(lr.Coefficients) == 0 {
		return nil, errors.New("model has no coefficients")
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(lr.Coefficients) {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), len(lr.Coefficients))
		}
		y := lr.Intercept
		for j, x := range row {
			y += lr.Coefficients[j] * x
		}
		out[i] = y
	}
	return out, nil
}

func (lr *LinearRegression) Save(path string) error {
	if len(lr.Coefficients) == 0 {
		return errors.New("model has no coefficients")
	}
	payload, err := json.MarshalIndent(linearArtifact{
		Kind:         KindLinearRegression,
		Features:     FeatureNames(),
		Intercept:    lr.Intercept,
		Coefficients: lr.Coefficients,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func decodeLinearRegression(payload []byte) (*LinearRegression, error) {
	var a linearArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, err
	}
	if len(a.Coefficients) != FeatureCount {
		return nil, fmt.Errorf("expected %d coefficients, got %d", FeatureCount, len(a.Coefficients))
	}
	return NewLinearRegression(a.Intercept, a.Coefficients), nil
}
