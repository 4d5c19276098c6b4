package ml

// Regressor is a pre-fit regression estimator. Implementations are
// read-only after load and safe for concurrent use.
type Regressor interface {
	Predict(rows [][]float64) ([]float64, error)
}

// Artifact is a Regressor that can describe and persist itself.
type Artifact interface {
	Regressor
	Kind() string
	Save(path string) error
}

const (
	KindLinearRegression = "linear_regression"
	KindRegressionTree   = "regression_tree"
)
