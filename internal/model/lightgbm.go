package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/dmitryikh/leaves"
)

// Model errors.
var (
	ErrFeatureMismatch = errors.New("feature count mismatch")
	ErrInvalidOutput   = errors.New("model produced a non-finite score")
)

// Regressor is an externally trained model returning a raw score in roughly [-1, 1].
type Regressor interface {
	Predict(features []float64) (float64, error)
}

// RegressorFunc adapts a function to Regressor.
type RegressorFunc func(features []float64) (float64, error)

// Predict calls f.
func (f RegressorFunc) Predict(features []float64) (float64, error) {
	return f(features)
}

// LightGBM serves a LightGBM text model.
type LightGBM struct {
	ensemble *leaves.Ensemble
}

// LoadLightGBM reads a LightGBM model file and checks it accepts Columns.
func LoadLightGBM(path string) (*LightGBM, error) {
	ensemble, err := leaves.LGEnsembleFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}

	if n := ensemble.NFeatures(); n != len(Columns) {
		return nil, fmt.Errorf("%w: model expects %d, row has %d", ErrFeatureMismatch, n, len(Columns))
	}

	return &LightGBM{ensemble: ensemble}, nil
}

// Predict returns the raw regression output for one row.
func (m *LightGBM) Predict(features []float64) (float64, error) {
	if len(features) != m.ensemble.NFeatures() {
		return 0, fmt.Errorf("%w: got %d", ErrFeatureMismatch, len(features))
	}

	out := m.ensemble.PredictSingle(features, 0)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, ErrInvalidOutput
	}
	return out, nil
}

// Trees returns the number of trees in the ensemble.
func (m *LightGBM) Trees() int {
	return m.ensemble.NEstimators()
}
