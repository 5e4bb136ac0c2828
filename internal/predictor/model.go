// Package predictor fits and applies the linear view-count regressor.
package predictor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"yt-analytics/internal/models"
)

// ModelVersion is the artifact format written by Train.
const ModelVersion = 1

var (
	// ErrInsufficientData is returned when there are too few rows to fit.
	ErrInsufficientData = errors.New("insufficient data to train")
	// ErrMissingColumns is returned when no row carries any feature value.
	ErrMissingColumns = errors.New("required feature columns are missing")
	// ErrInvalidFeatures is returned for inputs outside the model's domain.
	ErrInvalidFeatures = models.ErrInvalidFeatures
	// ErrIncompatibleModel is returned for artifacts this build cannot apply.
	ErrIncompatibleModel = errors.New("incompatible model")
)

// Evaluation holds the metrics measured on the held-out partition.
type Evaluation struct {
	Rows int     `json:"rows"`
	R2   float64 `json:"r2"`
	MAE  float64 `json:"mae"`
}

// Model is a fitted ordinary-least-squares regressor. It is immutable after
// training and safe for concurrent use.
type Model struct {
	Version    int         `json:"version"`
	Intercept  float64     `json:"intercept"`
	Features   []string    `json:"features"`
	Weights    []float64   `json:"weights"`
	TrainRows  int         `json:"train_rows"`
	TestRows   int         `json:"test_rows"`
	TestRatio  float64     `json:"test_ratio"`
	Seed       int64       `json:"seed"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	TrainedAt  time.Time   `json:"trained_at"`
}

// Predict returns the raw regression output for f. The result is not
// clamped and may be negative; see ClampViews.
func (m *Model) Predict(f models.Features) float64 {
	return m.predictVector(f.Vector())
}

func (m *Model) predictVector(x []float64) float64 {
	y := m.Intercept
	for i, w := range m.Weights {
		y += w * x[i]
	}
	return y
}

// Validate checks that a loaded artifact matches the features this build
// produces.
func (m *Model) Validate() error {
	if m.Version != ModelVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrIncompatibleModel, m.Version, ModelVersion)
	}
	if len(m.Features) != len(models.FeatureNames) || len(m.Weights) != len(m.Features) {
		return fmt.Errorf("%w: %d features with %d weights", ErrIncompatibleModel, len(m.Features), len(m.Weights))
	}
	for i, name := range models.FeatureNames {
		if m.Features[i] != name {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrIncompatibleModel, i, m.Features[i], name)
		}
	}
	for _, w := range append([]float64{m.Intercept}, m.Weights...) {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: non-finite coefficient", ErrIncompatibleModel)
		}
	}
	return nil
}

// ClampViews turns a raw prediction into a displayable view count:
// negatives become zero and the rest are rounded.
func ClampViews(pred float64) int64 {
	if math.IsNaN(pred) || pred <= 0 {
		return 0
	}
	if pred >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Round(pred))
}
