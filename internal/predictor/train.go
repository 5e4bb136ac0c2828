package predictor

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"yt-analytics/internal/models"
)

// MinRows is the smallest dataset and training partition Train accepts.
const MinRows = 5

// TrainOptions controls the train/test split.
type TrainOptions struct {
	// TestRatio is the share of rows held out for evaluation, in [0, 1).
	TestRatio float64
	// Seed makes the split reproducible.
	Seed int64
}

// DefaultTrainOptions holds out 20% of the rows with seed 42.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{TestRatio: 0.2, Seed: 42}
}

// Train fits a model on a seeded random partition of ds and scores it on the
// rest. The held-out rows are never used for fitting.
func Train(ds models.Dataset, opts TrainOptions) (*Model, error) {
	if opts.TestRatio < 0 || opts.TestRatio >= 1 || math.IsNaN(opts.TestRatio) {
		return nil, fmt.Errorf("test ratio must be in [0,1), got %v", opts.TestRatio)
	}
	if len(ds) < MinRows {
		return nil, fmt.Errorf("%w: %d rows, need at least %d", ErrInsufficientData, len(ds), MinRows)
	}

	x := make([][]float64, len(ds))
	y := make([]float64, len(ds))
	populated := false
	for i, r := range ds {
		x[i] = models.FeaturesOf(r).Vector()
		y[i] = float64(r.Views)
		for _, v := range x[i] {
			if v != 0 {
				populated = true
			}
		}
	}
	if !populated {
		return nil, ErrMissingColumns
	}

	train, test := split(len(ds), opts)
	if len(train) < MinRows {
		return nil, fmt.Errorf("%w: training partition has %d rows, need at least %d", ErrInsufficientData, len(train), MinRows)
	}

	intercept, weights := fitOLS(pick(x, train), pickf(y, train))
	m := &Model{
		Version:   ModelVersion,
		Intercept: intercept,
		Features:  append([]string(nil), models.FeatureNames...),
		Weights:   weights,
		TrainRows: len(train),
		TestRows:  len(test),
		TestRatio: opts.TestRatio,
		Seed:      opts.Seed,
		TrainedAt: time.Now().UTC(),
	}
	if len(test) > 0 {
		m.Evaluation = evaluate(m, pick(x, test), pickf(y, test))
	}
	return m, nil
}

// split returns train and test row indices. The first ceil(ratio*n) entries
// of a seeded permutation are held out.
func split(n int, opts TrainOptions) (train, test []int) {
	perm := rand.New(rand.NewSource(opts.Seed)).Perm(n)
	nTest := int(math.Ceil(opts.TestRatio * float64(n)))
	return perm[nTest:], perm[:nTest]
}

func pick(rows [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func pickf(vals []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = vals[j]
	}
	return out
}

func evaluate(m *Model, x [][]float64, y []float64) *Evaluation {
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot, absErr float64
	for i, row := range x {
		d := y[i] - m.predictVector(row)
		ssRes += d * d
		absErr += math.Abs(d)
		ssTot += (y[i] - mean) * (y[i] - mean)
	}

	r2 := 1 - ssRes/ssTot
	if ssTot == 0 {
		r2 = 0
		if ssRes == 0 {
			r2 = 1
		}
	}
	return &Evaluation{Rows: len(y), R2: r2, MAE: absErr / float64(len(y))}
}
