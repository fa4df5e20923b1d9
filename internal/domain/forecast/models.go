package forecast

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Default model parameters. Smoothing factors follow the usual textbook
// ranges; they are tunable through the model constructors.
const (
	defaultHoltAlpha   = 0.5
	defaultHoltBeta    = 0.3
	defaultSeasonLen   = 12
	naiveMinTrain      = 1
	holtMinTrain       = 4
	defaultBoostLags   = 4
	defaultBoostRounds = 50
	defaultBoostRate   = 0.1
	boostMinTrain      = 12
)

// naiveModel repeats the last observed value. It is the simplest strategy in
// the ensemble and wins epsilon ties by needing the least training data.
type naiveModel struct{}

// NewNaive constructs the last-value forecaster.
func NewNaive() Model { return &naiveModel{} }

func (m *naiveModel) Name() string  { return "naive" }
func (m *naiveModel) MinTrain() int { return naiveMinTrain }

func (m *naiveModel) Fit(ctx context.Context, train []float64) (Fitted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(train) < m.MinTrain() {
		return nil, fmt.Errorf("%w: need %d points, have %d", ErrModelFit, m.MinTrain(), len(train))
	}
	return &naiveFitted{last: train[len(train)-1]}, nil
}

type naiveFitted struct{ last float64 }

func (f *naiveFitted) Predict(horizon int) []float64 {
	out := make([]float64, horizon)
	for i := range out {
		out[i] = f.last
	}
	return out
}

// holtModel is Holt's double exponential smoothing, the classical statistical
// forecaster of the ensemble: one smoothed level plus one smoothed trend.
type holtModel struct {
	alpha, beta float64
}

// NewHolt constructs a double exponential smoothing forecaster.
func NewHolt() Model {
	return &holtModel{alpha: defaultHoltAlpha, beta: defaultHoltBeta}
}

func (m *holtModel) Name() string  { return "holt" }
func (m *holtModel) MinTrain() int { return holtMinTrain }

func (m *holtModel) Fit(ctx context.Context, train []float64) (Fitted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(train) < m.MinTrain() {
		return nil, fmt.Errorf("%w: need %d points, have %d", ErrModelFit, m.MinTrain(), len(train))
	}
	level := train[0]
	trend := train[1] - train[0]
	for _, y := range train[1:] {
		prevLevel := level
		level = m.alpha*y + (1-m.alpha)*(level+trend)
		trend = m.beta*(level-prevLevel) + (1-m.beta)*trend
	}
	return &holtFitted{level: level, trend: trend}, nil
}

type holtFitted struct{ level, trend float64 }

func (f *holtFitted) Predict(horizon int) []float64 {
	out := make([]float64, horizon)
	for i := range out {
		out[i] = f.level + float64(i+1)*f.trend
	}
	return out
}

// seasonalModel is the seasonal-decomposition forecaster: a centered
// moving-average trend, additive per-position seasonal indices, and a linear
// extrapolation of the trend. It needs at least two full seasons to fit.
type seasonalModel struct {
	seasonLen int
}

// NewSeasonal constructs a seasonal-decomposition forecaster with the given
// season length in periods (e.g. 12 for a quarterly cycle on weekly data).
func NewSeasonal(seasonLen int) Model {
	if seasonLen < 2 {
		seasonLen = defaultSeasonLen
	}
	return &seasonalModel{seasonLen: seasonLen}
}

func (m *seasonalModel) Name() string  { return "seasonal" }
func (m *seasonalModel) MinTrain() int { return 2 * m.seasonLen }

func (m *seasonalModel) Fit(ctx context.Context, train []float64) (Fitted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(train)
	if n < m.MinTrain() {
		return nil, fmt.Errorf("%w: need %d points (two seasons), have %d", ErrModelFit, m.MinTrain(), n)
	}

	// Centered moving average estimates the trend component.
	half := m.seasonLen / 2
	trendAt := make([]float64, n)
	known := make([]bool, n)
	for i := half; i < n-half; i++ {
		sum := 0.0
		for j := i - half; j <= i+half; j++ {
			sum += train[j]
		}
		trendAt[i] = sum / float64(2*half+1)
		known[i] = true
	}

	// Additive seasonal indices from the detrended interior.
	idxSum := make([]float64, m.seasonLen)
	idxCount := make([]int, m.seasonLen)
	for i := range train {
		if !known[i] {
			continue
		}
		pos := i % m.seasonLen
		idxSum[pos] += train[i] - trendAt[i]
		idxCount[pos]++
	}
	indices := make([]float64, m.seasonLen)
	for pos := range indices {
		if idxCount[pos] > 0 {
			indices[pos] = idxSum[pos] / float64(idxCount[pos])
		}
	}

	// Linear extrapolation of the trend over the whole window.
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, train, nil, false)

	return &seasonalFitted{
		intercept: intercept,
		slope:     slope,
		indices:   indices,
		n:         n,
	}, nil
}

type seasonalFitted struct {
	intercept float64
	slope     float64
	indices   []float64
	n         int
}

func (f *seasonalFitted) Predict(horizon int) []float64 {
	out := make([]float64, horizon)
	for i := range out {
		t := f.n + i
		out[i] = f.intercept + f.slope*float64(t) + f.indices[t%len(f.indices)]
	}
	return out
}
