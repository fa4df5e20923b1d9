package forecast

import (
	"context"
	"fmt"
	"math"
)

// boostModel is the boosted-tree forecaster: gradient boosting over
// regression stumps, trained on lagged values of the series and applied
// recursively over the horizon.
type boostModel struct {
	lags   int
	rounds int
	rate   float64
}

// NewBoost constructs a gradient-boosted stump forecaster.
func NewBoost() Model {
	return &boostModel{
		lags:   defaultBoostLags,
		rounds: defaultBoostRounds,
		rate:   defaultBoostRate,
	}
}

func (m *boostModel) Name() string  { return "boost" }
func (m *boostModel) MinTrain() int { return boostMinTrain }

// stump is a depth-1 regression tree: split one lag feature at a threshold.
type stump struct {
	feature     int
	threshold   float64
	left, right float64
}

func (s stump) eval(x []float64) float64 {
	if x[s.feature] <= s.threshold {
		return s.left
	}
	return s.right
}

func (m *boostModel) Fit(ctx context.Context, train []float64) (Fitted, error) {
	n := len(train)
	if n < m.MinTrain() {
		return nil, fmt.Errorf("%w: need %d points, have %d", ErrModelFit, m.MinTrain(), n)
	}

	// Supervised frame: predict train[t] from the lags preceding it.
	rows := n - m.lags
	features := make([][]float64, rows)
	targets := make([]float64, rows)
	for t := m.lags; t < n; t++ {
		features[t-m.lags] = train[t-m.lags : t]
		targets[t-m.lags] = train[t]
	}

	base, variance := meanVariance(targets)
	if variance == 0 {
		return nil, fmt.Errorf("%w: insufficient variance in training targets", ErrModelFit)
	}

	residuals := make([]float64, rows)
	for i, y := range targets {
		residuals[i] = y - base
	}

	stumps := make([]stump, 0, m.rounds)
	for round := 0; round < m.rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best, ok := bestStump(features, residuals, m.lags)
		if !ok {
			break // residuals no longer splittable
		}
		stumps = append(stumps, best)
		for i, x := range features {
			residuals[i] -= m.rate * best.eval(x)
		}
	}

	return &boostFitted{
		lags:   m.lags,
		rate:   m.rate,
		base:   base,
		stumps: stumps,
		window: append([]float64(nil), train[n-m.lags:]...),
	}, nil
}

// bestStump scans every feature and candidate threshold for the split that
// minimizes the squared residual error.
func bestStump(features [][]float64, residuals []float64, lags int) (stump, bool) {
	var best stump
	bestSSE := math.Inf(1)
	found := false
	for f := 0; f < lags; f++ {
		for _, row := range features {
			threshold := row[f]
			var lsum, rsum float64
			var lcnt, rcnt int
			for i, x := range features {
				if x[f] <= threshold {
					lsum += residuals[i]
					lcnt++
				} else {
					rsum += residuals[i]
					rcnt++
				}
			}
			if lcnt == 0 || rcnt == 0 {
				continue
			}
			lmean := lsum / float64(lcnt)
			rmean := rsum / float64(rcnt)
			sse := 0.0
			for i, x := range features {
				pred := rmean
				if x[f] <= threshold {
					pred = lmean
				}
				d := residuals[i] - pred
				sse += d * d
			}
			if sse < bestSSE {
				bestSSE = sse
				best = stump{feature: f, threshold: threshold, left: lmean, right: rmean}
				found = true
			}
		}
	}
	return best, found
}

type boostFitted struct {
	lags   int
	rate   float64
	base   float64
	stumps []stump
	window []float64 // last lags values of the training series
}

// Predict rolls the model forward, feeding each prediction back in as the
// newest lag for the next step.
func (f *boostFitted) Predict(horizon int) []float64 {
	window := append([]float64(nil), f.window...)
	out := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		pred := f.base
		for _, s := range f.stumps {
			pred += f.rate * s.eval(window)
		}
		if pred < 0 {
			pred = 0 // keep the recursion from drifting negative
		}
		out[i] = pred
		window = append(window[1:], pred)
	}
	return out
}

func meanVariance(xs []float64) (mean, variance float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, variance
}
