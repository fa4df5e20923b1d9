// Package forecast runs the ensemble of demand forecasting strategies over a
// tag's canonical series: every configured model fits independently, gets
// backtested against a held-out tail, and the lowest-RMSE survivor produces
// the forecast. Individual model failures are recovered locally; a run only
// fails when the history is too short or every model fails.
package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/tagtrend/internal/domain/model"
	"github.com/okian/tagtrend/pkg/logger"
	"github.com/okian/tagtrend/pkg/metrics"
)

// Default ensemble policy constants.
const (
	defaultMinHistory = 10
	defaultHoldout    = 4
	defaultEpsilon    = 0.05 // relative RMSE band for the simplicity tie-break
	confidenceZ       = 1.96
	flatSlopeEpsilon  = 1e-6
)

// Model is one forecasting strategy. Implementations must be safe for
// concurrent use; the ensemble trains all models in parallel over the same
// read-only training slice.
type Model interface {
	// Name identifies the strategy in run records and metrics.
	Name() string

	// MinTrain reports the fewest training points the model can fit on,
	// used for the simplicity tie-break.
	MinTrain() int

	// Fit trains on the given series values and returns a fitted instance.
	Fit(ctx context.Context, train []float64) (Fitted, error)
}

// Fitted is a trained model ready to predict.
type Fitted interface {
	// Predict returns one value per future period.
	Predict(horizon int) []float64
}

// Store is the slice of the repository the ensemble reads from and records
// run history into.
type Store interface {
	History(ctx context.Context, tag string) ([]model.CanonicalPoint, int64, error)
	AppendRun(ctx context.Context, tag string, run model.ForecastRun) error
}

// Ensemble coordinates the model set over canonical series.
type Ensemble struct {
	store      Store
	models     []Model
	minHistory int
	holdout    int
	epsilon    float64
	periodStep time.Duration
	logger     logger.Logger
}

// Option applies a configuration option to the Ensemble.
type Option func(*Ensemble)

// WithModels replaces the model set.
func WithModels(models ...Model) Option {
	return func(e *Ensemble) {
		if len(models) > 0 {
			e.models = models
		}
	}
}

// WithMinHistory sets the minimum observed periods required to forecast.
func WithMinHistory(n int) Option {
	return func(e *Ensemble) {
		if n > 0 {
			e.minHistory = n
		}
	}
}

// WithHoldout sets the held-out tail length used for backtesting.
func WithHoldout(n int) Option {
	return func(e *Ensemble) {
		if n > 0 {
			e.holdout = n
		}
	}
}

// WithSelectionEpsilon sets the relative RMSE band within which the model
// needing the least training data wins.
func WithSelectionEpsilon(eps float64) Option {
	return func(e *Ensemble) {
		if eps >= 0 {
			e.epsilon = eps
		}
	}
}

// WithPeriodStep sets the duration of one forecast period.
func WithPeriodStep(step time.Duration) Option {
	return func(e *Ensemble) {
		if step > 0 {
			e.periodStep = step
		}
	}
}

// WithLogger sets a custom logger for the ensemble.
func WithLogger(l logger.Logger) Option {
	return func(e *Ensemble) {
		if l != nil {
			e.logger = l
		}
	}
}

// DefaultModels returns the configured strategy set: last-value, double
// exponential smoothing, seasonal decomposition and boosted stumps.
func DefaultModels(seasonLen int) []Model {
	return []Model{NewNaive(), NewHolt(), NewSeasonal(seasonLen), NewBoost()}
}

// NewEnsemble constructs an Ensemble reading from store.
func NewEnsemble(store Store, opts ...Option) *Ensemble {
	e := &Ensemble{
		store:      store,
		models:     DefaultModels(defaultSeasonLen),
		minHistory: defaultMinHistory,
		holdout:    defaultHoldout,
		epsilon:    defaultEpsilon,
		periodStep: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// candidate is one model's outcome inside a run.
type candidate struct {
	model    Model
	fitted   Fitted
	backtest model.BacktestError
	failedAt string
	err      error
}

// Forecast runs the full PREPARING → TRAINING → BACKTESTING → SELECTING
// pipeline for one tag and horizon, records the run, and returns it.
func (e *Ensemble) Forecast(ctx context.Context, tag string, horizon int) (model.ForecastRun, error) {
	// PREPARING: the history must be long enough to hold out a tail and
	// still train on something meaningful.
	points, version, err := e.store.History(ctx, tag)
	if err != nil {
		return model.ForecastRun{}, err
	}
	observed := 0
	for i := range points {
		if !points[i].Missing {
			observed++
		}
	}
	if observed < e.minHistory {
		metrics.RecordForecastFailure("insufficient_history")
		return model.ForecastRun{}, &InsufficientHistoryError{Tag: tag, Required: e.minHistory, Available: observed}
	}

	holdout := e.holdout
	if max := len(points) / 3; holdout > max {
		holdout = max
	}
	if holdout < 1 {
		holdout = 1
	}
	train := points[:len(points)-holdout]
	tail := points[len(points)-holdout:]
	trainVals := interpolate(train)

	// TRAINING + BACKTESTING: models run in parallel; each failure is
	// recorded and excluded rather than failing the run.
	candidates := e.trainAndBacktest(ctx, trainVals, tail)
	if err := ctx.Err(); err != nil {
		return model.ForecastRun{}, err
	}

	// SELECTING: lowest backtest RMSE wins; within the epsilon band the
	// model demanding the least training data is preferred.
	chosen, attempts, err := e.selectCandidate(tag, candidates)
	if err != nil {
		metrics.RecordForecastFailure("all_models_failed")
		return model.ForecastRun{}, err
	}

	// Refit the winner on the full history and extend over the horizon.
	fullVals := interpolate(points)
	fitted, err := chosen.model.Fit(ctx, fullVals)
	if err != nil {
		// The full series is a superset of the training window, so a refit
		// failure is unexpected; fall back to the holdout-trained instance.
		fitted = chosen.fitted
	}
	preds := clampNonNegative(fitted.Predict(horizon))

	run := model.ForecastRun{
		ID:          uuid.NewString(),
		Tag:         tag,
		Model:       chosen.model.Name(),
		GeneratedAt: time.Now().UTC(),
		Horizon:     horizon,
		DataVersion: version,
		Points:      e.buildPoints(points, preds, chosen.backtest.RMSE),
		Backtest:    chosen.backtest,
		Trend:       trendSummary(points),
		Attempts:    attempts,
	}
	if err := e.store.AppendRun(ctx, tag, run); err != nil {
		return model.ForecastRun{}, err
	}
	metrics.RecordForecastRun(run.Model)
	metrics.RecordBacktestRMSE(run.Backtest.RMSE)
	if e.logger != nil {
		e.logger.Info(ctx, "forecast generated",
			logger.String("tag", tag),
			logger.String("model", run.Model),
			logger.Int("horizon", horizon),
			logger.Float64("rmse", run.Backtest.RMSE),
		)
	}
	return run, nil
}

// trainAndBacktest fits every model in parallel and scores the survivors
// against the held-out tail. Training is read-only over trainVals, so the
// strategies are safe to run concurrently.
func (e *Ensemble) trainAndBacktest(ctx context.Context, trainVals []float64, tail []model.CanonicalPoint) []candidate {
	candidates := make([]candidate, len(e.models))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range e.models {
		g.Go(func() error {
			c := candidate{model: m}
			fitted, err := m.Fit(gctx, trainVals)
			if err != nil {
				c.failedAt, c.err = "fit", err
			} else {
				c.fitted = fitted
				preds := clampNonNegative(fitted.Predict(len(tail)))
				bt, err := backtest(preds, tail)
				if err != nil {
					c.failedAt, c.err = "backtest", err
				} else {
					c.backtest = bt
				}
			}
			candidates[i] = c
			return nil
		})
	}
	_ = g.Wait() // per-model failures are captured, never returned

	for i := range candidates {
		if candidates[i].failedAt != "" {
			metrics.RecordModelFailure(candidates[i].model.Name())
			if e.logger != nil {
				e.logger.Warn(ctx, "model excluded from ensemble",
					logger.String("model", candidates[i].model.Name()),
					logger.String("stage", candidates[i].failedAt),
					logger.Error(candidates[i].err),
				)
			}
		}
	}
	return candidates
}

// selectCandidate picks the primary model and assembles the audit trail.
func (e *Ensemble) selectCandidate(tag string, candidates []candidate) (candidate, []model.ModelAttempt, error) {
	attempts := make([]model.ModelAttempt, 0, len(candidates))
	survivors := make([]candidate, 0, len(candidates))
	var reasons []string
	for _, c := range candidates {
		attempt := model.ModelAttempt{Model: c.model.Name(), Backtest: c.backtest}
		if c.failedAt != "" {
			attempt.FailedAt = c.failedAt
			attempt.Err = c.err.Error()
			reasons = append(reasons, fmt.Sprintf("%s: %v", c.model.Name(), c.err))
		} else {
			survivors = append(survivors, c)
		}
		attempts = append(attempts, attempt)
	}
	if len(survivors) == 0 {
		return candidate{}, nil, fmt.Errorf("%w for %q: %s", ErrAllModelsFailed, tag, strings.Join(reasons, "; "))
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].backtest.RMSE < survivors[j].backtest.RMSE
	})
	chosen := survivors[0]
	band := chosen.backtest.RMSE * (1 + e.epsilon)
	for _, c := range survivors[1:] {
		if c.backtest.RMSE <= band && c.model.MinTrain() < chosen.model.MinTrain() {
			chosen = c
		}
	}
	return chosen, attempts, nil
}

// buildPoints shapes predictions into dated points with confidence bounds
// derived from the backtest residual spread. Everything stays non-negative.
func (e *Ensemble) buildPoints(history []model.CanonicalPoint, preds []float64, rmse float64) []model.ForecastPoint {
	last := history[len(history)-1].Period
	out := make([]model.ForecastPoint, len(preds))
	for i, v := range preds {
		margin := confidenceZ * rmse
		out[i] = model.ForecastPoint{
			Period: last.Add(time.Duration(i+1) * e.periodStep),
			Value:  v,
			Lower:  math.Max(0, v-margin),
			Upper:  v + margin,
		}
	}
	return out
}

// backtest scores predictions against the known tail. Missing periods are
// excluded from the error computation, never imputed to zero.
func backtest(preds []float64, tail []model.CanonicalPoint) (model.BacktestError, error) {
	var absSum, sqSum float64
	n := 0
	for i := range tail {
		if tail[i].Missing {
			continue
		}
		d := preds[i] - tail[i].Value
		absSum += math.Abs(d)
		sqSum += d * d
		n++
	}
	if n == 0 {
		return model.BacktestError{}, fmt.Errorf("%w: no observed periods in holdout", ErrModelFit)
	}
	return model.BacktestError{
		MAE:    absSum / float64(n),
		RMSE:   math.Sqrt(sqSum / float64(n)),
		Points: n,
	}, nil
}

// interpolate turns a canonical sequence into a dense value slice for model
// fitting. Interior missing periods are linearly interpolated. The training
// slice is cut ahead of the holdout and can therefore end inside a gap even
// though the full series never does; trailing missing periods carry the last
// observed value forward so models never fit on an artificial drop to zero
// demand. This fills gaps for fitting only; backtesting still skips them.
func interpolate(points []model.CanonicalPoint) []float64 {
	out := make([]float64, len(points))
	lastKnown := -1
	for i := range points {
		if points[i].Missing {
			continue
		}
		out[i] = points[i].Value
		if lastKnown >= 0 && i-lastKnown > 1 {
			step := (points[i].Value - out[lastKnown]) / float64(i-lastKnown)
			for j := lastKnown + 1; j < i; j++ {
				out[j] = out[lastKnown] + step*float64(j-lastKnown)
			}
		}
		lastKnown = i
	}
	for j := lastKnown + 1; j < len(points) && lastKnown >= 0; j++ {
		out[j] = out[lastKnown]
	}
	return out
}

// clampNonNegative zeroes negative predictions in place; demand counts
// cannot be negative.
func clampNonNegative(preds []float64) []float64 {
	for i, v := range preds {
		if v < 0 || math.IsNaN(v) {
			preds[i] = 0
		}
	}
	return preds
}

// trendSummary fits a line through the observed points of the full series.
func trendSummary(points []model.CanonicalPoint) model.TrendSummary {
	var xs, ys []float64
	for i := range points {
		if points[i].Missing {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, points[i].Value)
	}
	if len(xs) < 2 {
		return model.TrendSummary{Direction: "flat"}
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	dir := "flat"
	switch {
	case slope > flatSlopeEpsilon:
		dir = "increasing"
	case slope < -flatSlopeEpsilon:
		dir = "decreasing"
	}
	return model.TrendSummary{Slope: slope, Direction: dir}
}
