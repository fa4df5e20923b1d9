package seed

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/tagtrend/pkg/logger"
)

// verifyResults checks that every seeded tag is tracked and that each
// retrieved forecast is internally consistent.
func verifyResults(ctx context.Context, config *Config, seeded []string, tracked []TagInfo, forecasts []Forecast) error {
	logger.Get().Info(ctx, "verifying results")

	trackedSet := make(map[string]bool, len(tracked))
	for _, info := range tracked {
		trackedSet[info.Tag] = true
	}

	missing := 0
	for _, tag := range seeded {
		if !trackedSet[tag] {
			missing++
			logger.Get().Warn(ctx, "seeded tag not tracked", logger.String("tag", tag))
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d seeded tags missing from tag listing", missing, len(seeded))
	}

	for _, fc := range forecasts {
		if err := verifyForecast(fc, config.Horizon); err != nil {
			return fmt.Errorf("forecast for %q inconsistent: %w", fc.Tag, err)
		}
	}

	displayTopMovers(ctx, forecasts, config.Verbose)

	logger.Get().Info(ctx, "result verification completed")
	return nil
}

// verifyForecast checks horizon length and bound ordering of one forecast.
func verifyForecast(fc Forecast, wantHorizon int) error {
	if wantHorizon > 0 && fc.Horizon != wantHorizon {
		return fmt.Errorf("horizon %d, requested %d", fc.Horizon, wantHorizon)
	}
	if len(fc.Points) != fc.Horizon {
		return fmt.Errorf("%d points for horizon %d", len(fc.Points), fc.Horizon)
	}
	for i, p := range fc.Points {
		if p.Lower > p.Value || p.Value > p.Upper {
			return fmt.Errorf("point %d bounds out of order: lower=%.3f value=%.3f upper=%.3f",
				i, p.Lower, p.Value, p.Upper)
		}
	}
	return nil
}

// displayTopMovers logs the tags with the steepest fitted growth.
func displayTopMovers(ctx context.Context, forecasts []Forecast, verbose bool) {
	if len(forecasts) == 0 {
		return
	}

	sorted := make([]Forecast, len(forecasts))
	copy(sorted, forecasts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Trend.Slope > sorted[j].Trend.Slope
	})

	topN := 5
	if len(sorted) < topN {
		topN = len(sorted)
	}

	for i := 0; i < topN; i++ {
		fc := sorted[i]
		logger.Get().Info(ctx, "top mover",
			logger.Int("rank", i+1),
			logger.String("tag", fc.Tag),
			logger.Float64("slope", fc.Trend.Slope),
			logger.String("direction", fc.Trend.Direction),
			logger.String("model", fc.Model))
	}

	if verbose {
		byModel := make(map[string]int)
		for _, fc := range sorted {
			byModel[fc.Model]++
		}
		for model, n := range byModel {
			logger.Get().Info(ctx, "model selection",
				logger.String("model", model),
				logger.Int("tags", n))
		}
	}
}
