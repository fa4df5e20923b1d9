package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/tagtrend/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// Run executes a complete seeding run: generate synthetic multi-source
// history, ingest it, then pull and verify forecasts for every seeded tag.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting tagtrend seed run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("tags", config.NumTags),
		logger.Int("periods", config.Periods),
		logger.Int("horizon", config.Horizon),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Bool("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	batches, tags, err := generateBatches(ctx, config)
	if err != nil {
		return fmt.Errorf("batch generation failed: %w", err)
	}
	stats.BatchesGenerated = len(batches)

	if err := submitBatches(ctx, config, batches, stats); err != nil {
		return fmt.Errorf("batch submission failed: %w", err)
	}

	// Give the refresh pipeline time to warm forecast caches.
	logger.Get().Info(ctx, "waiting for ingested data to settle")
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while settling: %w", ctx.Err())
	case <-time.After(SettleDelay):
	}

	tracked, err := listTags(ctx, config)
	if err != nil {
		return fmt.Errorf("tag listing failed: %w", err)
	}

	forecasts, err := retrieveForecasts(ctx, config, tags, stats)
	if err != nil {
		return fmt.Errorf("forecast retrieval failed: %w", err)
	}

	if err := verifyResults(ctx, config, tags, tracked, forecasts); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	if err := saveBatchesToFile(ctx, config, batches); err != nil {
		logger.Get().Warn(ctx, "failed to save batches to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "seed run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 counts as healthy; the endpoint returns Prometheus metrics.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveBatchesToFile writes the generated batches to a JSON file so a run can
// be replayed or inspected.
func saveBatchesToFile(ctx context.Context, config *Config, batches []Batch) error {
	if len(batches) == 0 {
		return fmt.Errorf("no batches to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "seed_batches_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batches: %w", err)
	}
	if err := os.WriteFile(filename, data, outputPermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "batches saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, recordsPerSecond float64

	total := stats.RecordsAccepted + stats.RecordsRejected
	if total > 0 {
		successRate = float64(stats.RecordsAccepted) / float64(total) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		recordsPerSecond = float64(total) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("batchesGenerated", stats.BatchesGenerated),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("recordsAccepted", stats.RecordsAccepted),
		logger.Int("recordsRejected", stats.RecordsRejected),
		logger.Int("tagsBumped", stats.TagsBumped),
		logger.Int("forecastsRetrieved", stats.ForecastsRetrieved),
		logger.Int("forecastsFailed", stats.ForecastsFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("recordsPerSecond", recordsPerSecond))
}
