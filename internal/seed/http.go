package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tagtrend/pkg/logger"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with the given timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitBatches posts every batch to /ingest using a worker pool and folds
// the per-batch reports into stats.
func submitBatches(ctx context.Context, config *Config, batches []Batch, stats *Stats) error {
	logger.Get().Info(ctx, "submitting batches",
		logger.Int("batches", len(batches)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/ingest"

	var (
		submitted atomic.Int64
		failed    atomic.Int64
		accepted  atomic.Int64
		rejected  atomic.Int64
		bumped    atomic.Int64
	)

	batchChan := make(chan Batch, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				report, err := submitSingleBatch(ctx, client, url, batch)
				if err != nil {
					failed.Add(1)
					logger.Get().Warn(ctx, "batch submission failed",
						logger.String("source", batch.Source),
						logger.Error(err))
					continue
				}

				submitted.Add(1)
				accepted.Add(int64(report.Accepted))
				rejected.Add(int64(report.Rejected))
				bumped.Add(int64(len(report.TagsBumped)))

				if config.Verbose {
					logger.Get().Info(ctx, "batch accepted",
						logger.String("source", report.Source),
						logger.Int("accepted", report.Accepted),
						logger.Int("rejected", report.Rejected),
						logger.Int("tagsBumped", len(report.TagsBumped)))
				}
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for _, batch := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- batch:
			}
		}
	}()

	wg.Wait()

	stats.BatchesSubmitted = int(submitted.Load())
	stats.BatchesFailed = int(failed.Load())
	stats.RecordsAccepted = int(accepted.Load())
	stats.RecordsRejected = int(rejected.Load())
	stats.TagsBumped = int(bumped.Load())

	logger.Get().Info(ctx, "batch submission completed",
		logger.Int("submitted", stats.BatchesSubmitted),
		logger.Int("failed", stats.BatchesFailed),
		logger.Int("recordsAccepted", stats.RecordsAccepted),
		logger.Int("recordsRejected", stats.RecordsRejected))

	if stats.BatchesFailed > 0 && stats.BatchesSubmitted == 0 {
		return fmt.Errorf("all %d batches failed", stats.BatchesFailed)
	}
	return nil
}

// submitSingleBatch posts one batch and decodes the ingest report.
func submitSingleBatch(ctx context.Context, client *HTTPClient, url string, batch Batch) (IngestReport, error) {
	var report IngestReport

	resp, err := client.Post(ctx, url, batch)
	if err != nil {
		return report, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return report, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return report, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &report); err != nil {
		return report, fmt.Errorf("failed to decode report: %w", err)
	}
	return report, nil
}
