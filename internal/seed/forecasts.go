package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/okian/tagtrend/pkg/logger"
)

// listTags fetches the service's tag listing.
func listTags(ctx context.Context, config *Config) ([]TagInfo, error) {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/tags")
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag listing: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("tag listing failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Tags  []TagInfo `json:"tags"`
		Count int       `json:"count"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode tag listing: %w", err)
	}
	return payload.Tags, nil
}

// retrieveForecasts requests a forecast for every seeded tag concurrently.
// Individual failures are counted rather than aborting the run, because a
// thin series may legitimately be refused.
func retrieveForecasts(ctx context.Context, config *Config, tags []string, stats *Stats) ([]Forecast, error) {
	logger.Get().Info(ctx, "retrieving forecasts",
		logger.Int("tags", len(tags)),
		logger.Int("horizon", config.Horizon))

	client := newHTTPClient(config.Timeout)

	var (
		mu        sync.Mutex
		forecasts []Forecast
	)

	tagChan := make(chan string, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tag := range tagChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				fc, err := retrieveSingleForecast(ctx, client, config, tag)
				if err != nil {
					mu.Lock()
					stats.ForecastsFailed++
					mu.Unlock()
					logger.Get().Warn(ctx, "forecast request failed",
						logger.String("tag", tag),
						logger.Error(err))
					continue
				}

				mu.Lock()
				forecasts = append(forecasts, fc)
				stats.ForecastsRetrieved++
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(tagChan)
		for _, tag := range tags {
			select {
			case <-ctx.Done():
				return
			case tagChan <- tag:
			}
		}
	}()

	wg.Wait()

	logger.Get().Info(ctx, "forecast retrieval completed",
		logger.Int("retrieved", stats.ForecastsRetrieved),
		logger.Int("failed", stats.ForecastsFailed))
	return forecasts, nil
}

// retrieveSingleForecast fetches and decodes one forecast.
func retrieveSingleForecast(ctx context.Context, client *HTTPClient, config *Config, tag string) (Forecast, error) {
	var fc Forecast

	q := url.Values{}
	q.Set("tag", tag)
	if config.Horizon > 0 {
		q.Set("horizon", strconv.Itoa(config.Horizon))
	}

	resp, err := client.Get(ctx, config.BaseURL+"/forecast?"+q.Encode())
	if err != nil {
		return fc, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fc, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fc, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &fc); err != nil {
		return fc, fmt.Errorf("failed to decode forecast: %w", err)
	}
	return fc, nil
}
