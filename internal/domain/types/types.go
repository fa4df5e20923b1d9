// Package types contains common types used across the application
package types

import "time"

// TagInfo summarizes one tracked skill tag.
type TagInfo struct {
	Tag        string    `json:"tag"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	PointCount int       `json:"point_count"`
	Active     bool      `json:"active"`
}

// SeriesPoint is one canonical period in an API series response. Value is
// null for periods recorded as missing, which keeps missing distinguishable
// from a genuine zero.
type SeriesPoint struct {
	Period    string   `json:"period"`
	Value     *float64 `json:"value"`
	Sentiment *float64 `json:"sentiment,omitempty"`
	Topics    []string `json:"topics,omitempty"`
}

// ForecastPoint mirrors one predicted period with confidence bounds.
type ForecastPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// BacktestError reports holdout accuracy for the selected model.
type BacktestError struct {
	MAE    float64 `json:"mae"`
	RMSE   float64 `json:"rmse"`
	Points int     `json:"points"`
}

// Trend reports the fitted direction of the canonical series.
type Trend struct {
	Slope     float64 `json:"slope"`
	Direction string  `json:"direction"`
}

// Forecast is the read shape returned by GET /forecast.
type Forecast struct {
	Tag         string          `json:"tag"`
	Model       string          `json:"model_used"`
	GeneratedAt time.Time       `json:"generated_at"`
	DataVersion int64           `json:"data_version"`
	Horizon     int             `json:"horizon"`
	Points      []ForecastPoint `json:"points"`
	Backtest    BacktestError   `json:"backtest_error"`
	Trend       Trend           `json:"trend"`
}

// IngestReport is the completion signal returned by an ingestion call.
type IngestReport struct {
	Source      string   `json:"source"`
	Accepted    int      `json:"accepted"`
	Rejected    int      `json:"rejected"`
	TagsTouched []string `json:"tags_touched"`
	TagsBumped  []string `json:"tags_bumped"`
}
