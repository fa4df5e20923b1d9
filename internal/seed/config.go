package seed

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumTags    int           // Number of distinct tags to seed
	Periods    int           // Number of historical periods per tag and source
	Horizon    int           // Forecast horizon to request after seeding
	Workers    int           // Number of concurrent submit workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated batches
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Batch is one ingest request body: a set of raw records from one source.
type Batch struct {
	Source  string           `json:"source"`
	Records []map[string]any `json:"records"`
}

// IngestReport mirrors the service's per-batch ingest response.
type IngestReport struct {
	Source      string   `json:"source"`
	Accepted    int      `json:"accepted"`
	Rejected    int      `json:"rejected"`
	TagsTouched []string `json:"tags_touched"`
	TagsBumped  []string `json:"tags_bumped"`
}

// TagInfo mirrors one entry of the service's tag listing.
type TagInfo struct {
	Tag        string `json:"tag"`
	PointCount int    `json:"point_count"`
	Active     bool   `json:"active"`
}

// Forecast mirrors the service's forecast response, trimmed to the fields
// the verifier inspects.
type Forecast struct {
	Tag         string          `json:"tag"`
	Model       string          `json:"model_used"`
	DataVersion int64           `json:"data_version"`
	Horizon     int             `json:"horizon"`
	Points      []ForecastPoint `json:"points"`
	Trend       Trend           `json:"trend"`
}

// ForecastPoint is one projected period with its confidence bounds.
type ForecastPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Trend is the fitted direction summary attached to a forecast.
type Trend struct {
	Slope     float64 `json:"slope"`
	Direction string  `json:"direction"`
}

// Stats holds run statistics.
type Stats struct {
	BatchesGenerated   int
	BatchesSubmitted   int
	BatchesFailed      int
	RecordsAccepted    int
	RecordsRejected    int
	TagsBumped         int
	ForecastsRetrieved int
	ForecastsFailed    int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
