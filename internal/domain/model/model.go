// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"strings"
	"time"
)

// Source identifies one of the public data sources observations come from.
type Source string

// The closed set of supported sources. Normalizers are registered per source;
// payloads from anything else are rejected at the ingestion boundary.
const (
	SourceStackOverflow Source = "stackoverflow"
	SourceGitHub        Source = "github"
	SourceTrends        Source = "trends"
	SourceReddit        Source = "reddit"
)

// Sources lists all supported sources in a stable order.
func Sources() []Source {
	return []Source{SourceStackOverflow, SourceGitHub, SourceTrends, SourceReddit}
}

// Valid reports whether s is one of the supported sources.
func (s Source) Valid() bool {
	switch s {
	case SourceStackOverflow, SourceGitHub, SourceTrends, SourceReddit:
		return true
	}
	return false
}

// NormalizeTag canonicalizes a skill tag: trimmed, lower-cased.
// Tags are identity keys across every store, so this is the single
// place the normalization rule lives.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Observation is one raw, per-source count for a tag at a point in time.
// Immutable once ingested; duplicates per (tag, source, period) resolve
// last-write-wins during merging.
type Observation struct {
	Tag       string
	Source    Source
	Timestamp time.Time
	Count     float64
}

// CanonicalPoint is the merged, source-weighted value for one tag at one
// discretized period. Missing marks a period with no observations from any
// source; its Value is meaningless and must never be read as zero demand.
type CanonicalPoint struct {
	Period  time.Time
	Value   float64
	Missing bool
}

// ForecastPoint is a single predicted period with confidence bounds.
// All three values are clamped to be non-negative.
type ForecastPoint struct {
	Period time.Time
	Value  float64
	Lower  float64
	Upper  float64
}

// BacktestError summarizes a model's accuracy over the held-out tail.
// Points counts the non-missing holdout periods the errors were computed on.
type BacktestError struct {
	MAE    float64
	RMSE   float64
	Points int
}

// ModelAttempt records one model's outcome inside a forecast run, kept for
// auditability whether the model succeeded or was excluded.
type ModelAttempt struct {
	Model    string
	Backtest BacktestError
	FailedAt string // empty when the model survived; otherwise "fit" or "backtest"
	Err      string // failure detail when FailedAt is set
}

// ForecastRun is the immutable record of one ensemble invocation. Later runs
// for the same tag supersede earlier ones; history is retained, not mutated.
type ForecastRun struct {
	ID          string
	Tag         string
	Model       string // the selected model
	GeneratedAt time.Time
	Horizon     int
	DataVersion int64
	Points      []ForecastPoint
	Backtest    BacktestError
	Trend       TrendSummary
	Attempts    []ModelAttempt
}

// TrendSummary describes the direction of the canonical series, derived from
// a linear fit over the observed (non-missing) points.
type TrendSummary struct {
	Slope     float64
	Direction string // "increasing", "decreasing" or "flat"
}

// TopicSentiment is an opaque annotation supplied by the external NLP
// collaborator. It is merged alongside canonical points for reporting only
// and never participates in forecasting.
type TopicSentiment struct {
	Tag       string
	AsOf      time.Time
	Topics    []string
	Sentiment float64 // in [-1, 1]
}

// CachedResult is a forecast payload held by the result cache. It is served
// only while DataVersion matches the tag's current version and the entry has
// not passed its expiry ceiling.
type CachedResult struct {
	Tag         string
	Horizon     int
	DataVersion int64
	Run         ForecastRun
	StoredAt    time.Time
	ExpiresAt   time.Time
}

// RefreshJob asks the background workers to warm the forecast cache for a
// tag after its canonical series changed. Version is the data version that
// triggered the job, used to coalesce duplicate submissions.
type RefreshJob struct {
	Tag     string
	Horizon int
	Version int64
}

// Key returns the coalescing key for the job: one pending refresh per
// (tag, horizon) and data version.
func (j RefreshJob) Key() string {
	return j.Tag + "@" + strconv.FormatInt(j.Version, 10) + "/" + strconv.Itoa(j.Horizon)
}
