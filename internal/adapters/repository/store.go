// Package repository defines the canonical series store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/tagtrend/internal/domain/model"
)

// ObsValue is the last-write-wins value for one (period, source) cell.
// Seq orders ingestions of the same cell; the highest sequence wins.
type ObsValue struct {
	Count float64
	Seq   uint64
}

// TagState is the mutable per-tag state handed to the merger inside
// UpdateTag. All fields are guarded by the tag's exclusive lock for the
// duration of the callback; nothing may retain references past it.
type TagState struct {
	// Obs holds raw per-source values keyed by period start (unix seconds).
	Obs map[int64]map[model.Source]ObsValue

	// Values holds the merged value for every observed period. Periods
	// absent from Values inside [MinPeriod, MaxPeriod] are missing markers.
	Values map[int64]float64

	// MinPeriod and MaxPeriod bound the known period range (unix seconds);
	// both are zero while the tag has no observations.
	MinPeriod, MaxPeriod int64

	// FirstSeen and LastSeen track observation timestamps for tag listings
	// and the deactivation sweep.
	FirstSeen, LastSeen time.Time

	seq uint64
}

// NextSeq returns a fresh ingestion sequence number for LWW ordering.
func (t *TagState) NextSeq() uint64 {
	t.seq++
	return t.seq
}

// TagSummary is the read shape for tag listings.
type TagSummary struct {
	Tag        string
	FirstSeen  time.Time
	LastSeen   time.Time
	PointCount int
	Active     bool
}

// Store provides shared access to canonical series, forecast run history and
// sentiment annotations. Mutation discipline is per-tag locking: operations
// on different tags never contend, and UpdateTag serializes merges for one
// tag without blocking reads or writes elsewhere.
type Store interface {
	// UpdateTag runs fn under the tag's exclusive lock, creating the tag on
	// first use. fn returns true when the canonical series changed, which
	// bumps the tag's data version. Returns the (possibly bumped) version.
	UpdateTag(ctx context.Context, tag string, fn func(*TagState) bool) (version int64, bumped bool)

	// Version returns the tag's current data version, 0 for unknown tags.
	Version(ctx context.Context, tag string) int64

	// Tags lists all tracked tags ordered by tag name.
	Tags(ctx context.Context) []TagSummary

	// Series returns the ordered canonical points for tag between start and
	// end inclusive (zero times mean unbounded). Gaps inside the returned
	// range are explicit missing markers. Returns ErrTagNotFound.
	Series(ctx context.Context, tag string, start, end time.Time) ([]model.CanonicalPoint, error)

	// History returns the full canonical series plus its data version, as
	// consumed by the forecast ensemble. Returns ErrTagNotFound.
	History(ctx context.Context, tag string) ([]model.CanonicalPoint, int64, error)

	// AppendRun records a forecast run in the tag's retained history.
	AppendRun(ctx context.Context, tag string, run model.ForecastRun) error

	// Runs returns the retained forecast runs, most recent last.
	Runs(ctx context.Context, tag string) ([]model.ForecastRun, error)

	// AddSentiment stores topic/sentiment annotations for known tags and
	// returns how many were attached.
	AddSentiment(ctx context.Context, scores []model.TopicSentiment) int

	// Sentiment returns the annotations recorded for a tag.
	Sentiment(ctx context.Context, tag string) []model.TopicSentiment

	// Count returns the number of tracked tags.
	Count(ctx context.Context) int

	// DeactivateStale marks tags with no observations since cutoff as
	// inactive and returns how many changed. Tags are never deleted.
	DeactivateStale(ctx context.Context, cutoff time.Time) int
}
