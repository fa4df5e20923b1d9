package normalize

import (
	"context"
	"time"

	"github.com/okian/tagtrend/internal/domain/model"
)

// stackOverflowNormalizer handles Stack Exchange API rows: tag counts per
// week, keyed by "tag", "date" (or "week_start") and "count".
type stackOverflowNormalizer struct{}

func (n *stackOverflowNormalizer) Source() model.Source { return model.SourceStackOverflow }

func (n *stackOverflowNormalizer) Normalize(_ context.Context, records []RawRecord) ([]model.Observation, Report) {
	return normalizeRows(n.Source(), records, func(rec RawRecord) (string, time.Time, float64, bool) {
		tag := stringField(rec, "tag", "name")
		ts := timeField(rec, "date", "week_start")
		count, ok := countField(rec, "count", "question_count")
		return tag, ts, count, ok
	})
}

// gitHubNormalizer handles GitHub search/statistics rows: repository counts
// per language, keyed by "language", "date" and "repo_count".
type gitHubNormalizer struct{}

func (n *gitHubNormalizer) Source() model.Source { return model.SourceGitHub }

func (n *gitHubNormalizer) Normalize(_ context.Context, records []RawRecord) ([]model.Observation, Report) {
	return normalizeRows(n.Source(), records, func(rec RawRecord) (string, time.Time, float64, bool) {
		tag := stringField(rec, "language", "tag")
		ts := timeField(rec, "date", "collected_at")
		count, ok := countField(rec, "repo_count", "count")
		return tag, ts, count, ok
	})
}

// trendsNormalizer handles Google Trends interest-over-time rows, keyed by
// "keyword", "date" and "interest" (a 0-100 relative index).
type trendsNormalizer struct{}

func (n *trendsNormalizer) Source() model.Source { return model.SourceTrends }

func (n *trendsNormalizer) Normalize(_ context.Context, records []RawRecord) ([]model.Observation, Report) {
	return normalizeRows(n.Source(), records, func(rec RawRecord) (string, time.Time, float64, bool) {
		tag := stringField(rec, "keyword", "tag")
		ts := timeField(rec, "date")
		count, ok := countField(rec, "interest", "value")
		return tag, ts, count, ok
	})
}

// redditNormalizer handles subreddit mention rows, keyed by "topic", "date"
// and "mentions".
type redditNormalizer struct{}

func (n *redditNormalizer) Source() model.Source { return model.SourceReddit }

func (n *redditNormalizer) Normalize(_ context.Context, records []RawRecord) ([]model.Observation, Report) {
	return normalizeRows(n.Source(), records, func(rec RawRecord) (string, time.Time, float64, bool) {
		tag := stringField(rec, "topic", "tag")
		ts := timeField(rec, "date")
		count, ok := countField(rec, "mentions", "count")
		return tag, ts, count, ok
	})
}
