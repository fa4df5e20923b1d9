// Package normalize converts source-specific raw payloads into canonical
// observations. Each supported source has its own normalizer variant behind
// a common interface, selected by source id, never by runtime type sniffing.
package normalize

import (
	"context"
	"time"

	"github.com/okian/tagtrend/internal/domain/model"
	"github.com/okian/tagtrend/pkg/metrics"
)

// RawRecord is one already-parsed row from an external collector. The shape
// is source-specific and opaque to everything past this package.
type RawRecord = map[string]any

// Report counts the outcome of normalizing one batch. Rejections are
// expected during normal operation; public APIs routinely return malformed
// rows for some entries and a batch must not abort because of them.
type Report struct {
	Accepted int
	Rejected int
}

// Normalizer converts a batch of raw records for one source.
type Normalizer interface {
	// Source identifies which source this normalizer understands.
	Source() model.Source

	// Normalize converts records into observations, skipping and counting
	// rows missing a tag or timestamp. It never fails the whole batch.
	Normalize(ctx context.Context, records []RawRecord) ([]model.Observation, Report)
}

// Registry selects the normalizer variant for a source id.
type Registry struct {
	bySource map[model.Source]Normalizer
}

// NewRegistry builds a registry with the closed set of supported sources.
func NewRegistry() *Registry {
	r := &Registry{bySource: make(map[model.Source]Normalizer)}
	for _, n := range []Normalizer{
		&stackOverflowNormalizer{},
		&gitHubNormalizer{},
		&trendsNormalizer{},
		&redditNormalizer{},
	} {
		r.bySource[n.Source()] = n
	}
	return r
}

// ForSource returns the normalizer for the given source id.
// Returns ErrUnknownSource for anything outside the supported set.
func (r *Registry) ForSource(sourceID string) (Normalizer, error) {
	n, ok := r.bySource[model.Source(sourceID)]
	if !ok {
		return nil, ErrUnknownSource
	}
	return n, nil
}

// normalizeRows runs the shared accept/reject loop over a batch. extract
// pulls the source-specific fields out of one row; a nil tag/zero timestamp
// result means the row is malformed.
func normalizeRows(src model.Source, records []RawRecord, extract func(RawRecord) (string, time.Time, float64, bool)) ([]model.Observation, Report) {
	obs := make([]model.Observation, 0, len(records))
	var rep Report
	for _, rec := range records {
		tag, ts, count, ok := extract(rec)
		tag = model.NormalizeTag(tag)
		if !ok || tag == "" || ts.IsZero() {
			rep.Rejected++
			metrics.RecordObservationRejected(string(src))
			continue
		}
		obs = append(obs, model.Observation{
			Tag:       tag,
			Source:    src,
			Timestamp: ts.UTC(),
			Count:     count,
		})
		rep.Accepted++
	}
	metrics.RecordObservationsAccepted(string(src), rep.Accepted)
	return obs, rep
}

// stringField reads a string value, tolerating absent keys.
func stringField(rec RawRecord, keys ...string) string {
	for _, k := range keys {
		if v, ok := rec[k].(string); ok {
			return v
		}
	}
	return ""
}

// timeField parses the first present timestamp field. Collectors deliver
// either RFC3339 or plain dates.
func timeField(rec RawRecord, keys ...string) time.Time {
	for _, k := range keys {
		s, ok := rec[k].(string)
		if !ok || s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// countField reads a numeric value. JSON decoding yields float64 for
// numbers, but collectors occasionally hand over ints.
func countField(rec RawRecord, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
	}
	return 0, false
}
