package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/okian/tagtrend/internal/domain/model"
	"github.com/okian/tagtrend/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultShardCount      = 8
	defaultPeriodStep      = 7 * 24 * time.Hour
	defaultRunHistoryLimit = 20
)

// tagEntry holds everything tracked for one tag. mu serializes merges and
// version bumps for the tag; reads copy under the same lock, so a long
// forecast over one tag never blocks merging another.
type tagEntry struct {
	mu        sync.Mutex
	state     TagState
	version   int64
	active    bool
	runs      []model.ForecastRun
	sentiment []model.TopicSentiment
}

// shard groups tags to keep the tag index lock short-lived and uncontended.
type shard struct {
	mu   sync.RWMutex
	tags map[string]*tagEntry
}

// SeriesStore is the in-memory Store implementation, sharded by tag.
type SeriesStore struct {
	shards          []*shard
	shardCount      int
	periodStep      time.Duration
	runHistoryLimit int
}

var _ Store = (*SeriesStore)(nil)

// NewSeriesStore creates a sharded in-memory series store.
func NewSeriesStore(_ context.Context, opts ...Option) *SeriesStore {
	s := &SeriesStore{
		shardCount:      defaultShardCount,
		periodStep:      defaultPeriodStep,
		runHistoryLimit: defaultRunHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{tags: make(map[string]*tagEntry)}
	}
	metrics.UpdateStoreShardCount(s.shardCount)
	return s
}

func (s *SeriesStore) shardFor(tag string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tag))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// lookup returns the entry for tag, or nil when unknown.
func (s *SeriesStore) lookup(tag string) *tagEntry {
	sh := s.shardFor(tag)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.tags[tag]
}

// getOrCreate returns the entry for tag, creating it on first observation.
func (s *SeriesStore) getOrCreate(tag string) *tagEntry {
	sh := s.shardFor(tag)
	sh.mu.RLock()
	e := sh.tags[tag]
	sh.mu.RUnlock()
	if e != nil {
		return e
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e = sh.tags[tag]; e != nil {
		return e
	}
	e = &tagEntry{
		state: TagState{
			Obs:    make(map[int64]map[model.Source]ObsValue),
			Values: make(map[int64]float64),
		},
		active: true,
	}
	sh.tags[tag] = e
	metrics.RecordTagCreated()
	return e
}

// UpdateTag runs fn under the tag's exclusive lock and bumps the data
// version when fn reports a canonical change.
func (s *SeriesStore) UpdateTag(_ context.Context, tag string, fn func(*TagState) bool) (int64, bool) {
	e := s.getOrCreate(tag)
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := fn(&e.state)
	if changed {
		e.version++
		e.active = true
		metrics.RecordVersionBump()
	}
	return e.version, changed
}

// Version returns the tag's current data version, 0 for unknown tags.
func (s *SeriesStore) Version(_ context.Context, tag string) int64 {
	e := s.lookup(tag)
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Tags lists all tracked tags ordered by name.
func (s *SeriesStore) Tags(_ context.Context) []TagSummary {
	var out []TagSummary
	for _, sh := range s.shards {
		sh.mu.RLock()
		for tag, e := range sh.tags {
			e.mu.Lock()
			out = append(out, TagSummary{
				Tag:        tag,
				FirstSeen:  e.state.FirstSeen,
				LastSeen:   e.state.LastSeen,
				PointCount: len(e.state.Values),
				Active:     e.active,
			})
			e.mu.Unlock()
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// materialize renders the ordered canonical sequence between from and to
// (period starts, unix seconds, inclusive), emitting explicit missing
// markers for gaps. Caller must hold e.mu.
func (s *SeriesStore) materialize(e *tagEntry, from, to int64) []model.CanonicalPoint {
	if e.state.MinPeriod == 0 && e.state.MaxPeriod == 0 {
		return nil
	}
	step := int64(s.periodStep / time.Second)
	points := make([]model.CanonicalPoint, 0, (to-from)/step+1)
	for p := from; p <= to; p += step {
		cp := model.CanonicalPoint{Period: time.Unix(p, 0).UTC()}
		if v, ok := e.state.Values[p]; ok {
			cp.Value = v
		} else {
			cp.Missing = true
		}
		points = append(points, cp)
	}
	return points
}

// clampRange narrows the tag's known period range by the requested bounds.
// ok is false when the request misses the known range entirely.
func (s *SeriesStore) clampRange(e *tagEntry, start, end time.Time) (int64, int64, bool) {
	from, to := e.state.MinPeriod, e.state.MaxPeriod
	step := int64(s.periodStep / time.Second)
	if !start.IsZero() {
		if su := start.UTC().Unix(); su > from {
			// snap up to the next period boundary at or after start
			from += (su - from + step - 1) / step * step
		}
	}
	if !end.IsZero() {
		if eu := end.UTC().Unix(); eu < to {
			to = from + (eu-from)/step*step
			if eu < from {
				return 0, 0, false
			}
		}
	}
	return from, to, from <= to
}

// Series returns the ordered canonical points for tag between start and end.
func (s *SeriesStore) Series(_ context.Context, tag string, start, end time.Time) ([]model.CanonicalPoint, error) {
	e := s.lookup(tag)
	if e == nil {
		return nil, ErrTagNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.state.Values) == 0 {
		return nil, nil
	}
	from, to, ok := s.clampRange(e, start, end)
	if !ok {
		return nil, nil
	}
	return s.materialize(e, from, to), nil
}

// History returns the full canonical series and its version for forecasting.
func (s *SeriesStore) History(_ context.Context, tag string) ([]model.CanonicalPoint, int64, error) {
	e := s.lookup(tag)
	if e == nil {
		return nil, 0, ErrTagNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.materialize(e, e.state.MinPeriod, e.state.MaxPeriod), e.version, nil
}

// AppendRun records a forecast run, trimming history to the retention cap.
func (s *SeriesStore) AppendRun(_ context.Context, tag string, run model.ForecastRun) error {
	e := s.lookup(tag)
	if e == nil {
		return ErrTagNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs = append(e.runs, run)
	if len(e.runs) > s.runHistoryLimit {
		e.runs = e.runs[len(e.runs)-s.runHistoryLimit:]
	}
	return nil
}

// Runs returns the retained forecast runs, most recent last.
func (s *SeriesStore) Runs(_ context.Context, tag string) ([]model.ForecastRun, error) {
	e := s.lookup(tag)
	if e == nil {
		return nil, ErrTagNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.ForecastRun, len(e.runs))
	copy(out, e.runs)
	return out, nil
}

// AddSentiment attaches annotations to known tags; scores for unknown tags
// are dropped (the NLP feed runs ahead of collection at times).
func (s *SeriesStore) AddSentiment(_ context.Context, scores []model.TopicSentiment) int {
	attached := 0
	for _, sc := range scores {
		e := s.lookup(model.NormalizeTag(sc.Tag))
		if e == nil {
			continue
		}
		e.mu.Lock()
		e.sentiment = append(e.sentiment, sc)
		e.mu.Unlock()
		attached++
	}
	return attached
}

// Sentiment returns the annotations recorded for a tag.
func (s *SeriesStore) Sentiment(_ context.Context, tag string) []model.TopicSentiment {
	e := s.lookup(tag)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.TopicSentiment, len(e.sentiment))
	copy(out, e.sentiment)
	return out
}

// Count returns the number of tracked tags.
func (s *SeriesStore) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.tags)
		sh.mu.RUnlock()
	}
	metrics.UpdateTotalTags(n)
	return n
}

// DeactivateStale marks tags without observations since cutoff as inactive.
func (s *SeriesStore) DeactivateStale(_ context.Context, cutoff time.Time) int {
	changed := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.tags {
			e.mu.Lock()
			if e.active && !e.state.LastSeen.IsZero() && e.state.LastSeen.Before(cutoff) {
				e.active = false
				changed++
			}
			e.mu.Unlock()
		}
		sh.mu.RUnlock()
	}
	if changed > 0 {
		metrics.RecordTagsDeactivated(changed)
	}
	return changed
}
