// Package merge reconciles per-source observations into one canonical time
// series per tag. It exclusively owns canonical point construction: raw
// observations are bucketed into discretized periods, duplicates within a
// (tag, source, period) cell resolve last-write-wins, and sources combine
// through a configurable trust-weight policy.
package merge

import (
	"context"

	"github.com/okian/tagtrend/internal/adapters/repository"
	"github.com/okian/tagtrend/internal/domain/model"
	"github.com/okian/tagtrend/pkg/logger"
	"github.com/okian/tagtrend/pkg/metrics"
)

// Default weighting configuration. Equal weighting is the documented default
// policy; per-source trust is a tunable, not a hidden constant.
const defaultSourceWeight = 1.0

// Store is the slice of the repository the merger writes through.
type Store interface {
	UpdateTag(ctx context.Context, tag string, fn func(*repository.TagState) bool) (version int64, bumped bool)
}

// Merger applies observation batches to the canonical store.
type Merger struct {
	store         Store
	weights       map[model.Source]float64
	defaultWeight float64
	period        Period
	logger        logger.Logger
}

// Option applies a configuration option to the Merger.
type Option func(*Merger)

// WithSourceWeights sets per-source trust weights and the fallback weight
// for sources absent from the map.
func WithSourceWeights(weights map[string]float64, defaultWeight float64) Option {
	return func(m *Merger) {
		m.weights = make(map[model.Source]float64, len(weights))
		for src, w := range weights {
			if w > 0 {
				m.weights[model.Source(src)] = w
			}
		}
		if defaultWeight > 0 {
			m.defaultWeight = defaultWeight
		}
	}
}

// WithPeriod sets the discretization period for bucketing observations.
func WithPeriod(p Period) Option {
	return func(m *Merger) {
		if p.Valid() {
			m.period = p
		}
	}
}

// WithLogger sets a custom logger for the merger.
func WithLogger(l logger.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMerger constructs a Merger writing through store.
func NewMerger(store Store, opts ...Option) *Merger {
	m := &Merger{
		store:         store,
		weights:       make(map[model.Source]float64),
		defaultWeight: defaultSourceWeight,
		period:        PeriodWeek,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Period returns the merger's discretization period.
func (m *Merger) Period() Period { return m.period }

// weight returns the trust weight for a source.
func (m *Merger) weight(src model.Source) float64 {
	if w, ok := m.weights[src]; ok {
		return w
	}
	return m.defaultWeight
}

// Merge applies a batch of observations for one tag. Observations for other
// tags are ignored. It returns the tag's data version after the merge and
// whether the canonical series actually changed: re-applying an identical
// batch is a no-op and must not bump the version, which is what shields the
// caches from recomputation storms on re-ingestion.
//
// Out-of-order and backfilled periods are accepted; only the touched periods
// are recombined.
func (m *Merger) Merge(ctx context.Context, tag string, obs []model.Observation) (version int64, bumped bool, err error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	tag = model.NormalizeTag(tag)
	version, bumped = m.store.UpdateTag(ctx, tag, func(st *repository.TagState) bool {
		return m.apply(st, tag, obs)
	})
	metrics.RecordMerge(bumped)
	if m.logger != nil && bumped {
		m.logger.Debug(ctx, "canonical series changed",
			logger.String("tag", tag),
			logger.Int("observations", len(obs)),
		)
	}
	return version, bumped, nil
}

// apply mutates the tag state under its exclusive lock. Returns true when
// any period's merged value differs from before or a new period appeared.
func (m *Merger) apply(st *repository.TagState, tag string, obs []model.Observation) bool {
	touched := make(map[int64]struct{})
	for i := range obs {
		o := &obs[i]
		if o.Tag != tag || !o.Source.Valid() {
			continue
		}
		p := m.period.Truncate(o.Timestamp).Unix()
		cell := st.Obs[p]
		if cell == nil {
			cell = make(map[model.Source]repository.ObsValue)
			st.Obs[p] = cell
		}
		// Last-write-wins per (source, period): batches arrive in ingestion
		// order, so a later record always supersedes an earlier one.
		cell[o.Source] = repository.ObsValue{Count: o.Count, Seq: st.NextSeq()}
		touched[p] = struct{}{}

		if st.FirstSeen.IsZero() || o.Timestamp.Before(st.FirstSeen) {
			st.FirstSeen = o.Timestamp
		}
		if o.Timestamp.After(st.LastSeen) {
			st.LastSeen = o.Timestamp
		}
	}

	changed := false
	for p := range touched {
		merged := m.combine(st.Obs[p])
		if old, ok := st.Values[p]; !ok || old != merged {
			st.Values[p] = merged
			changed = true
		}
		if st.MinPeriod == 0 && st.MaxPeriod == 0 {
			st.MinPeriod, st.MaxPeriod = p, p
		} else {
			if p < st.MinPeriod {
				st.MinPeriod = p
			}
			if p > st.MaxPeriod {
				st.MaxPeriod = p
			}
		}
	}
	return changed
}

// combine folds one period's per-source cells into the canonical value:
// each source contributes its LWW count scaled by its trust weight.
func (m *Merger) combine(cell map[model.Source]repository.ObsValue) float64 {
	var sum float64
	for src, v := range cell {
		sum += v.Count * m.weight(src)
	}
	return sum
}
