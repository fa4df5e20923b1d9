package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/tagtrend/internal/adapters/repository"
	"github.com/okian/tagtrend/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const day = 24 * time.Hour

// setValue writes one merged value through UpdateTag, maintaining the period
// range the way the merger does.
func setValue(s *repository.SeriesStore, tag string, period time.Time, value float64) (int64, bool) {
	p := period.UTC().Unix()
	return s.UpdateTag(context.Background(), tag, func(st *repository.TagState) bool {
		if old, ok := st.Values[p]; ok && old == value {
			return false
		}
		st.Values[p] = value
		if st.MinPeriod == 0 || p < st.MinPeriod {
			st.MinPeriod = p
		}
		if p > st.MaxPeriod {
			st.MaxPeriod = p
		}
		st.LastSeen = time.Now().UTC()
		if st.FirstSeen.IsZero() {
			st.FirstSeen = st.LastSeen
		}
		return true
	})
}

func TestVersionTracking(t *testing.T) {
	Convey("Given a daily series store", t, func() {
		ctx := context.Background()
		store := repository.NewSeriesStore(ctx, repository.WithPeriodStep(day))
		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

		Convey("An unknown tag has version zero", func() {
			So(store.Version(ctx, "ghost"), ShouldEqual, 0)
		})

		Convey("Each canonical change bumps the version", func() {
			v1, bumped := setValue(store, "go", base, 10)
			So(bumped, ShouldBeTrue)
			So(v1, ShouldEqual, 1)

			v2, bumped := setValue(store, "go", base.Add(day), 12)
			So(bumped, ShouldBeTrue)
			So(v2, ShouldEqual, 2)

			So(store.Version(ctx, "go"), ShouldEqual, 2)
		})

		Convey("A no-op update leaves the version alone", func() {
			v1, _ := setValue(store, "go", base, 10)
			v2, bumped := setValue(store, "go", base, 10)
			So(bumped, ShouldBeFalse)
			So(v2, ShouldEqual, v1)
		})
	})
}

func TestSeriesMaterialization(t *testing.T) {
	Convey("Given a tag with a gap in its observations", t, func() {
		ctx := context.Background()
		store := repository.NewSeriesStore(ctx, repository.WithPeriodStep(day))
		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

		setValue(store, "rust", base, 5)
		setValue(store, "rust", base.Add(3*day), 8)

		Convey("The full range includes explicit missing markers", func() {
			points, err := store.Series(ctx, "rust", time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(points, ShouldHaveLength, 4)
			So(points[0].Missing, ShouldBeFalse)
			So(points[0].Value, ShouldEqual, 5)
			So(points[1].Missing, ShouldBeTrue)
			So(points[2].Missing, ShouldBeTrue)
			So(points[3].Value, ShouldEqual, 8)
		})

		Convey("Bounds narrow the returned range", func() {
			points, err := store.Series(ctx, "rust", base.Add(day), base.Add(3*day))
			So(err, ShouldBeNil)
			So(points, ShouldHaveLength, 3)
			So(points[0].Missing, ShouldBeTrue)
			So(points[2].Value, ShouldEqual, 8)
		})

		Convey("A range past the data returns nothing", func() {
			points, err := store.Series(ctx, "rust", time.Time{}, base.Add(-day))
			So(err, ShouldBeNil)
			So(points, ShouldBeEmpty)
		})

		Convey("An unknown tag is an error", func() {
			_, err := store.Series(ctx, "ghost", time.Time{}, time.Time{})
			So(err, ShouldEqual, repository.ErrTagNotFound)
		})

		Convey("History returns the same points plus the version", func() {
			points, version, err := store.History(ctx, "rust")
			So(err, ShouldBeNil)
			So(points, ShouldHaveLength, 4)
			So(version, ShouldEqual, 2)
		})
	})
}

func TestRunHistoryRetention(t *testing.T) {
	Convey("Given a store with a small run retention cap", t, func() {
		ctx := context.Background()
		store := repository.NewSeriesStore(ctx,
			repository.WithPeriodStep(day),
			repository.WithRunHistoryLimit(3))
		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		setValue(store, "go", base, 1)

		Convey("Appending past the cap keeps only the most recent runs", func() {
			for i := 0; i < 5; i++ {
				err := store.AppendRun(ctx, "go", model.ForecastRun{Tag: "go", DataVersion: int64(i)})
				So(err, ShouldBeNil)
			}

			runs, err := store.Runs(ctx, "go")
			So(err, ShouldBeNil)
			So(runs, ShouldHaveLength, 3)
			So(runs[0].DataVersion, ShouldEqual, 2)
			So(runs[2].DataVersion, ShouldEqual, 4)
		})

		Convey("Appending to an unknown tag is an error", func() {
			So(store.AppendRun(ctx, "ghost", model.ForecastRun{}), ShouldEqual, repository.ErrTagNotFound)
		})
	})
}

func TestSentimentAttachment(t *testing.T) {
	Convey("Given a store tracking one tag", t, func() {
		ctx := context.Background()
		store := repository.NewSeriesStore(ctx, repository.WithPeriodStep(day))
		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		setValue(store, "go", base, 1)

		Convey("Scores attach to known tags and drop for unknown ones", func() {
			attached := store.AddSentiment(ctx, []model.TopicSentiment{
				{Tag: "Go", AsOf: base, Sentiment: 0.4, Topics: []string{"generics"}},
				{Tag: "ghost", AsOf: base, Sentiment: -0.2},
			})
			So(attached, ShouldEqual, 1)

			scores := store.Sentiment(ctx, "go")
			So(scores, ShouldHaveLength, 1)
			So(scores[0].Sentiment, ShouldEqual, 0.4)
			So(store.Sentiment(ctx, "ghost"), ShouldBeEmpty)
		})
	})
}

func TestDeactivationSweep(t *testing.T) {
	Convey("Given tags with old and fresh observations", t, func() {
		ctx := context.Background()
		store := repository.NewSeriesStore(ctx, repository.WithPeriodStep(day))
		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

		store.UpdateTag(ctx, "stale", func(st *repository.TagState) bool {
			st.Values[base.Unix()] = 1
			st.MinPeriod, st.MaxPeriod = base.Unix(), base.Unix()
			st.FirstSeen = base
			st.LastSeen = base
			return true
		})
		setValue(store, "fresh", base, 2)

		Convey("Only tags last seen before the cutoff deactivate", func() {
			changed := store.DeactivateStale(ctx, base.AddDate(0, 1, 0))
			So(changed, ShouldEqual, 1)

			tags := store.Tags(ctx)
			So(tags, ShouldHaveLength, 2)
			So(tags[0].Tag, ShouldEqual, "fresh")
			So(tags[0].Active, ShouldBeTrue)
			So(tags[1].Tag, ShouldEqual, "stale")
			So(tags[1].Active, ShouldBeFalse)
		})

		Convey("A fresh observation reactivates a swept tag", func() {
			store.DeactivateStale(ctx, base.AddDate(0, 1, 0))
			setValue(store, "stale", base.AddDate(0, 2, 0), 3)

			for _, summary := range store.Tags(ctx) {
				if summary.Tag == "stale" {
					So(summary.Active, ShouldBeTrue)
				}
			}
		})
	})
}

func TestConcurrentUpdates(t *testing.T) {
	Convey("Given concurrent updates across many tags", t, func() {
		ctx := context.Background()
		store := repository.NewSeriesStore(ctx,
			repository.WithPeriodStep(day),
			repository.WithShardCount(4))
		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		tags := []string{"go", "rust", "python", "zig"}

		const updates = 50
		var wg sync.WaitGroup
		for _, tag := range tags {
			for i := 0; i < updates; i++ {
				wg.Add(1)
				go func(tag string, i int) {
					defer wg.Done()
					setValue(store, tag, base.Add(time.Duration(i)*day), float64(i))
				}(tag, i)
			}
		}
		wg.Wait()

		Convey("Every tag ends at the expected version and point count", func() {
			So(store.Count(ctx), ShouldEqual, len(tags))
			for _, tag := range tags {
				So(store.Version(ctx, tag), ShouldEqual, updates)
				points, _, err := store.History(ctx, tag)
				So(err, ShouldBeNil)
				So(points, ShouldHaveLength, updates)
			}
		})
	})
}
