package normalize_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/tagtrend/internal/domain/model"
	"github.com/okian/tagtrend/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistry(t *testing.T) {
	Convey("Given a normalizer registry", t, func() {
		reg := normalize.NewRegistry()

		Convey("When looking up every supported source", func() {
			for _, src := range model.Sources() {
				n, err := reg.ForSource(string(src))
				So(err, ShouldBeNil)
				So(n.Source(), ShouldEqual, src)
			}
		})

		Convey("When looking up an unsupported source", func() {
			_, err := reg.ForSource("hackernews")

			Convey("Then it should report an unknown source", func() {
				So(err, ShouldEqual, normalize.ErrUnknownSource)
			})
		})
	})
}

func TestStackOverflowNormalize(t *testing.T) {
	Convey("Given the stackoverflow normalizer", t, func() {
		reg := normalize.NewRegistry()
		n, err := reg.ForSource("stackoverflow")
		So(err, ShouldBeNil)

		Convey("When normalizing a clean batch", func() {
			records := []normalize.RawRecord{
				{"tag": "Python", "date": "2024-03-04", "count": float64(42)},
				{"tag": "react", "date": "2024-03-04T00:00:00Z", "count": float64(17)},
			}
			obs, rep := n.Normalize(context.Background(), records)

			Convey("Then all rows are accepted and tags are case-normalized", func() {
				So(rep.Accepted, ShouldEqual, 2)
				So(rep.Rejected, ShouldEqual, 0)
				So(obs, ShouldHaveLength, 2)
				So(obs[0].Tag, ShouldEqual, "python")
				So(obs[0].Source, ShouldEqual, model.SourceStackOverflow)
				So(obs[0].Count, ShouldEqual, 42)
				So(obs[0].Timestamp, ShouldEqual, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When the batch contains malformed rows", func() {
			records := []normalize.RawRecord{
				{"tag": "python", "date": "2024-03-04", "count": float64(42)},
				{"date": "2024-03-04", "count": float64(9)},             // no tag
				{"tag": "go", "count": float64(9)},                      // no timestamp
				{"tag": "go", "date": "not-a-date", "count": float64(9)}, // unparseable timestamp
				{"tag": "rust", "date": "2024-03-04"},                   // no count
			}
			obs, rep := n.Normalize(context.Background(), records)

			Convey("Then the batch partially succeeds instead of aborting", func() {
				So(rep.Accepted, ShouldEqual, 1)
				So(rep.Rejected, ShouldEqual, 4)
				So(obs, ShouldHaveLength, 1)
				So(obs[0].Tag, ShouldEqual, "python")
			})
		})
	})
}

func TestSourceSpecificFieldNames(t *testing.T) {
	Convey("Given the per-source normalizer variants", t, func() {
		reg := normalize.NewRegistry()

		Convey("The github variant reads language and repo_count", func() {
			n, _ := reg.ForSource("github")
			obs, rep := n.Normalize(context.Background(), []normalize.RawRecord{
				{"language": "TypeScript", "date": "2024-03-04", "repo_count": float64(120)},
			})
			So(rep.Accepted, ShouldEqual, 1)
			So(obs[0].Tag, ShouldEqual, "typescript")
			So(obs[0].Count, ShouldEqual, 120)
		})

		Convey("The trends variant reads keyword and interest", func() {
			n, _ := reg.ForSource("trends")
			obs, rep := n.Normalize(context.Background(), []normalize.RawRecord{
				{"keyword": "kubernetes", "date": "2024-03-04", "interest": float64(63)},
			})
			So(rep.Accepted, ShouldEqual, 1)
			So(obs[0].Tag, ShouldEqual, "kubernetes")
			So(obs[0].Count, ShouldEqual, 63)
		})

		Convey("The reddit variant reads topic and mentions", func() {
			n, _ := reg.ForSource("reddit")
			obs, rep := n.Normalize(context.Background(), []normalize.RawRecord{
				{"topic": "Docker", "date": "2024-03-04", "mentions": float64(8)},
			})
			So(rep.Accepted, ShouldEqual, 1)
			So(obs[0].Tag, ShouldEqual, "docker")
			So(obs[0].Source, ShouldEqual, model.SourceReddit)
		})
	})
}
