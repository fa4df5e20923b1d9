package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tagtrend/internal/config"
)

func TestDefaults(t *testing.T) {
	Convey("Given no file or environment overrides", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then sensible defaults apply", func() {
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.Period, ShouldEqual, "week")
			So(cfg.DefaultSourceWeight, ShouldEqual, 1.0)
			So(cfg.MinHistory, ShouldEqual, 10)
			So(cfg.Holdout, ShouldEqual, 4)
			So(cfg.SelectionEpsilon, ShouldEqual, 0.05)
			So(cfg.DefaultHorizon, ShouldEqual, 8)
			So(cfg.MaxHorizon, ShouldBeGreaterThanOrEqualTo, cfg.DefaultHorizon)
			So(cfg.WorkerCount, ShouldBeGreaterThan, 0)
		})
	})
}

func TestEnvOverrides(t *testing.T) {
	Convey("Given environment variables with the service prefix", t, func() {
		t.Setenv("TAGTREND_ADDR", ":7070")
		t.Setenv("TAGTREND_PERIOD", "day")
		t.Setenv("TAGTREND_MIN_HISTORY", "6")
		t.Setenv("TAGTREND_SELECTION_EPSILON", "0.1")

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then they override the defaults", func() {
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.Period, ShouldEqual, "day")
			So(cfg.MinHistory, ShouldEqual, 6)
			So(cfg.SelectionEpsilon, ShouldEqual, 0.1)
		})
	})
}

func TestFileLayering(t *testing.T) {
	Convey("Given a YAML config file and an env override on top", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		body := []byte("addr: \":6060\"\nperiod: day\nsource_weights:\n  stackoverflow: 2.0\n  reddit: 0.5\n")
		So(os.WriteFile(path, body, 0o600), ShouldBeNil)

		t.Setenv("TAGTREND_CONFIG", path)
		t.Setenv("TAGTREND_ADDR", ":5050")

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then env wins over file, file wins over defaults", func() {
			So(cfg.Addr, ShouldEqual, ":5050")
			So(cfg.Period, ShouldEqual, "day")
			So(cfg.SourceWeights["stackoverflow"], ShouldEqual, 2.0)
			So(cfg.SourceWeights["reddit"], ShouldEqual, 0.5)
		})
	})
}

func TestValidationRejectsUnknownPeriod(t *testing.T) {
	t.Setenv("TAGTREND_PERIOD", "month")
	Convey("Loading with an unknown period fails", t, func() {
		_, err := config.Load(context.Background())
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestValidationRejectsNonPositiveWeight(t *testing.T) {
	t.Setenv("TAGTREND_DEFAULT_SOURCE_WEIGHT", "0")
	Convey("Loading with a zero default weight fails", t, func() {
		_, err := config.Load(context.Background())
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestValidationRejectsHorizonOrdering(t *testing.T) {
	t.Setenv("TAGTREND_MAX_HORIZON", "4")
	t.Setenv("TAGTREND_DEFAULT_HORIZON", "8")
	Convey("Loading with max_horizon below default_horizon fails", t, func() {
		_, err := config.Load(context.Background())
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	t.Setenv("TAGTREND_CONFIG", "/nonexistent/config.yaml")
	Convey("Loading with a missing config file fails", t, func() {
		_, err := config.Load(context.Background())
		So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
	})
}
