package logger

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Init is idempotent.
	if err := Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after second initialization")
	}
}

func TestLoggerLazyGet(t *testing.T) {
	// Get must hand back a usable logger even without an explicit Init.
	logger := Get()
	if logger == nil {
		t.Fatal("Get returned nil")
	}
	logger.Info(context.Background(), "lazy logger works")
}

func TestLoggerFields(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "field smoke test",
		String("tag", "go"),
		Int("horizon", 8),
		Int64("version", 3),
		Float64("rmse", 1.5),
		Bool("bumped", true),
		Duration("elapsed", 5*time.Millisecond),
		Any("weights", map[string]float64{"stackoverflow": 2}),
	)
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("merge")
	if named == nil {
		t.Fatal("named logger is nil")
	}
	named.Info(context.Background(), "named logger works")
}

func TestSetLevelString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if err := SetLevelString(in); err != nil {
			t.Fatalf("SetLevelString(%q) failed: %v", in, err)
		}
		if got := levelVar.Level(); got != want {
			t.Fatalf("SetLevelString(%q) = %v, want %v", in, got, want)
		}
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
