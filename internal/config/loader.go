package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TAGTREND_CONFIG is set
//  3. env (prefix TAGTREND_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("TAGTREND_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: TAGTREND_ADDR, TAGTREND_QUEUE_SIZE, ...
	// Map env keys like TAGTREND_QUEUE_SIZE -> queue_size (flat keys).
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("TAGTREND_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "tagtrend_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.Period != "day" && c.Period != "week" {
		return fmt.Errorf("%w: period must be day or week, got %q", ErrInvalidConfig, c.Period)
	}
	if c.DefaultSourceWeight <= 0 {
		return fmt.Errorf("%w: default_source_weight must be positive", ErrInvalidConfig)
	}
	for source, w := range c.SourceWeights {
		if w <= 0 {
			return fmt.Errorf("%w: source_weights[%s] must be positive", ErrInvalidConfig, source)
		}
	}
	if c.MinHistory < 2 {
		return fmt.Errorf("%w: min_history must be at least 2", ErrInvalidConfig)
	}
	if c.Holdout < 1 {
		return fmt.Errorf("%w: holdout must be at least 1", ErrInvalidConfig)
	}
	if c.SelectionEpsilon < 0 {
		return fmt.Errorf("%w: selection_epsilon must not be negative", ErrInvalidConfig)
	}
	if c.DefaultHorizon < 1 || c.MaxHorizon < c.DefaultHorizon {
		return fmt.Errorf("%w: horizons must satisfy 1 <= default_horizon <= max_horizon", ErrInvalidConfig)
	}
	return nil
}
