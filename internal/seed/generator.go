package seed

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"

	"github.com/okian/tagtrend/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
)

// Per-tag demand profile ranges. Each tag gets a base level, a per-period
// drift and a seasonal swing so the seeded series look like real adoption
// curves rather than white noise.
const (
	baseLevelMin   = 20.0
	baseLevelRange = 180.0
	slopeMin       = -1.5
	slopeRange     = 5.0
	seasonalMin    = 2.0
	seasonalRange  = 12.0
	noiseRange     = 8.0
	seasonLength   = 12.0
)

// Per-source scale factors. Each collector measures a different quantity,
// so the same underlying demand shows up at different magnitudes.
const (
	stackOverflowScale = 1.0
	gitHubScale        = 0.3
	redditScale        = 0.6
	trendsMax          = 100.0
)

// tagPool is the vocabulary the generator draws from. Past NumTags entries
// the pool wraps with a numeric suffix.
var tagPool = []string{
	"go", "rust", "python", "typescript", "kubernetes", "react",
	"terraform", "kafka", "postgresql", "pytorch", "webassembly",
	"graphql", "elixir", "svelte", "docker", "redis", "flutter",
	"scala", "haskell", "clojure", "swift", "kotlin", "zig", "deno",
}

// tagProfile is the latent demand curve one tag follows across periods.
type tagProfile struct {
	tag      string
	base     float64
	slope    float64
	seasonal float64
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateBatches builds per-source ingest batches for the configured number
// of tags and historical periods. Every source reports the same underlying
// demand in its own record shape and at its own scale.
func generateBatches(ctx context.Context, config *Config) ([]Batch, []string, error) {
	logger.Get().Info(ctx, "generating seed batches",
		logger.Int("tags", config.NumTags),
		logger.Int("periods", config.Periods))

	profiles := makeProfiles(config.NumTags)
	tags := make([]string, len(profiles))
	for i, p := range profiles {
		tags[i] = p.tag
	}

	// Periods are weekly, oldest first, ending one week before now so the
	// latest point is a complete period.
	end := time.Now().UTC().AddDate(0, 0, -7)
	start := end.AddDate(0, 0, -7*(config.Periods-1))

	var batches []Batch
	for _, src := range sources() {
		records := make([]map[string]any, 0, config.NumTags*config.Periods)
		for _, p := range profiles {
			for i := 0; i < config.Periods; i++ {
				if err := ctx.Err(); err != nil {
					return nil, nil, err
				}
				date := start.AddDate(0, 0, 7*i)
				value := p.valueAt(i)
				records = append(records, src.record(p.tag, date, value))
			}
		}
		for len(records) > 0 {
			n := min(RecordsPerBatch, len(records))
			batches = append(batches, Batch{Source: src.name, Records: records[:n]})
			records = records[n:]
		}
	}

	logger.Get().Info(ctx, "generated seed batches",
		logger.Int("batches", len(batches)),
		logger.String("firstPeriod", start.Format(time.DateOnly)),
		logger.String("lastPeriod", end.Format(time.DateOnly)))
	return batches, tags, nil
}

// makeProfiles draws a demand profile for each tag.
func makeProfiles(numTags int) []tagProfile {
	profiles := make([]tagProfile, numTags)
	for i := range profiles {
		tag := tagPool[i%len(tagPool)]
		if i >= len(tagPool) {
			tag = tag + "-" + string(rune('a'+i/len(tagPool)))
		}
		profiles[i] = tagProfile{
			tag:      tag,
			base:     baseLevelMin + getRandomFloat()*baseLevelRange,
			slope:    slopeMin + getRandomFloat()*slopeRange,
			seasonal: seasonalMin + getRandomFloat()*seasonalRange,
		}
	}
	return profiles
}

// valueAt evaluates the profile at period index i: base + drift + seasonal
// swing + noise, floored at zero.
func (p tagProfile) valueAt(i int) float64 {
	v := p.base +
		p.slope*float64(i) +
		p.seasonal*math.Sin(2*math.Pi*float64(i)/seasonLength) +
		(getRandomFloat()-0.5)*noiseRange
	if v < 0 {
		return 0
	}
	return v
}

// sourceShape knows how one collector names its record fields.
type sourceShape struct {
	name   string
	record func(tag string, date time.Time, value float64) map[string]any
}

func sources() []sourceShape {
	return []sourceShape{
		{
			name: "stackoverflow",
			record: func(tag string, date time.Time, value float64) map[string]any {
				return map[string]any{
					"tag":   tag,
					"date":  date.Format(time.DateOnly),
					"count": math.Round(value * stackOverflowScale),
				}
			},
		},
		{
			name: "github",
			record: func(tag string, date time.Time, value float64) map[string]any {
				return map[string]any{
					"language":   tag,
					"date":       date.Format(time.DateOnly),
					"repo_count": math.Round(value * gitHubScale),
				}
			},
		},
		{
			name: "trends",
			record: func(tag string, date time.Time, value float64) map[string]any {
				interest := math.Round(value / 4)
				if interest > trendsMax {
					interest = trendsMax
				}
				return map[string]any{
					"keyword":  tag,
					"date":     date.Format(time.DateOnly),
					"interest": interest,
				}
			},
		},
		{
			name: "reddit",
			record: func(tag string, date time.Time, value float64) map[string]any {
				return map[string]any{
					"topic":    tag,
					"date":     date.Format(time.DateOnly),
					"mentions": math.Round(value * redditScale),
				}
			},
		},
	}
}
