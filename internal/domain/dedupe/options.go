package dedupe

// Option applies a configuration option to the InMemoryCoalescer.
type Option func(*inMemoryCoalescer)

// WithMaxSize bounds the number of pending keys kept in memory. A value
// of 0 or less disables eviction entirely.
func WithMaxSize(maxSize int) Option {
	return func(c *inMemoryCoalescer) {
		c.maxSize = maxSize
	}
}
