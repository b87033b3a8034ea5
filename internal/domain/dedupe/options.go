package dedupe

// Option applies a configuration option to the deduper.
type Option func(*ringDeduper)

// WithMaxSize bounds the number of remembered batch keys. Zero or
// negative disables eviction.
func WithMaxSize(size int) Option {
	return func(d *ringDeduper) {
		d.maxSize = size
	}
}
