package dedupe

// Option configures an in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds how many match ids are remembered. Once full, the
// oldest id is forgotten first. A value <= 0 disables the bound.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
