package optimizer

// Option applies a configuration option to the Optimizer.
type Option func(*Optimizer)

// WithKeepEvery sets the debounce ratio for high-frequency events.
func WithKeepEvery(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.keepEvery = n
		}
	}
}

// WithHighFrequencyTypes replaces the set of debounced event types.
func WithHighFrequencyTypes(types []string) Option {
	return func(o *Optimizer) {
		if len(types) == 0 {
			return
		}
		o.highFrequency = make(map[string]struct{}, len(types))
		for _, t := range types {
			o.highFrequency[t] = struct{}{}
		}
	}
}

// WithCheckpointTypes replaces the set of types promoted to checkpoints.
func WithCheckpointTypes(types []string) Option {
	return func(o *Optimizer) {
		if len(types) == 0 {
			return
		}
		o.important = make(map[string]struct{}, len(types))
		for _, t := range types {
			o.important[t] = struct{}{}
		}
	}
}
