package bias

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMinCodeLines sets the final-snapshot line count below which a high
// code-quality score is treated as volume bias.
func WithMinCodeLines(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minCodeLines = n
		}
	}
}

// WithVolumeBiasScore sets the code-quality score above which the volume
// bias check applies.
func WithVolumeBiasScore(score float64) Option {
	return func(e *Engine) {
		if score > 0 {
			e.volumeBiasScore = score
		}
	}
}

// WithLowConfidenceThreshold sets the mean dimension confidence below
// which the evaluation is flagged.
func WithLowConfidenceThreshold(c float64) Option {
	return func(e *Engine) {
		if c > 0 {
			e.lowConfidence = c
		}
	}
}

// WithPerfectScoreThreshold sets the overall score at which manual
// review is always requested.
func WithPerfectScoreThreshold(score float64) Option {
	return func(e *Engine) {
		if score > 0 {
			e.perfectScore = score
		}
	}
}

// WithHighDependencyThreshold sets the AI dependency metric above which
// a low AI collaboration score is flagged as a penalty inconsistency.
func WithHighDependencyThreshold(d float64) Option {
	return func(e *Engine) {
		if d > 0 {
			e.highDependency = d
		}
	}
}
