package evaluation

import (
	"github.com/okian/tryout/internal/domain/analyzer"
	"github.com/okian/tryout/internal/domain/bias"
	"github.com/okian/tryout/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithAnalyzers replaces the default analyzer set.
func WithAnalyzers(analyzers []analyzer.Analyzer) Option {
	return func(p *Pipeline) {
		if len(analyzers) > 0 {
			p.analyzers = analyzers
		}
	}
}

// WithBiasEngine replaces the default bias engine.
func WithBiasEngine(e *bias.Engine) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.biasEng = e
		}
	}
}

// WithWeights replaces the dimension weights used for the overall score.
func WithWeights(weights map[string]float64) Option {
	return func(p *Pipeline) {
		if len(weights) > 0 {
			p.weights = weights
		}
	}
}

// WithReportGenerator installs an external actionable-report generator.
func WithReportGenerator(r ReportGenerator) Option {
	return func(p *Pipeline) {
		p.reporter = r
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
