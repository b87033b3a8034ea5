package service

import (
	"github.com/okian/tryout/internal/domain/bias"
	"github.com/okian/tryout/internal/domain/experiment"
	"github.com/okian/tryout/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDBPath sets the SQLite database location.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithBlobDir enables blob offloading for large snapshot files.
func WithBlobDir(dir string) Option {
	return func(s *Service) {
		s.blobDir = dir
	}
}

// WithBlobInlineLimit sets the file size above which snapshot contents
// are offloaded to the blob store.
func WithBlobInlineLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.blobInlineLimit = limit
		}
	}
}

// WithWorkerCount sets the number of evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the evaluation job queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the batch nonce cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDebounce configures the ingest optimizer.
func WithDebounce(keepEvery int, highFrequency, checkpointTypes []string) Option {
	return func(s *Service) {
		if keepEvery > 0 {
			s.keepEvery = keepEvery
		}
		s.highFrequency = highFrequency
		s.checkpointTypes = checkpointTypes
	}
}

// WithMaxQueryLimit caps event query page sizes.
func WithMaxQueryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxQueryLimit = limit
		}
	}
}

// WithDimensionWeights sets the per-dimension weights for the overall
// score.
func WithDimensionWeights(weights map[string]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.dimensionWeights = weights
		}
	}
}

// WithBiasOptions forwards configuration to the bias engine.
func WithBiasOptions(opts ...bias.Option) Option {
	return func(s *Service) {
		s.biasOptions = opts
	}
}

// WithExperiment configures sticky backend assignment.
func WithExperiment(salt string, variants []experiment.Variant) Option {
	return func(s *Service) {
		if salt != "" {
			s.experimentSalt = salt
		}
		s.experimentVariants = variants
	}
}

// WithAuthorizer replaces the default allow-all write authorizer.
func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) {
		if a != nil {
			s.authorizer = a
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
