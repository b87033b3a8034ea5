// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Policy values (debounce ratio, bias thresholds, dimension weights)
//   live here rather than as hard-coded constants in domain packages.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite event log database.
	DBPath string `koanf:"db_path"`

	// BlobDir locates the content-addressed blob store for large
	// snapshot files. Empty disables offloading.
	BlobDir string `koanf:"blob_dir"`

	// BlobInlineLimit is the file size in bytes above which snapshot
	// contents are offloaded to the blob store.
	BlobInlineLimit int `koanf:"blob_inline_limit"`

	// DebounceKeepEvery keeps one of every N high-frequency events.
	DebounceKeepEvery int `koanf:"debounce_keep_every"`

	// HighFrequencyTypes lists event types subject to debouncing.
	HighFrequencyTypes []string `koanf:"high_frequency_types"`

	// CheckpointTypes lists event types promoted to replay checkpoints.
	CheckpointTypes []string `koanf:"checkpoint_types"`

	// EvalQueueSize bounds the in-memory evaluation job queue.
	EvalQueueSize int `koanf:"eval_queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the batch nonce cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxQueryLimit caps GET events pagination limits.
	MaxQueryLimit int `koanf:"max_query_limit"`

	// DimensionWeights maps dimension names to overall-score weights.
	DimensionWeights map[string]float64 `koanf:"dimension_weights"`

	// Bias policy thresholds. See the bias package for semantics.
	BiasMinCodeLines   int     `koanf:"bias_min_code_lines"`
	BiasVolumeScore    float64 `koanf:"bias_volume_score"`
	BiasLowConfidence  float64 `koanf:"bias_low_confidence"`
	BiasPerfectScore   float64 `koanf:"bias_perfect_score"`
	BiasHighDependency float64 `koanf:"bias_high_dependency"`

	// ExperimentSalt seeds the sticky assignment hash.
	ExperimentSalt string `koanf:"experiment_salt"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9090",
		DBPath:             "tryout.db",
		BlobDir:            "",
		BlobInlineLimit:    64 * 1024,
		DebounceKeepEvery:  10,
		HighFrequencyTypes: []string{"keystroke"},
		CheckpointTypes:    nil, // optimizer default set
		EvalQueueSize:      1024,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         50_000,
		MaxQueryLimit:      1000,
		DimensionWeights: map[string]float64{
			"code_quality":     0.30,
			"problem_solving":  0.30,
			"ai_collaboration": 0.25,
			"communication":    0.15,
		},
		BiasMinCodeLines:   20,
		BiasVolumeScore:    80,
		BiasLowConfidence:  0.5,
		BiasPerfectScore:   98,
		BiasHighDependency: 0.8,
		ExperimentSalt:     "tryout-backend",
	}
}
