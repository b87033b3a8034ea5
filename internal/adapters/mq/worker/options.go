package worker

// Option configures an EvalWorker.
type Option func(*EvalWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *EvalWorker) {
		if name != "" {
			w.name = name
		}
	}
}
