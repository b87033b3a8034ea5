package experiment

// Option applies a configuration option to the Assigner.
type Option func(*Assigner)

// WithStore persists assignments through the given store.
func WithStore(s AssignmentStore) Option {
	return func(a *Assigner) {
		a.store = s
	}
}
