package sandbox

import "time"

// Option configures a Local sandbox.
type Option func(*Local)

// WithCommandTimeout bounds individual command executions.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *Local) {
		if d > 0 {
			s.timeout = d
		}
	}
}
