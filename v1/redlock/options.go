package redlock

import "time"

// Option configures a Redlock manager.
type Option func(*Redlock)

// WithRetryCount sets how many acquisition attempts Lock makes before
// returning ErrNotObtained.
func WithRetryCount(n int) Option {
	return func(r *Redlock) {
		if n > 0 {
			r.retryCount = n
		}
	}
}

// WithRetryDelay sets the sleep between acquisition attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Redlock) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

// WithDriftFactor sets the fraction of the TTL subtracted from validity to
// absorb clock drift between this process and the peers.
func WithDriftFactor(f float64) Option {
	return func(r *Redlock) {
		if f > 0 {
			r.driftFactor = f
		}
	}
}

// WithQuorum overrides the computed majority. Intended for peer sets where
// some configured endpoints could not be constructed but the quorum must
// still be derived from the configured size.
func WithQuorum(n int) Option {
	return func(r *Redlock) {
		if n > 0 {
			r.quorum = n
		}
	}
}

// WithAutoExtend enables background lease extension: every lock acquired by
// the manager is renewed on each accepting peer until Unlock, or until a
// renewal fails and the handle's Done channel closes.
func WithAutoExtend() Option {
	return func(r *Redlock) {
		r.autoExtend = true
	}
}

// WithTracing enables OpenTelemetry spans for Lock and Unlock.
func WithTracing() Option {
	return func(r *Redlock) {
		r.traceEnabled = true
	}
}
