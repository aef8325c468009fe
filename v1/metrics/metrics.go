package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// LockAttempts tracks individual acquisition attempts, including retries.
	LockAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_lock_attempts_total",
		Help: "Total number of lock acquisition attempts",
	})
	// Locks tracks successful acquisitions.
	Locks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_locks_total",
		Help: "Total number of locks acquired",
	})
	// LockFailures tracks acquisitions given up after the retry budget.
	LockFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_lock_failures_total",
		Help: "Total number of acquisitions that exhausted their retries",
	})
	// Unlocks tracks release operations.
	Unlocks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_unlocks_total",
		Help: "Total number of releases",
	})
	// Renewals tracks successful lease renewals.
	Renewals = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_renewals_total",
		Help: "Total number of successful lease renewals",
	})
	// RenewalFailures tracks renewals that found the token gone or the peer
	// unreachable.
	RenewalFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_renewal_failures_total",
		Help: "Total number of failed lease renewals",
	})
	// ReleaseMisses tracks per-peer releases that removed nothing, either
	// because the key expired or the token did not match.
	ReleaseMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_release_misses_total",
		Help: "Total number of per-peer releases that matched no key",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterLockMetrics registers redlock metrics on the provided registry.
func RegisterLockMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LockAttempts, Locks, LockFailures, Unlocks, Renewals, RenewalFailures, ReleaseMisses)
}
