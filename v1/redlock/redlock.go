package redlock

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mirkobrombin/go-redlock/v1/metrics"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-redlock/v1/redlock")

var (
	// ErrNoPeers is returned when a manager is constructed without peers.
	ErrNoPeers = errors.New("redlock: no peers configured")
	// ErrQuorumUnavailable is returned when fewer than quorum peers can be
	// constructed from the configured connection descriptors.
	ErrQuorumUnavailable = errors.New("redlock: fewer than quorum peers available")
	// ErrNotObtained is returned by Lock after the retry budget is exhausted.
	// It does not distinguish contention from peer unavailability.
	ErrNotObtained = errors.New("redlock: lock not obtained")
	// ErrLockLost is returned by Extend when the token no longer matches on a
	// quorum of peers.
	ErrLockLost = errors.New("redlock: lock lost")
)

// Defaults applied by New when the corresponding option is not given.
const (
	DefaultRetryCount  = 3
	DefaultRetryDelay  = 200 * time.Millisecond
	DefaultDriftFactor = 0.01
)

// driftPrecision covers the expiry resolution of the peers plus a minimum
// drift for small TTLs.
const driftPrecision = 2 * time.Millisecond

// Lock is the handle returned by a successful acquisition. It is immutable;
// callers pass it back unchanged to Unlock.
type Lock struct {
	resource string
	token    string
	validity time.Duration
	ext      *extender
}

// Resource returns the name the lock was acquired under.
func (l *Lock) Resource() string { return l.resource }

// Token returns the proof token that was stored on the peers.
func (l *Lock) Token() string { return l.token }

// Validity returns the estimated window the lock could safely be considered
// held at the time of acquisition. It is informational; the peers' own key
// expiry is the enforced bound.
func (l *Lock) Validity() time.Duration { return l.validity }

// Done returns a channel that is closed when background lease extension
// gives up on the lock, meaning ownership can no longer be assumed. It
// returns nil when the manager was not configured with WithAutoExtend.
func (l *Lock) Done() <-chan struct{} {
	if l.ext == nil {
		return nil
	}
	return l.ext.done
}

// Redlock acquires and releases locks against a fixed set of Redis peers.
// A single manager can hold locks on several resources at once; per-hold
// state lives on the returned Lock handle.
type Redlock struct {
	peers  []*peer
	quorum int

	retryCount   int
	retryDelay   time.Duration
	driftFactor  float64
	autoExtend   bool
	traceEnabled bool
}

// New returns a manager over the given peer clients. Quorum defaults to a
// majority of the peers; see WithQuorum for sets where some configured
// endpoints could not be constructed.
func New(clients []*redis.Client, opts ...Option) (*Redlock, error) {
	if len(clients) == 0 {
		return nil, ErrNoPeers
	}
	r := &Redlock{
		peers:       make([]*peer, 0, len(clients)),
		quorum:      len(clients)/2 + 1,
		retryCount:  DefaultRetryCount,
		retryDelay:  DefaultRetryDelay,
		driftFactor: DefaultDriftFactor,
	}
	for _, c := range clients {
		r.peers = append(r.peers, &peer{client: c})
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Quorum returns the number of peers that must accept an operation.
func (r *Redlock) Quorum() int { return r.quorum }

// Lock attempts to acquire resource for ttl. On success the returned handle
// carries the remaining validity window after fan-out latency and the drift
// margin are subtracted. After the retry budget is exhausted it returns
// ErrNotObtained; callers must not infer contention from that, peers may
// simply have been unreachable.
func (r *Redlock) Lock(ctx context.Context, resource string, ttl time.Duration) (*Lock, error) {
	var span trace.Span
	if r.traceEnabled {
		ctx, span = tracer.Start(ctx, "Redlock.Lock")
		defer span.End()
		span.SetAttributes(
			attribute.String("redlock.resource", resource),
			attribute.Int64("redlock.ttl_ms", ttl.Milliseconds()),
			attribute.Int("redlock.quorum", r.quorum),
		)
	}

	drift := time.Duration(float64(ttl)*r.driftFactor) + driftPrecision

	for attempt := 0; attempt < r.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.retryDelay):
			case <-ctx.Done():
				metrics.LockFailures.Inc()
				return nil, ctx.Err()
			}
		}
		metrics.LockAttempts.Inc()

		// A fresh token per attempt keeps the cleanup of a failed attempt
		// from racing a later attempt on the same peers.
		token := uuid.NewString()
		var ext *extender
		if r.autoExtend {
			ext = newExtender()
		}

		start := time.Now()
		var n atomic.Int64
		var g errgroup.Group
		for _, p := range r.peers {
			p := p
			g.Go(func() error {
				if p.acquire(ctx, resource, token, ttl) {
					n.Add(1)
					if ext != nil {
						// Extension for this peer starts as soon as its set
						// succeeds, not after the whole fan-out.
						ext.watch(p, resource, token, ttl)
					}
				}
				return nil
			})
		}
		_ = g.Wait()
		elapsed := time.Since(start)
		validity := ttl - elapsed - drift

		if validity > 0 && int(n.Load()) >= r.quorum {
			metrics.Locks.Inc()
			if r.traceEnabled {
				span.SetAttributes(
					attribute.Int("redlock.attempt", attempt+1),
					attribute.Int64("redlock.validity_ms", validity.Milliseconds()),
					attribute.Int64("redlock.peers_locked", n.Load()),
				)
			}
			return &Lock{resource: resource, token: token, validity: validity, ext: ext}, nil
		}

		// Partial locks must not linger at a lower TTL: roll back on every
		// peer, not only the ones that reported success.
		if ext != nil {
			ext.stopAndWait()
		}
		r.releaseAll(ctx, resource, token)
	}

	metrics.LockFailures.Inc()
	if r.traceEnabled {
		span.SetAttributes(attribute.String("redlock.result", "not_obtained"))
	}
	return nil, ErrNotObtained
}

// Unlock releases the lock on every peer, best effort. Extension loops for
// the handle are stopped first so a renewal cannot resurrect the key behind
// the delete. Unlock never reports peer failures; key expiry is the safety
// net for peers that could not be reached. It is safe to call with a stale
// handle and safe to call more than once.
func (r *Redlock) Unlock(ctx context.Context, l *Lock) {
	if l == nil {
		return
	}
	var span trace.Span
	if r.traceEnabled {
		ctx, span = tracer.Start(ctx, "Redlock.Unlock")
		defer span.End()
		span.SetAttributes(attribute.String("redlock.resource", l.resource))
	}
	if l.ext != nil {
		l.ext.stopAndWait()
	}
	r.releaseAll(ctx, l.resource, l.token)
	metrics.Unlocks.Inc()
}

// Extend performs a single token-checked renewal of the lock to ttl on every
// peer. It returns ErrLockLost when fewer than quorum peers still held the
// token. Managers configured with WithAutoExtend do not need this.
func (r *Redlock) Extend(ctx context.Context, l *Lock, ttl time.Duration) error {
	if l == nil {
		return ErrLockLost
	}
	var n atomic.Int64
	var g errgroup.Group
	for _, p := range r.peers {
		p := p
		g.Go(func() error {
			if p.extend(ctx, l.resource, l.token, ttl) {
				n.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	if int(n.Load()) < r.quorum {
		metrics.RenewalFailures.Inc()
		return ErrLockLost
	}
	metrics.Renewals.Inc()
	return nil
}

// TTL reports the smallest remaining expiry among the peers still holding
// the handle's token, and whether those peers form a quorum. The reading is
// advisory: it races with expiry on the peers.
func (r *Redlock) TTL(ctx context.Context, l *Lock) (time.Duration, bool) {
	if l == nil {
		return 0, false
	}
	held := 0
	min := time.Duration(-1)
	for _, p := range r.peers {
		d, ok := p.remaining(ctx, l.resource, l.token)
		if !ok {
			continue
		}
		held++
		if min < 0 || d < min {
			min = d
		}
	}
	if held < r.quorum {
		return 0, false
	}
	return min, true
}

func (r *Redlock) releaseAll(ctx context.Context, resource, token string) {
	var g errgroup.Group
	for _, p := range r.peers {
		p := p
		g.Go(func() error {
			if !p.release(ctx, resource, token) {
				metrics.ReleaseMisses.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
}
