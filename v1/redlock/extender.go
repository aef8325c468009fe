package redlock

import (
	"context"
	"sync"
	"time"

	"github.com/mirkobrombin/go-redlock/v1/metrics"
)

// renewalMargin is how long before expiry a renewal fires. TTLs too small to
// leave room for the margin renew at mid-life instead.
const renewalMargin = 5 * time.Second

func renewalInterval(ttl time.Duration) time.Duration {
	interval := ttl - renewalMargin
	if interval <= ttl/2 {
		interval = ttl / 2
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	return interval
}

// extender keeps one renewal loop per peer that accepted the lock. All loops
// share a stop channel; the first renewal miss on any peer stops every loop
// and marks the lock as lost.
type extender struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	lostOnce sync.Once
	wg       sync.WaitGroup
}

func newExtender() *extender {
	return &extender{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// watch starts the renewal loop for one peer. The loop runs on its own
// context: renewals must outlive the caller's acquisition context.
func (e *extender) watch(p *peer, resource, token string, ttl time.Duration) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(renewalInterval(ttl))
		defer ticker.Stop()
		for {
			select {
			case <-e.stop:
				return
			case <-ticker.C:
				if !p.extend(context.Background(), resource, token, ttl) {
					// Key gone or peer unreachable: assume the lock is lost
					// and let the remaining keys expire on their own.
					metrics.RenewalFailures.Inc()
					e.lost()
					return
				}
				metrics.Renewals.Inc()
			}
		}
	}()
}

func (e *extender) lost() {
	e.lostOnce.Do(func() { close(e.done) })
	e.halt()
}

func (e *extender) halt() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// stopAndWait signals every loop and blocks until all of them have exited.
// Idempotent; safe to call when no loop is running.
func (e *extender) stopAndWait() {
	e.halt()
	e.wg.Wait()
}
