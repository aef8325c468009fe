package presets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-redlock/v1/redlock"
)

func runPeers(t *testing.T, n int) ([]*miniredis.Miniredis, func()) {
	t.Helper()
	mrs := make([]*miniredis.Miniredis, n)
	for i := 0; i < n; i++ {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis run: %v", err)
		}
		mrs[i] = mr
	}
	cleanup := func() {
		for _, mr := range mrs {
			mr.Close()
		}
	}
	return mrs, cleanup
}

func TestNewFromURLs(t *testing.T) {
	mrs, cleanup := runPeers(t, 3)
	defer cleanup()
	urls := make([]string, len(mrs))
	for i, mr := range mrs {
		urls[i] = "redis://" + mr.Addr()
	}
	r, err := NewFromURLs(urls)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if r.Quorum() != 2 {
		t.Fatalf("quorum %d, want 2", r.Quorum())
	}
	ctx := context.Background()
	l, err := r.Lock(ctx, "res", time.Second)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	r.Unlock(ctx, l)
}

func TestNewBelowQuorumFails(t *testing.T) {
	_, err := NewFromURLs([]string{"://bad", "://worse", "://broken"})
	if !errors.Is(err, redlock.ErrQuorumUnavailable) {
		t.Fatalf("expected ErrQuorumUnavailable, got %v", err)
	}
}

func TestNewKeepsConfiguredQuorum(t *testing.T) {
	mrs, cleanup := runPeers(t, 2)
	defer cleanup()
	// Three configured peers, one unparseable: quorum stays 2 of 3.
	peers := []Peer{
		{URL: "redis://" + mrs[0].Addr()},
		{URL: "redis://" + mrs[1].Addr()},
		{URL: "://bad"},
	}
	r, err := New(peers)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if r.Quorum() != 2 {
		t.Fatalf("quorum %d, want 2", r.Quorum())
	}
}

func TestNewStructuredOptions(t *testing.T) {
	mrs, cleanup := runPeers(t, 1)
	defer cleanup()
	r, err := New([]Peer{{Options: &redis.Options{Addr: mrs[0].Addr()}}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if r.Quorum() != 1 {
		t.Fatalf("quorum %d, want 1", r.Quorum())
	}
	ctx := context.Background()
	l, err := r.Lock(ctx, "res", time.Second)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	r.Unlock(ctx, l)
}
