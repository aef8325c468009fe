// Package presets builds redlock managers from peer connection descriptors,
// applying the quorum fail-fast check at construction time.
package presets

import (
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-redlock/v1/redlock"
)

// Peer describes one Redis endpoint, either as a URL ("redis://host:port/0")
// or as structured client options. Options wins when both are set.
type Peer struct {
	URL     string
	Options *redis.Options
}

// New constructs a manager from the given descriptors. Descriptors that fail
// to parse are skipped; if fewer than a majority of the configured peers
// remain, New fails with redlock.ErrQuorumUnavailable. The quorum stays
// derived from the configured peer count, not from the survivors.
func New(peers []Peer, opts ...redlock.Option) (*redlock.Redlock, error) {
	clients := make([]*redis.Client, 0, len(peers))
	for _, p := range peers {
		o := p.Options
		if o == nil {
			parsed, err := redis.ParseURL(p.URL)
			if err != nil {
				continue
			}
			o = parsed
		}
		clients = append(clients, redis.NewClient(o))
	}
	quorum := len(peers)/2 + 1
	if len(clients) < quorum {
		return nil, fmt.Errorf("%w: %d of %d peers constructible, quorum %d",
			redlock.ErrQuorumUnavailable, len(clients), len(peers), quorum)
	}
	opts = append(opts, redlock.WithQuorum(quorum))
	return redlock.New(clients, opts...)
}

// NewFromURLs is a convenience wrapper over New for URL-only peer sets.
func NewFromURLs(urls []string, opts ...redlock.Option) (*redlock.Redlock, error) {
	peers := make([]Peer, 0, len(urls))
	for _, u := range urls {
		peers = append(peers, Peer{URL: u})
	}
	return New(peers, opts...)
}
