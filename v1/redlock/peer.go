package redlock

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
    return 0
end
`)

// peer wraps a single Redis instance. Every operation reports a plain
// boolean outcome; transport and protocol errors count as a failed outcome
// for that peer only.
type peer struct {
	client *redis.Client
}

// acquire sets resource=token if absent, expiring after ttl.
func (p *peer) acquire(ctx context.Context, resource, token string, ttl time.Duration) bool {
	ok, err := p.client.SetNX(ctx, resource, token, ttl).Result()
	return err == nil && ok
}

// release deletes resource only while it still holds token. Reports whether
// a key was actually removed.
func (p *peer) release(ctx context.Context, resource, token string) bool {
	res, err := delScript.Run(ctx, p.client, []string{resource}, token).Result()
	if err != nil {
		return false
	}
	n, ok := res.(int64)
	return ok && n == 1
}

// extend resets the expiry of resource to ttl only while it still holds
// token.
func (p *peer) extend(ctx context.Context, resource, token string, ttl time.Duration) bool {
	res, err := extendScript.Run(ctx, p.client, []string{resource}, token, ttl.Milliseconds()).Result()
	if err != nil {
		return false
	}
	n, ok := res.(int64)
	return ok && n == 1
}

// remaining reports the time left before resource expires on this peer,
// or false when the peer does not hold token anymore.
func (p *peer) remaining(ctx context.Context, resource, token string) (time.Duration, bool) {
	val, err := p.client.Get(ctx, resource).Result()
	if err != nil || val != token {
		return 0, false
	}
	ttl, err := p.client.PTTL(ctx, resource).Result()
	if err != nil || ttl < 0 {
		return 0, false
	}
	return ttl, true
}
