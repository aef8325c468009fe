package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-redlock/v1/presets"
	"github.com/mirkobrombin/go-redlock/v1/redlock"
)

func main() {
	peers := flag.String("peers", "redis://127.0.0.1:6379,redis://127.0.0.1:6380,redis://127.0.0.1:6381", "Comma-separated peer URLs")
	resource := flag.String("resource", "smoke-lock", "Resource name")
	ttl := flag.Duration("ttl", 10*time.Second, "Lock TTL")
	hold := flag.Duration("hold", 2*time.Second, "How long to hold the lock")
	extend := flag.Bool("extend", false, "Keep the lease alive while holding")
	flag.Parse()

	ctx := context.Background()
	urls := strings.Split(*peers, ",")

	// Probe each peer up front so unreachable endpoints are visible before
	// the protocol quietly absorbs them as per-peer failures.
	reachable := 0
	for _, u := range urls {
		opts, err := redis.ParseURL(u)
		if err != nil {
			log.Printf("peer %s: bad URL: %v", u, err)
			continue
		}
		c := redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(ctx, time.Second)
		if err := c.Ping(pctx).Err(); err != nil {
			log.Printf("peer %s: unreachable: %v", u, err)
		} else {
			reachable++
		}
		cancel()
		_ = c.Close()
	}
	log.Printf("%d/%d peers reachable", reachable, len(urls))

	var opts []redlock.Option
	if *extend {
		opts = append(opts, redlock.WithAutoExtend())
	}
	r, err := presets.NewFromURLs(urls, opts...)
	if err != nil {
		log.Fatalf("construct: %v", err)
	}

	start := time.Now()
	l, err := r.Lock(ctx, *resource, *ttl)
	if err != nil {
		log.Fatalf("lock: %v", err)
	}
	log.Printf("locked %q in %v, validity %v, quorum %d", *resource, time.Since(start), l.Validity(), r.Quorum())

	if done := l.Done(); done != nil {
		select {
		case <-done:
			log.Fatalf("lost the lock while holding")
		case <-time.After(*hold):
		}
	} else {
		time.Sleep(*hold)
	}

	if d, held := r.TTL(ctx, l); held {
		log.Printf("still held, %v remaining", d)
	} else {
		log.Printf("no longer held on a quorum of peers")
	}

	r.Unlock(ctx, l)
	log.Printf("released")
}
