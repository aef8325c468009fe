// Package redlock provides a quorum-based distributed mutex over a set of
// independent Redis instances. A lock is considered held when a majority of
// the configured peers accepted it and the remaining validity window, after
// subtracting fan-out latency and a clock-drift margin, is still positive.
// Held locks can optionally be kept alive by background lease extension.
package redlock
