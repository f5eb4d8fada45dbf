// Package ratelimit caps how many challenges a client address can request in
// a fixed window.
package ratelimit

import (
	"context"
	"log/slog"
	"net/netip"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/TecharoHQ/numcaptcha/decaymap"
	"github.com/gaissmai/bart"
)

// DefaultMaxClients bounds how many client windows are tracked at once.
const DefaultMaxClients = 100_000

// ipv6Bits is how much of an IPv6 address identifies one client. Hosts
// usually get a whole /64.
const ipv6Bits = 64

// Limiter is a fixed window counter keyed by client address.
type Limiter struct {
	permits int64
	window  time.Duration
	exempt  *bart.Table[bool]
	counts  *decaymap.Impl[string, *atomic.Int64]
	now     func() time.Time
}

// New creates a Limiter allowing permits requests per window. Addresses in
// exemptions are never limited.
func New(permits int, window time.Duration, exemptions []netip.Prefix) *Limiter {
	result := &Limiter{
		permits: int64(permits),
		window:  window,
		exempt:  &bart.Table[bool]{},
		counts:  decaymap.NewBounded[string, *atomic.Int64](DefaultMaxClients),
		now:     time.Now,
	}

	for _, pfx := range exemptions {
		result.exempt.Insert(pfx.Masked(), true)
	}

	return result
}

// Exempt reports whether addr is never limited.
func (l *Limiter) Exempt(addr netip.Addr) bool {
	_, ok := l.exempt.Lookup(addr.Unmap())
	return ok
}

func (l *Limiter) key(addr netip.Addr, start time.Time) string {
	addr = addr.Unmap()
	if addr.Is6() {
		pfx, _ := addr.Prefix(ipv6Bits)
		addr = pfx.Addr()
	}

	return addr.String() + "@" + strconv.FormatInt(start.Unix(), 10)
}

// Allow records one request from remote. When the window is exhausted it
// returns false and how long until the next window opens.
//
// Addresses that don't parse are let through: the limiter sits in front of
// challenge issuance and must not lock out clients behind odd proxies.
func (l *Limiter) Allow(remote string) (bool, time.Duration) {
	addr, err := netip.ParseAddr(remote)
	if err != nil {
		slog.Debug("rate limiter can't parse client address", "remote", remote, "err", err)
		return true, 0
	}

	if l.Exempt(addr) {
		return true, 0
	}

	now := l.now()
	start := now.Truncate(l.window)
	end := start.Add(l.window)
	key := l.key(addr, start)

	l.counts.SetIfAbsent(key, &atomic.Int64{}, end.Sub(now))

	count, ok := l.counts.Get(key)
	if !ok {
		return true, 0
	}

	if count.Add(1) > l.permits {
		return false, end.Sub(now)
	}

	return true, 0
}

// Cleanup drops counters of windows that have closed.
func (l *Limiter) Cleanup() {
	l.counts.Cleanup()
}

// CleanupLoop calls Cleanup every interval until ctx is done.
func (l *Limiter) CleanupLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Cleanup()
		}
	}
}

// Len returns the number of tracked client windows.
func (l *Limiter) Len() int {
	return l.counts.Len()
}
