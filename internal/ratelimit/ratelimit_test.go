package ratelimit

import (
	"context"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLimiter(permits int, exemptions ...string) (*Limiter, *time.Time) {
	var pfxs []netip.Prefix
	for _, e := range exemptions {
		pfxs = append(pfxs, netip.MustParsePrefix(e))
	}

	now := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC)
	l := New(permits, time.Minute, pfxs)
	l.now = func() time.Time { return now }

	return l, &now
}

func TestAllowWindow(t *testing.T) {
	l, now := newTestLimiter(3)

	for i := range 3 {
		if ok, _ := l.Allow("203.0.113.7"); !ok {
			t.Fatalf("request %d was limited", i)
		}
	}

	*now = now.Add(20 * time.Second)

	ok, retry := l.Allow("203.0.113.7")
	if ok {
		t.Fatal("fourth request in the window was allowed")
	}

	if retry != 40*time.Second {
		t.Errorf("wanted retry after 40s, got: %s", retry)
	}

	if ok, _ := l.Allow("203.0.113.8"); !ok {
		t.Error("another client was limited")
	}

	*now = now.Add(40 * time.Second)

	if ok, _ := l.Allow("203.0.113.7"); !ok {
		t.Error("client still limited in the next window")
	}
}

func TestAllowExemptions(t *testing.T) {
	l, _ := newTestLimiter(1, "10.0.0.0/8", "::1/128")

	for _, addr := range []string{"10.1.2.3", "::1", "::ffff:10.9.9.9"} {
		t.Run(addr, func(t *testing.T) {
			for range 5 {
				if ok, _ := l.Allow(addr); !ok {
					t.Fatal("exempt address was limited")
				}
			}
		})
	}

	if l.Len() != 0 {
		t.Errorf("exempt addresses are tracked: %d entries", l.Len())
	}
}

func TestAllowIPv6Subnet(t *testing.T) {
	l, _ := newTestLimiter(2)

	for _, addr := range []string{"2001:db8:1:2::1", "2001:db8:1:2::ffff"} {
		if ok, _ := l.Allow(addr); !ok {
			t.Fatalf("%s was limited", addr)
		}
	}

	if ok, _ := l.Allow("2001:db8:1:2:abcd::1"); ok {
		t.Error("same /64 got a fresh window")
	}

	if ok, _ := l.Allow("2001:db8:1:3::1"); !ok {
		t.Error("different /64 was limited")
	}
}

func TestAllowUnparseable(t *testing.T) {
	l, _ := newTestLimiter(0)

	if ok, _ := l.Allow("not an address"); !ok {
		t.Error("unparseable address was limited")
	}

	if ok, _ := l.Allow("198.51.100.1"); ok {
		t.Error("zero permits allowed a request")
	}
}

func TestAllowConcurrent(t *testing.T) {
	const permits = 10
	l, _ := newTestLimiter(permits)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
	)

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("192.0.2.1"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != permits {
		t.Errorf("wanted %d allowed requests, got: %d", permits, got)
	}
}

func TestCleanupLoopStops(t *testing.T) {
	l, _ := newTestLimiter(1)
	l.Allow("192.0.2.1")

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		l.CleanupLoop(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CleanupLoop did not return after its context was cancelled")
	}
}
