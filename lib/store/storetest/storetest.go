// Package storetest holds the conformance suite every store backend runs.
package storetest

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TecharoHQ/numcaptcha/lib/store"
)

// shortTTL is long enough for a round trip to any backend and short enough
// to wait out in a test.
const shortTTL = 150 * time.Millisecond

// payload stands in for serialized challenge state.
func payload(t *testing.T) []byte {
	return []byte(`{"captchaId":"` + t.Name() + `","answer":"sealed"}`)
}

func mustSet(t *testing.T, s store.Interface, value []byte, ttl time.Duration) {
	t.Helper()

	if err := s.Set(t.Context(), t.Name(), value, ttl); err != nil {
		t.Fatalf("can't set %s: %v", t.Name(), err)
	}
}

func wantMissing(t *testing.T, s store.Interface, why string) {
	t.Helper()

	if _, err := s.Get(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("%s: wanted ErrNotFound, got: %v", why, err)
	}
}

func roundTrip(t *testing.T, s store.Interface) {
	wantMissing(t, s, "before set")

	mustSet(t, s, payload(t), 5*time.Minute)

	val, err := s.Get(t.Context(), t.Name())
	if err != nil {
		t.Fatalf("can't get %s: %v", t.Name(), err)
	}
	if !bytes.Equal(val, payload(t)) {
		t.Errorf("wrong value: want %q, got %q", payload(t), val)
	}

	if err := s.Delete(t.Context(), t.Name()); err != nil {
		t.Fatalf("can't delete %s: %v", t.Name(), err)
	}
	wantMissing(t, s, "after delete")

	if err := s.Delete(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleting a missing key: wanted ErrNotFound, got: %v", err)
	}
}

func overwrite(t *testing.T, s store.Interface) {
	mustSet(t, s, []byte("first"), shortTTL)
	mustSet(t, s, []byte("second"), 5*time.Minute)

	//nosleep:bypass the second Set must replace the first expiry as well.
	time.Sleep(shortTTL + 20*time.Millisecond)

	val, err := s.Get(t.Context(), t.Name())
	if err != nil {
		t.Fatalf("overwritten value expired with the old ttl: %v", err)
	}
	if string(val) != "second" {
		t.Errorf("wanted second, got %q", val)
	}
}

func takeOnce(t *testing.T, s store.Interface) {
	mustSet(t, s, payload(t), 5*time.Minute)

	val, err := store.Take(t.Context(), s, t.Name())
	if err != nil {
		t.Fatalf("first take failed: %v", err)
	}
	if !bytes.Equal(val, payload(t)) {
		t.Errorf("wrong value taken: %q", val)
	}

	if _, err := store.Take(t.Context(), s, t.Name()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("replayed take: wanted ErrNotFound, got: %v", err)
	}
	wantMissing(t, s, "after take")
}

func concurrentTake(t *testing.T, s store.Interface) {
	mustSet(t, s, payload(t), 5*time.Minute)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(t.Context(), s, t.Name()); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := wins.Load(); n != 1 {
		t.Errorf("one challenge was redeemed %d times", n)
	}
}

func expires(t *testing.T, s store.Interface) {
	mustSet(t, s, payload(t), shortTTL)

	//nosleep:bypass valkey tests advance miniredis time in the background.
	time.Sleep(shortTTL + 5*time.Millisecond)

	wantMissing(t, s, "after expiry")

	if _, err := store.Take(t.Context(), s, t.Name()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("take after expiry: wanted ErrNotFound, got: %v", err)
	}
}

// Common validates config, builds one store from it and runs the
// conformance checks against it in parallel. Checks key their values by
// subtest name so they never collide.
func Common(t *testing.T, f store.Factory, config json.RawMessage) {
	if err := f.Valid(config); err != nil {
		t.Fatal(err)
	}

	s, err := f.Build(t.Context(), config)
	if err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		name  string
		check func(t *testing.T, s store.Interface)
	}{
		{name: "round trip", check: roundTrip},
		{name: "overwrite", check: overwrite},
		{name: "take once", check: takeOnce},
		{name: "concurrent take", check: concurrentTake},
		{name: "expires", check: expires},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, s)
		})
	}
}
