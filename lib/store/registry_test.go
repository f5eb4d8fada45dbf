package store_test

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	"github.com/TecharoHQ/numcaptcha/lib/store"
	_ "github.com/TecharoHQ/numcaptcha/lib/store/all"
)

type nopFactory struct{}

func (nopFactory) Build(context.Context, json.RawMessage) (store.Interface, error) { return nil, nil }
func (nopFactory) Valid(json.RawMessage) error                                     { return nil }

func TestBackends(t *testing.T) {
	got := store.Backends()

	for _, want := range []string{"bbolt", "memory", "valkey"} {
		if !slices.Contains(got, want) {
			t.Errorf("backend %q is not registered, got: %v", want, got)
		}
	}

	if !slices.IsSorted(got) {
		t.Errorf("backends are not sorted: %v", got)
	}
}

func TestGetUnknown(t *testing.T) {
	if _, ok := store.Get("floppy"); ok {
		t.Error("an unregistered backend was found")
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("registering memory a second time did not panic")
		}
	}()

	store.Register("memory", nopFactory{})
}

func TestRegisterNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("registering a nil factory did not panic")
		}
	}()

	store.Register("nil-factory", nil)
}
