package config_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/TecharoHQ/numcaptcha/lib/config"
	"github.com/TecharoHQ/numcaptcha/lib/store/bbolt"
	"github.com/TecharoHQ/numcaptcha/lib/store/memory"
	"github.com/TecharoHQ/numcaptcha/lib/store/valkey"
)

func TestStoreValid(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input config.Store
		err   error
	}{
		{
			name:  "no backend",
			input: config.Store{},
			err:   config.ErrNoStoreBackend,
		},
		{
			name:  "in-memory backend",
			input: config.Store{Backend: "memory"},
		},
		{
			name: "in-memory backend with negative size",
			input: config.Store{
				Backend:    "memory",
				Parameters: json.RawMessage(`{"max_entries": -1}`),
			},
			err: memory.ErrNegativeMaxEntries,
		},
		{
			name: "bbolt backend",
			input: config.Store{
				Backend:    "bbolt",
				Parameters: json.RawMessage(`{"path": "/tmp/numcaptcha.bdb"}`),
			},
		},
		{
			name:  "bbolt backend no path",
			input: config.Store{Backend: "bbolt"},
			err:   bbolt.ErrMissingPath,
		},
		{
			name: "valkey backend",
			input: config.Store{
				Backend:    "valkey",
				Parameters: json.RawMessage(`{"url": "redis://valkey:6379/0"}`),
			},
		},
		{
			name: "valkey backend no URL",
			input: config.Store{
				Backend:    "valkey",
				Parameters: json.RawMessage(`{}`),
			},
			err: valkey.ErrNoURL,
		},
		{
			name: "valkey backend bad URL",
			input: config.Store{
				Backend:    "valkey",
				Parameters: json.RawMessage(`{"url": "http://valkey.invalid"}`),
			},
			err: valkey.ErrBadURL,
		},
		{
			name:  "unknown backend",
			input: config.Store{Backend: "taco salad"},
			err:   config.ErrUnknownStoreBackend,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.input.Valid(); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("invalid error returned")
			}
		})
	}
}

func TestStoreFactory(t *testing.T) {
	s := config.DefaultStore()

	fac, params, err := s.Factory()
	if err != nil {
		t.Fatal(err)
	}

	st, err := fac.Build(t.Context(), params)
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Set(t.Context(), "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	if _, _, err := (&config.Store{Backend: "nope"}).Factory(); !errors.Is(err, config.ErrUnknownStoreBackend) {
		t.Errorf("wanted ErrUnknownStoreBackend, got: %v", err)
	}
}
