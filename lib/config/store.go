package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TecharoHQ/numcaptcha/lib/store"
	_ "github.com/TecharoHQ/numcaptcha/lib/store/all"
)

var (
	ErrNoStoreBackend      = errors.New("config.Store: no backend defined")
	ErrUnknownStoreBackend = errors.New("config.Store: unknown backend")
)

// Store selects the key/value substrate used by the distributed storage
// backend and the cache serializer.
type Store struct {
	Backend    string          `json:"backend"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// DefaultStore keeps everything in process memory.
func DefaultStore() Store {
	return Store{Backend: "memory"}
}

func (s *Store) params() json.RawMessage {
	if len(s.Parameters) == 0 {
		return json.RawMessage(`{}`)
	}
	return s.Parameters
}

func (s *Store) Valid() error {
	var errs []error

	if len(s.Backend) == 0 {
		errs = append(errs, ErrNoStoreBackend)
	}

	fac, ok := store.Get(s.Backend)
	switch ok {
	case true:
		if err := fac.Valid(s.params()); err != nil {
			errs = append(errs, err)
		}
	case false:
		errs = append(errs, fmt.Errorf("%w: %q, known backends: %v", ErrUnknownStoreBackend, s.Backend, store.Backends()))
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Factory returns the registered factory for s.Backend and its parameters.
func (s *Store) Factory() (store.Factory, json.RawMessage, error) {
	fac, ok := store.Get(s.Backend)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStoreBackend, s.Backend)
	}

	return fac, s.params(), nil
}
