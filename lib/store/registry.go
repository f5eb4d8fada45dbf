package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

var (
	backends   = map[string]Factory{}
	backendsMu sync.RWMutex
)

// Factory builds a store backend from its policy file parameters.
type Factory interface {
	Build(ctx context.Context, config json.RawMessage) (Interface, error)
	Valid(config json.RawMessage) error
}

// Register makes a backend available under name. It is meant to be called
// from init and panics when name is taken.
func Register(name string, fac Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if fac == nil {
		panic("store: Register called with a nil factory for " + name)
	}

	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("store: backend %q registered twice", name))
	}

	backends[name] = fac
}

// Get looks up the backend registered under name.
func Get(name string) (Factory, bool) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	fac, ok := backends[name]
	return fac, ok
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	result := make([]string, 0, len(backends))
	for name := range backends {
		result = append(result, name)
	}
	slices.Sort(result)

	return result
}
