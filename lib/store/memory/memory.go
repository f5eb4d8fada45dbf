// Package memory is an in-process store. It does not share state between
// numcaptcha instances.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TecharoHQ/numcaptcha/decaymap"
	"github.com/TecharoHQ/numcaptcha/lib/store"
)

// DefaultMaxEntries bounds the store when the config does not.
const DefaultMaxEntries = 100_000

var ErrNegativeMaxEntries = errors.New("memory: max_entries must not be negative")

type factory struct{}

func (factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	config, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	return NewBounded(ctx, config.MaxEntries), nil
}

func (factory) Valid(data json.RawMessage) error {
	_, err := parseConfig(data)
	return err
}

func init() {
	store.Register("memory", factory{})
}

// Config is the memory store configuration. An empty config is valid.
type Config struct {
	// MaxEntries bounds the number of values held. Zero means DefaultMaxEntries.
	MaxEntries int `json:"max_entries,omitempty"`
}

func (c Config) Valid() error {
	if c.MaxEntries < 0 {
		return ErrNegativeMaxEntries
	}

	return nil
}

func parseConfig(data json.RawMessage) (Config, error) {
	var config Config
	if len(data) != 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
		}
	}

	if err := config.Valid(); err != nil {
		return config, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if config.MaxEntries == 0 {
		config.MaxEntries = DefaultMaxEntries
	}

	return config, nil
}

type impl struct {
	store *decaymap.Impl[string, []byte]
}

func (i *impl) Delete(_ context.Context, key string) error {
	if !i.store.Delete(key) {
		return fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return nil
}

func (i *impl) Get(_ context.Context, key string) ([]byte, error) {
	result, ok := i.store.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return result, nil
}

func (i *impl) Take(_ context.Context, key string) ([]byte, error) {
	result, ok := i.store.Take(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return result, nil
}

func (i *impl) Set(_ context.Context, key string, value []byte, expiry time.Duration) error {
	i.store.Set(key, value, expiry)
	return nil
}

func (i *impl) cleanupThread(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			i.store.Cleanup()
		}
	}
}

// New creates an unbounded in-memory store. Its cleanup goroutine stops when
// ctx is done.
func New(ctx context.Context) store.Interface {
	return newImpl(ctx, decaymap.New[string, []byte]())
}

// NewBounded creates an in-memory store holding at most maxEntries values.
// When full, the value closest to expiry is evicted.
func NewBounded(ctx context.Context, maxEntries int) store.Interface {
	return newImpl(ctx, decaymap.NewBounded[string, []byte](maxEntries))
}

func newImpl(ctx context.Context, dm *decaymap.Impl[string, []byte]) *impl {
	result := &impl{store: dm}
	go result.cleanupThread(ctx)
	return result
}
