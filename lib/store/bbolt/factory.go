package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TecharoHQ/numcaptcha/lib/store"
	"go.etcd.io/bbolt"
)

const (
	DefaultOpenTimeout     = time.Second
	DefaultCleanupInterval = 5 * time.Minute
)

var (
	ErrMissingPath     = errors.New("bbolt: path is missing from config")
	ErrCantWriteToPath = errors.New("bbolt: can't write to path")
	ErrBadDuration     = errors.New("bbolt: duration must be positive")
)

func init() {
	store.Register("bbolt", Factory{})
}

// Factory opens bbolt databases described by a policy file's store
// parameters.
type Factory struct{}

func parseConfig(data json.RawMessage) (*Config, error) {
	var config Config
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := config.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return &config, nil
}

// Build opens the database and starts its cleanup goroutine, which stops
// when ctx is done.
func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	config, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	bdb, err := bbolt.Open(config.Path, 0600, &bbolt.Options{Timeout: config.openTimeout()})
	if err != nil {
		return nil, fmt.Errorf("can't open bbolt database %s: %w", config.Path, err)
	}

	result := &Store{
		bdb:          bdb,
		cleanupEvery: config.cleanupInterval(),
	}

	go result.cleanupThread(ctx)

	return result, nil
}

func (Factory) Valid(data json.RawMessage) error {
	_, err := parseConfig(data)
	return err
}

// Config is the bbolt store section of the policy file.
type Config struct {
	// Path of the database file. Its folder must be writable.
	Path string `json:"path"`

	// OpenTimeout bounds the wait for the file lock another process holds.
	OpenTimeout string `json:"open_timeout,omitempty"`

	// CleanupInterval is how often expired challenges are swept.
	CleanupInterval string `json:"cleanup_interval,omitempty"`
}

func positive(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrBadDuration, s)
	}

	return d, nil
}

func (c Config) openTimeout() time.Duration {
	d, _ := positive(c.OpenTimeout, DefaultOpenTimeout)
	return d
}

func (c Config) cleanupInterval() time.Duration {
	d, _ := positive(c.CleanupInterval, DefaultCleanupInterval)
	return d
}

// Valid checks the durations and that the database folder is writable.
func (c Config) Valid() error {
	var errs []error

	if c.Path == "" {
		errs = append(errs, ErrMissingPath)
	} else {
		probe := filepath.Join(filepath.Dir(c.Path), ".numcaptcha-probe")
		if err := os.WriteFile(probe, nil, 0600); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrCantWriteToPath, err))
		}
		os.Remove(probe)
	}

	if _, err := positive(c.OpenTimeout, DefaultOpenTimeout); err != nil {
		errs = append(errs, fmt.Errorf("open_timeout: %w", err))
	}

	if _, err := positive(c.CleanupInterval, DefaultCleanupInterval); err != nil {
		errs = append(errs, fmt.Errorf("cleanup_interval: %w", err))
	}

	return errors.Join(errs...)
}
