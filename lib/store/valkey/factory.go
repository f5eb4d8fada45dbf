package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TecharoHQ/numcaptcha/lib/store"
	valkey "github.com/redis/go-redis/v9"
)

// DefaultDialTimeout bounds connecting to the server at startup and after a
// dropped connection.
const DefaultDialTimeout = 5 * time.Second

var (
	ErrNoURL          = errors.New("valkey.Config: no URL defined")
	ErrBadURL         = errors.New("valkey.Config: URL is invalid")
	ErrBadDialTimeout = errors.New("valkey.Config: dial_timeout must be a positive duration")
)

func init() {
	store.Register("valkey", Factory{})
}

// Factory connects to the server named by a policy file's store parameters.
type Factory struct{}

func parseConfig(data json.RawMessage) (*Config, *valkey.Options, error) {
	var config Config
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := config.Valid(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	opts, _ := valkey.ParseURL(config.URL)
	opts.DialTimeout = config.dialTimeout()

	return &config, opts, nil
}

// Build connects and pings the server so a wrong URL fails at startup.
func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	config, opts, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	rdb := valkey.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("can't ping valkey instance: %w", err)
	}

	return &Store{
		rdb:    rdb,
		prefix: config.KeyPrefix,
	}, nil
}

func (Factory) Valid(data json.RawMessage) error {
	_, _, err := parseConfig(data)
	return err
}

// Config is the valkey store section of the policy file.
type Config struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string `json:"url"`

	// KeyPrefix is prepended to every key, letting several deployments share
	// one server without reading each other's challenges.
	KeyPrefix string `json:"key_prefix,omitempty"`

	DialTimeout string `json:"dial_timeout,omitempty"`
}

func (c Config) dialTimeout() time.Duration {
	if d, err := time.ParseDuration(c.DialTimeout); err == nil && d > 0 {
		return d
	}
	return DefaultDialTimeout
}

func (c Config) Valid() error {
	var errs []error

	if c.URL == "" {
		errs = append(errs, ErrNoURL)
	} else if _, err := valkey.ParseURL(c.URL); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrBadURL, err))
	}

	if c.DialTimeout != "" {
		if d, err := time.ParseDuration(c.DialTimeout); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%w: %q", ErrBadDialTimeout, c.DialTimeout))
		}
	}

	if len(errs) != 0 {
		return fmt.Errorf("valkey.Config: invalid config: %w", errors.Join(errs...))
	}

	return nil
}
