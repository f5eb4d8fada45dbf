// Package serialization turns image render parameters into an opaque token
// and back. The token travels in the image URL.
package serialization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/TecharoHQ/numcaptcha/internal"
	"github.com/TecharoHQ/numcaptcha/lib/crypter"
	"github.com/TecharoHQ/numcaptcha/lib/store"
)

var (
	ErrNotFound    = errors.New("serialization: token expired or never existed")
	ErrCantDecode  = errors.New("serialization: can't decode data")
	ErrCantEncode  = errors.New("serialization: can't encode data")
	ErrUnknownKind = errors.New("serialization: unknown backend kind")
)

// Kind names a serialization backend in configuration.
type Kind string

const (
	// KindCache keeps the data in a store. Tokens are single use.
	KindCache Kind = "cache"

	// KindEncrypted puts the encrypted data in the token itself. Tokens work
	// on every instance sharing the key but can be replayed until the key
	// changes.
	KindEncrypted Kind = "encrypted"
)

func (k Kind) Valid() error {
	switch k {
	case KindCache, KindEncrypted:
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}

// Provider serializes values to tokens.
type Provider interface {
	Serialize(ctx context.Context, data any) (string, error)
	Deserialize(ctx context.Context, token string, out any) error
}

// Options configure New.
type Options struct {
	Kind    Kind
	Store   store.Interface
	Crypter *crypter.Provider
	TTL     time.Duration

	// StoreName is the configured store backend, used in log messages.
	StoreName string
}

// New creates the Provider named by opts.Kind.
func New(opts Options) (Provider, error) {
	if err := opts.Kind.Valid(); err != nil {
		return nil, err
	}

	switch opts.Kind {
	case KindCache:
		if opts.Store == nil {
			return nil, fmt.Errorf("serialization: %s backend needs a store", opts.Kind)
		}
		return &Cache{
			store:     opts.Store,
			ttl:       opts.TTL,
			storeName: opts.StoreName,
		}, nil
	default:
		if opts.Crypter == nil {
			return nil, fmt.Errorf("serialization: %s backend needs a crypter", opts.Kind)
		}
		return &Encrypted{crypter: opts.Crypter}, nil
	}
}

// Prefix is prepended to the keys written by Cache.
const Prefix = "serialization:"

// Cache stores JSON in a store keyed by its hash.
type Cache struct {
	store     store.Interface
	ttl       time.Duration
	storeName string
}

func (c *Cache) Serialize(ctx context.Context, data any) (string, error) {
	buf, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCantEncode, err)
	}

	token := internal.SHA256sum(Prefix, string(buf))

	if err := c.store.Set(ctx, Prefix+token, buf, c.ttl); err != nil {
		return "", fmt.Errorf("serialization: can't store data: %w", err)
	}

	return token, nil
}

func (c *Cache) Deserialize(ctx context.Context, token string, out any) error {
	buf, err := store.Take(ctx, c.store, Prefix+token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("serialized captcha parameters expired or never existed on this instance; when running more than one instance, use a shared store or the encrypted serialization backend",
				"store", c.storeName,
				"err", err,
			)
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return fmt.Errorf("serialization: can't load data: %w", err)
	}

	if err := json.Unmarshal(buf, out); err != nil {
		return fmt.Errorf("%w: %w", ErrCantDecode, err)
	}

	return nil
}

// Encrypted is a stateless Provider.
type Encrypted struct {
	crypter *crypter.Provider
}

func (e *Encrypted) Serialize(_ context.Context, data any) (string, error) {
	buf, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCantEncode, err)
	}

	token, err := e.crypter.Encrypt(string(buf))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCantEncode, err)
	}

	return token, nil
}

func (e *Encrypted) Deserialize(_ context.Context, token string, out any) error {
	buf, err := e.crypter.Decrypt(token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCantDecode, err)
	}

	if err := json.Unmarshal([]byte(buf), out); err != nil {
		return fmt.Errorf("%w: %w", ErrCantDecode, err)
	}

	return nil
}
