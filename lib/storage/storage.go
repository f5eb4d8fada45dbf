// Package storage binds a challenge token to its expected answer for a
// limited time. Values are encrypted together with a salt derived from the
// request, so a value lifted from one client does not validate for another.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TecharoHQ/numcaptcha/lib/crypter"
	"github.com/TecharoHQ/numcaptcha/lib/store"
	"github.com/TecharoHQ/numcaptcha/lib/store/memory"
)

var (
	ErrUnknownKind = errors.New("storage: unknown backend kind")
	ErrNoStore     = errors.New("storage: backend needs a store")
	ErrNoCrypter   = errors.New("storage: crypter is required")
)

// Provider keeps challenge answers between issuing and validation.
type Provider interface {
	// Add binds value to token until the TTL runs out.
	Add(w http.ResponseWriter, r *http.Request, token, value string) error

	// Contains reports whether token currently has a value.
	Contains(w http.ResponseWriter, r *http.Request, token string) bool

	// GetValue returns the value bound to token and removes it. A value
	// that can't be decrypted or was salted for another client is reported
	// as missing.
	GetValue(w http.ResponseWriter, r *http.Request, token string) (string, bool)

	// Remove drops token without reading it.
	Remove(w http.ResponseWriter, r *http.Request, token string)
}

// Kind names a storage backend in configuration.
type Kind string

const (
	KindCookie      Kind = "cookie"
	KindSession     Kind = "session"
	KindMemory      Kind = "memory"
	KindDistributed Kind = "distributed"
)

// Kinds returns every supported Kind.
func Kinds() []Kind {
	return []Kind{KindCookie, KindSession, KindMemory, KindDistributed}
}

func (k Kind) Valid() error {
	switch k {
	case KindCookie, KindSession, KindMemory, KindDistributed:
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}

// NeedsStore reports whether the backend keeps values in a store.Interface.
func (k Kind) NeedsStore() bool {
	return k == KindSession || k == KindDistributed
}

const (
	// DefaultMaxEntries bounds the memory backend and the cookie tombstones.
	DefaultMaxEntries = 100_000

	// DefaultSessionTTL is the lifetime of a session id cookie.
	DefaultSessionTTL = 24 * time.Hour
)

// Options configure New.
type Options struct {
	Crypter *crypter.Provider
	TTL     time.Duration

	// Namespace is mixed into the salt. Use a different one per deployment
	// sharing a key.
	Namespace string

	Cookie CookieOptions

	// Store backs the session and distributed backends.
	Store store.Interface

	// MaxEntries bounds the memory backend and the cookie backend's replay
	// tombstones. Zero means DefaultMaxEntries.
	MaxEntries int

	// SessionTTL is the lifetime of the session backend's id cookie.
	SessionTTL time.Duration
}

// New builds the backend named by kind. ctx bounds background cleanup
// goroutines of in-process state.
func New(ctx context.Context, kind Kind, opts Options) (Provider, error) {
	if err := kind.Valid(); err != nil {
		return nil, err
	}

	if opts.Crypter == nil {
		return nil, ErrNoCrypter
	}

	if kind.NeedsStore() && opts.Store == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoStore, kind)
	}

	if opts.MaxEntries == 0 {
		opts.MaxEntries = DefaultMaxEntries
	}

	if opts.SessionTTL == 0 {
		opts.SessionTTL = DefaultSessionTTL
	}

	s := newSealer(opts.Crypter, opts.Namespace)

	switch kind {
	case KindCookie:
		return newCookie(ctx, s, opts), nil
	case KindSession:
		return newSession(s, opts), nil
	case KindMemory:
		return newStore(s, memory.NewBounded(ctx, opts.MaxEntries), opts.TTL), nil
	default:
		return newStore(s, opts.Store, opts.TTL), nil
	}
}

// sealer encrypts values together with a per-request salt.
type sealer struct {
	crypter   *crypter.Provider
	namespace string
	now       func() time.Time
}

func newSealer(c *crypter.Provider, namespace string) *sealer {
	return &sealer{
		crypter:   c,
		namespace: namespace,
		now:       time.Now,
	}
}

const dayStamp = "2006-01-02"

// salt is Hash(day :: namespace :: user agent) for the UTC day of t.
func (s *sealer) salt(r *http.Request, t time.Time) string {
	result, _ := s.crypter.Hash(t.UTC().Format(dayStamp) + "::" + s.namespace + "::" + r.UserAgent())
	return result
}

func (s *sealer) seal(r *http.Request, value string) (string, error) {
	return s.crypter.Encrypt(value + s.salt(r, s.now()))
}

// open accepts values salted today or yesterday, so a challenge issued just
// before midnight UTC still validates within its TTL.
func (s *sealer) open(r *http.Request, sealed string) (string, bool) {
	plain, err := s.crypter.Decrypt(sealed)
	if err != nil {
		return "", false
	}

	now := s.now()
	for _, day := range []time.Time{now, now.Add(-24 * time.Hour)} {
		if value, ok := strings.CutSuffix(plain, s.salt(r, day)); ok {
			return value, true
		}
	}

	return "", false
}
