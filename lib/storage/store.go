package storage

import (
	"context"
	"net/http"
	"time"

	"github.com/TecharoHQ/numcaptcha/internal"
	"github.com/TecharoHQ/numcaptcha/lib/store"
)

// keyPrefix namespaces challenge values inside a shared store.
const keyPrefix = "captcha:"

// Store keeps sealed values in a store.Interface. The memory backend uses a
// bounded in-process store, the distributed backend the configured one.
type Store struct {
	sealer *sealer
	store  store.Interface
	ttl    time.Duration
}

func newStore(s *sealer, st store.Interface, ttl time.Duration) *Store {
	return &Store{
		sealer: s,
		store:  st,
		ttl:    ttl,
	}
}

func (s *Store) Add(_ http.ResponseWriter, r *http.Request, token, value string) error {
	return addSealed(r.Context(), s.sealer, s.store, r, keyPrefix+token, value, s.ttl)
}

func (s *Store) Contains(_ http.ResponseWriter, r *http.Request, token string) bool {
	_, err := s.store.Get(r.Context(), keyPrefix+token)
	return err == nil
}

func (s *Store) GetValue(_ http.ResponseWriter, r *http.Request, token string) (string, bool) {
	return takeSealed(r.Context(), s.sealer, s.store, r, keyPrefix+token)
}

func (s *Store) Remove(_ http.ResponseWriter, r *http.Request, token string) {
	removeKey(r.Context(), s.store, r, keyPrefix+token)
}

func addSealed(ctx context.Context, s *sealer, st store.Interface, r *http.Request, key, value string, ttl time.Duration) error {
	sealed, err := s.seal(r, value)
	if err != nil {
		return err
	}

	return st.Set(ctx, key, []byte(sealed), ttl)
}

func takeSealed(ctx context.Context, s *sealer, st store.Interface, r *http.Request, key string) (string, bool) {
	lg := internal.GetRequestLogger(r)

	data, err := store.Take(ctx, st, key)
	if err != nil {
		lg.Debug("challenge value not in store", "key", key, "err", err)
		return "", false
	}

	value, ok := s.open(r, string(data))
	if !ok {
		lg.Debug("challenge value does not decrypt for this client", "key", key)
	}

	return value, ok
}

func removeKey(ctx context.Context, st store.Interface, r *http.Request, key string) {
	if err := st.Delete(ctx, key); err != nil {
		internal.GetRequestLogger(r).Debug("can't remove challenge value", "key", key, "err", err)
	}
}
