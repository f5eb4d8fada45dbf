package storage

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/TecharoHQ/numcaptcha"
	"github.com/TecharoHQ/numcaptcha/internal"
	"github.com/TecharoHQ/numcaptcha/lib/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidSession = errors.New("storage: invalid session cookie")

// Session keeps values in a store under a session id. The id travels in a
// cookie as an HS512 signed JWT so clients can't pick ids of other sessions.
type Session struct {
	sealer     *sealer
	store      store.Interface
	opts       CookieOptions
	ttl        time.Duration
	sessionTTL time.Duration
	key        []byte
}

func newSession(s *sealer, opts Options) *Session {
	return &Session{
		sealer:     s,
		store:      opts.Store,
		opts:       opts.Cookie,
		ttl:        opts.TTL,
		sessionTTL: opts.SessionTTL,
		key:        opts.Crypter.DeriveKey("session"),
	}
}

func (s *Session) cookieName() string {
	if s.opts.SessionName == "" {
		return numcaptcha.SessionCookieName
	}
	return s.opts.SessionName
}

func sessionKey(sid, token string) string {
	return "session:" + sid + ":" + token
}

func (s *Session) sign(sid string) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sid": sid,
		"iat": now.Unix(),
		"exp": now.Add(s.sessionTTL).Unix(),
	}).SignedString(s.key)
}

func (s *Session) parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithExpirationRequired(), jwt.WithStrictDecoding(), jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: wrong claims type", ErrInvalidSession)
	}

	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", fmt.Errorf("%w: sid claim is not a string", ErrInvalidSession)
	}

	return sid, nil
}

// sessionID returns the id from the request cookie. A session started
// earlier in the same response is found through its Set-Cookie header.
func (s *Session) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if w != nil {
		for _, line := range w.Header().Values("Set-Cookie") {
			ckie, err := http.ParseSetCookie(line)
			if err != nil || ckie.Name != s.cookieName() || ckie.Value == "" {
				continue
			}
			if sid, err := s.parse(ckie.Value); err == nil {
				return sid, true
			}
		}
	}

	ckie, err := r.Cookie(s.cookieName())
	if err != nil {
		return "", false
	}

	sid, err := s.parse(ckie.Value)
	if err != nil {
		internal.GetRequestLogger(r).Debug("ignoring session cookie", "err", err)
		return "", false
	}

	return sid, true
}

func (s *Session) Add(w http.ResponseWriter, r *http.Request, token, value string) error {
	sid, ok := s.sessionID(w, r)
	if !ok {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("storage: can't generate session id: %w", err)
		}
		sid = id.String()

		signed, err := s.sign(sid)
		if err != nil {
			return fmt.Errorf("storage: can't sign session id: %w", err)
		}

		s.opts.set(w, r, s.cookieName(), signed, s.sessionTTL)
	}

	return addSealed(r.Context(), s.sealer, s.store, r, sessionKey(sid, token), value, s.ttl)
}

func (s *Session) Contains(w http.ResponseWriter, r *http.Request, token string) bool {
	sid, ok := s.sessionID(w, r)
	if !ok {
		return false
	}

	_, err := s.store.Get(r.Context(), sessionKey(sid, token))
	return err == nil
}

func (s *Session) GetValue(w http.ResponseWriter, r *http.Request, token string) (string, bool) {
	sid, ok := s.sessionID(w, r)
	if !ok {
		return "", false
	}

	return takeSealed(r.Context(), s.sealer, s.store, r, sessionKey(sid, token))
}

func (s *Session) Remove(w http.ResponseWriter, r *http.Request, token string) {
	sid, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	removeKey(r.Context(), s.store, r, sessionKey(sid, token))
}
