// Package lib is the numcaptcha HTTP service: it issues challenges, serves
// their images and widgets, and validates answers for protected handlers.
package lib

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/TecharoHQ/numcaptcha/internal"
	"github.com/TecharoHQ/numcaptcha/internal/ratelimit"
	"github.com/TecharoHQ/numcaptcha/lib/challenge"
	"github.com/TecharoHQ/numcaptcha/lib/config"
	"github.com/TecharoHQ/numcaptcha/lib/crypter"
	"github.com/TecharoHQ/numcaptcha/lib/draw"
	"github.com/TecharoHQ/numcaptcha/lib/localization"
	"github.com/TecharoHQ/numcaptcha/lib/serialization"
	"github.com/TecharoHQ/numcaptcha/lib/store"
)

var (
	imagesRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numcaptcha_images_rendered",
		Help: "The total number of challenge images requested, by outcome",
	}, []string{"result"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numcaptcha_rate_limited_total",
		Help: "The total number of issue requests refused by the rate limiter",
	})

	requestsProxied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numcaptcha_proxied_requests_total",
		Help: "Number of requests proxied through numcaptcha to upstream targets",
	}, []string{"host"})
)

type Server struct {
	next       http.Handler
	mux        *http.ServeMux
	opts       Options
	cfg        *config.Config
	crypter    *crypter.Provider
	store      store.Interface
	serializer serialization.Provider
	drawer     *draw.Drawer
	issuer     *challenge.Issuer
	validator  *challenge.Validator
	limiter    *ratelimit.Limiter
	apiPrefix  string
}

// Config returns the policy the server runs with.
func (s *Server) Config() *config.Config {
	return s.cfg
}

// Issuer returns the challenge issuer, for embedding applications that
// render challenges themselves.
func (s *Server) Issuer() *challenge.Issuer {
	return s.issuer
}

// Validator returns the challenge validator.
func (s *Server) Validator() *challenge.Validator {
	return s.validator
}

// Validate checks the challenge fields posted with r. Requests that
// validate_when does not select are accepted as skipped.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) challenge.Result {
	res := s.validator.Validate(w, r, nil)
	if !res.Valid {
		internal.GetRequestLogger(r).Debug("challenge validation failed", "result", res)
	}
	return res
}

// HasValidEntry reports whether r carries a correctly solved, unexpired,
// unused challenge. The challenge is consumed either way.
func (s *Server) HasValidEntry(w http.ResponseWriter, r *http.Request) bool {
	return s.validator.Check(w, r, nil).Valid
}

// Protect validates requests selected by validate_when and stores the
// result in the request context before calling next. It never rejects a
// failed validation: next decides what to do with
// challenge.ResultFromContext, typically showing the public reason next to
// the form field. next receives the request body unread.
func (s *Server) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, ok := s.bufferBody(w, r)
		if !ok {
			return
		}

		res := s.Validate(w, r)
		rewindBody(r, buf)
		next.ServeHTTP(w, r.WithContext(challenge.WithResult(r.Context(), res)))
	})
}

// ProtectStrict is Protect that answers failed validations with 403.
func (s *Server) ProtectStrict(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, ok := s.bufferBody(w, r)
		if !ok {
			return
		}

		res := s.Validate(w, r)
		if !res.Valid {
			msg := res.PublicReason()
			if msg == "" {
				msg = localization.GetLocalizer(r).T("forbidden")
			}
			s.respondWithStatus(w, r, msg, http.StatusForbidden)
			return
		}

		rewindBody(r, buf)
		next.ServeHTTP(w, r.WithContext(challenge.WithResult(r.Context(), res)))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
