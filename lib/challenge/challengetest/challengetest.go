// Package challengetest wires an Issuer and Validator to in-memory
// collaborators for tests.
package challengetest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TecharoHQ/numcaptcha"
	"github.com/TecharoHQ/numcaptcha/internal/random"
	"github.com/TecharoHQ/numcaptcha/lib/challenge"
	"github.com/TecharoHQ/numcaptcha/lib/crypter"
	"github.com/TecharoHQ/numcaptcha/lib/display"
	"github.com/TecharoHQ/numcaptcha/lib/draw"
	"github.com/TecharoHQ/numcaptcha/lib/serialization"
	"github.com/TecharoHQ/numcaptcha/lib/storage"
	"github.com/TecharoHQ/numcaptcha/lib/store/memory"
	"github.com/TecharoHQ/numcaptcha/lib/words"
)

// UserAgent is sent by requests made with Request.
const UserAgent = "challengetest/1.0"

// Harness is an Issuer and Validator sharing storage and a key.
type Harness struct {
	Crypter    *crypter.Provider
	Storage    storage.Provider
	Serializer serialization.Provider
	Issuer     *challenge.Issuer
	Validator  *challenge.Validator
}

// New builds a Harness on the given storage backend kind.
func New(t *testing.T, kind storage.Kind) *Harness {
	t.Helper()

	c, err := crypter.New("challengetest")
	if err != nil {
		t.Fatal(err)
	}

	st := memory.New(t.Context())

	sp, err := storage.New(t.Context(), kind, storage.Options{
		Crypter:   c,
		TTL:       numcaptcha.DefaultTTL,
		Namespace: "challengetest",
		Store:     st,
		Cookie:    storage.CookieOptions{Prefix: "ct-"},
	})
	if err != nil {
		t.Fatal(err)
	}

	ser, err := serialization.New(serialization.Options{
		Kind:    serialization.KindCache,
		Store:   st,
		TTL:     numcaptcha.DefaultTTL,
		Crypter: c,
	})
	if err != nil {
		t.Fatal(err)
	}

	rng := random.New()

	iss, err := challenge.NewIssuer(challenge.IssuerOptions{
		Random:     rng,
		Renderer:   display.NewRenderer(rng, true),
		Crypter:    c,
		Storage:    sp,
		Serializer: ser,
		ImagePath:  numcaptcha.APIPrefix + "image",
	})
	if err != nil {
		t.Fatal(err)
	}

	val, err := challenge.NewValidator(challenge.ValidatorOptions{
		Crypter: c,
		Storage: sp,
	})
	if err != nil {
		t.Fatal(err)
	}

	return &Harness{
		Crypter:    c,
		Storage:    sp,
		Serializer: ser,
		Issuer:     iss,
		Validator:  val,
	}
}

// Params returns valid issue parameters.
func Params(mode display.Mode, lang words.Language) challenge.Params {
	return challenge.Params{
		Min:      numcaptcha.DefaultMin,
		Max:      numcaptcha.DefaultMax,
		Language: lang,
		Mode:     mode,
		Style:    draw.DefaultStyle(),
	}
}

// Request builds a request from UserAgent carrying the given cookies.
func Request(t *testing.T, method string, cookies []*http.Cookie) *http.Request {
	t.Helper()

	r := httptest.NewRequestWithContext(t.Context(), method, "https://example.com/form", nil)
	r.Header.Set("User-Agent", UserAgent)
	for _, ckie := range cookies {
		r.AddCookie(&http.Cookie{Name: ckie.Name, Value: ckie.Value})
	}

	return r
}

// Issue issues a challenge and returns it with the cookies it set.
func (h *Harness) Issue(t *testing.T, p challenge.Params) (*challenge.Challenge, []*http.Cookie) {
	t.Helper()

	w := httptest.NewRecorder()
	chall, err := h.Issuer.Issue(w, Request(t, http.MethodGet, nil), p)
	if err != nil {
		t.Fatal(err)
	}

	var live []*http.Cookie
	for _, ckie := range w.Result().Cookies() {
		if ckie.MaxAge >= 0 && ckie.Expires.After(time.Now()) {
			live = append(live, ckie)
		}
	}

	return chall, live
}
