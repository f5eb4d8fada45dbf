package storage

import (
	"net/http"
	"regexp"
	"time"

	"golang.org/x/net/publicsuffix"
)

var domainMatchRegexp = regexp.MustCompile(`^((xn--)?[a-z0-9]+(-[a-z0-9]+)*\.)+[a-z]{2,}$`)

// CookieOptions control the cookies written by the cookie and session
// backends.
type CookieOptions struct {
	// Prefix is prepended to the challenge token to name cookie backend cookies.
	Prefix string

	// SessionName names the session backend's id cookie.
	SessionName string

	Domain        string
	DynamicDomain bool
	Path          string
	Partitioned   bool
	SameSite      http.SameSite

	// Secure forces the Secure attribute. It is set on TLS requests anyway.
	Secure bool
}

func (c CookieOptions) domain(host string) string {
	if c.DynamicDomain && domainMatchRegexp.MatchString(host) {
		if etld, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			return etld
		}
	}

	return c.Domain
}

func (c CookieOptions) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

func (c CookieOptions) sameSite() http.SameSite {
	if c.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return c.SameSite
}

func (c CookieOptions) set(w http.ResponseWriter, r *http.Request, name, value string, expiry time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:        name,
		Value:       value,
		Expires:     time.Now().Add(expiry),
		HttpOnly:    true,
		SameSite:    c.sameSite(),
		Domain:      c.domain(r.Host),
		Secure:      c.Secure || r.TLS != nil,
		Partitioned: c.Partitioned,
		Path:        c.path(),
	})
}

func (c CookieOptions) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:        name,
		Value:       "",
		MaxAge:      -1,
		Expires:     time.Now().Add(-1 * time.Minute),
		HttpOnly:    true,
		SameSite:    c.sameSite(),
		Domain:      c.domain(r.Host),
		Secure:      c.Secure || r.TLS != nil,
		Partitioned: c.Partitioned,
		Path:        c.path(),
	})
}

// ParseSameSite maps a configuration string to an http.SameSite value.
// Unknown values map to Lax.
func ParseSameSite(s string) http.SameSite {
	switch s {
	case "none", "None":
		return http.SameSiteNoneMode
	case "strict", "Strict":
		return http.SameSiteStrictMode
	case "default", "Default":
		return http.SameSiteDefaultMode
	}

	return http.SameSiteLaxMode
}
