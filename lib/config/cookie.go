package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TecharoHQ/numcaptcha"
	"github.com/TecharoHQ/numcaptcha/lib/storage"
)

var ErrUnknownSameSite = errors.New("config.Cookie: same_site must be one of lax, strict, none or default")

type cookieFileConfig struct {
	Prefix        string `json:"prefix,omitempty"`
	SessionName   string `json:"session_name,omitempty"`
	Domain        string `json:"domain,omitempty"`
	DynamicDomain bool   `json:"dynamic_domain,omitempty"`
	Path          string `json:"path,omitempty"`
	Partitioned   bool   `json:"partitioned,omitempty"`
	SameSite      string `json:"same_site,omitempty"`
	Secure        bool   `json:"secure,omitempty"`
}

func (c *cookieFileConfig) Valid() error {
	switch strings.ToLower(c.SameSite) {
	case "", "lax", "strict", "none", "default":
	default:
		return fmt.Errorf("%w, got %q", ErrUnknownSameSite, c.SameSite)
	}

	return nil
}

func (c *cookieFileConfig) parse() storage.CookieOptions {
	result := storage.CookieOptions{
		Prefix:        c.Prefix,
		SessionName:   c.SessionName,
		Domain:        c.Domain,
		DynamicDomain: c.DynamicDomain,
		Path:          c.Path,
		Partitioned:   c.Partitioned,
		SameSite:      storage.ParseSameSite(strings.ToLower(c.SameSite)),
		Secure:        c.Secure,
	}

	if result.Prefix == "" {
		result.Prefix = numcaptcha.CookiePrefix + "-"
	}

	if result.SessionName == "" {
		result.SessionName = numcaptcha.SessionCookieName
	}

	return result
}
