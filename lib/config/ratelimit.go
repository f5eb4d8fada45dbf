package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

var (
	ErrInvalidRateLimit         = errors.New("config.RateLimit: invalid rate limit configuration")
	ErrRateLimitWindowNoParse   = errors.New("config.RateLimit: window does not parse as a Duration, see https://pkg.go.dev/time#ParseDuration (formatted like 5m -> 5 minutes, 2h -> 2 hours, etc)")
	ErrRateLimitNegativePermits = errors.New("config.RateLimit: permits must not be negative")
	ErrInvalidCIDR              = errors.New("config.RateLimit: invalid CIDR")
)

type rateLimitFileConfig struct {
	Permits    int      `json:"permits"`
	Window     string   `json:"window"`
	Exemptions []string `json:"exemptions,omitempty"`
}

// RateLimit bounds how many challenges one client address may request in a
// window. Permits == 0 disables rate limiting.
type RateLimit struct {
	Permits    int
	Window     time.Duration
	Exemptions []netip.Prefix
}

func (rl RateLimit) Enabled() bool {
	return rl.Permits > 0
}

func (rl *rateLimitFileConfig) Valid() error {
	var errs []error

	if rl.Permits < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrRateLimitNegativePermits, rl.Permits))
	}

	if rl.Permits > 0 {
		if d, err := time.ParseDuration(rl.Window); err != nil {
			errs = append(errs, fmt.Errorf("%w: ParseDuration(%q) returned: %w", ErrRateLimitWindowNoParse, rl.Window, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("%w: %q is not positive", ErrRateLimitWindowNoParse, rl.Window))
		}
	}

	for _, cidr := range rl.Exemptions {
		if _, err := parsePrefix(cidr); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %w", ErrInvalidCIDR, cidr, err))
		}
	}

	if len(errs) != 0 {
		return errors.Join(ErrInvalidRateLimit, errors.Join(errs...))
	}

	return nil
}

func (rl *rateLimitFileConfig) parse() RateLimit {
	result := RateLimit{Permits: rl.Permits}
	result.Window, _ = time.ParseDuration(rl.Window)

	for _, cidr := range rl.Exemptions {
		pfx, _ := parsePrefix(cidr)
		result.Exemptions = append(result.Exemptions, pfx)
	}

	return result
}

// parsePrefix accepts bare addresses as single host prefixes.
func parsePrefix(s string) (netip.Prefix, error) {
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}

	pfx, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return pfx.Masked(), nil
}
