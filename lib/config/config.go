// Package config loads numcaptcha's policy file.
//
// The file is YAML or JSON. It is decoded into an untyped file form with
// string durations, validated as a whole so that every problem is reported at
// once, and only then converted into a typed Config.
package config

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/TecharoHQ/numcaptcha"
	"github.com/TecharoHQ/numcaptcha/lib/challenge"
	"github.com/TecharoHQ/numcaptcha/lib/display"
	"github.com/TecharoHQ/numcaptcha/lib/draw"
	"github.com/TecharoHQ/numcaptcha/lib/expressions"
	"github.com/TecharoHQ/numcaptcha/lib/serialization"
	"github.com/TecharoHQ/numcaptcha/lib/storage"
	"github.com/TecharoHQ/numcaptcha/lib/words"
	"k8s.io/apimachinery/pkg/util/yaml"
)

var (
	ErrInvalidTTL           = errors.New("config: ttl does not parse as a positive Duration, see https://pkg.go.dev/time#ParseDuration (formatted like 5m -> 5 minutes, 2h -> 2 hours, etc)")
	ErrInvalidSessionTTL    = errors.New("config.Storage: session_ttl does not parse as a positive Duration")
	ErrInvalidRange         = errors.New("config: min must not be negative and max must not be less than min")
	ErrInvalidLanguage      = errors.New("config: unknown language")
	ErrInvalidMode          = errors.New("config: unknown display mode")
	ErrDefaultModeForbidden = errors.New("config: default_mode is not one of the allowed modes")
	ErrInvalidStorage       = errors.New("config.Storage: unknown storage backend")
	ErrInvalidMaxEntries    = errors.New("config.Storage: max_entries must not be negative")
	ErrInvalidSerialization = errors.New("config: unknown serialization backend")
	ErrEmptyFieldName       = errors.New("config.Fields: field names must not be empty")
	ErrDuplicateFieldName   = errors.New("config.Fields: field names must be distinct")
	ErrDuplicateFont        = errors.New("config.Font: font name is defined more than once")
)

type storageFileConfig struct {
	Backend    string `json:"backend"`
	MaxEntries int    `json:"max_entries,omitempty"`
	SessionTTL string `json:"session_ttl,omitempty"`
}

type fileConfig struct {
	Key                string              `json:"key,omitempty"`
	TTL                string              `json:"ttl"`
	Min                int                 `json:"min"`
	Max                int                 `json:"max"`
	Language           string              `json:"language"`
	Modes              []string            `json:"modes,omitempty"`
	DefaultMode        string              `json:"default_mode"`
	ThousandsSeparator bool                `json:"thousands_separator,omitempty"`
	Image              imageFileConfig     `json:"image"`
	Fonts              []Font              `json:"fonts,omitempty"`
	Storage            storageFileConfig   `json:"storage"`
	Serialization      string              `json:"serialization"`
	Store              *Store              `json:"store,omitempty"`
	Fields             challenge.Fields    `json:"fields"`
	Cookie             cookieFileConfig    `json:"cookie"`
	RateLimit          rateLimitFileConfig `json:"rate_limit"`
	ValidateWhen       *ExpressionOrList   `json:"validate_when,omitempty"`
	Debug              bool                `json:"debug,omitempty"`
}

func defaultFileConfig() *fileConfig {
	return &fileConfig{
		TTL:           numcaptcha.DefaultTTL.String(),
		Min:           numcaptcha.DefaultMin,
		Max:           numcaptcha.DefaultMax,
		Language:      words.English.String(),
		DefaultMode:   display.ShowDigits.String(),
		Storage:       storageFileConfig{Backend: string(storage.KindCookie)},
		Serialization: string(serialization.KindEncrypted),
		Fields:        challenge.DefaultFields(),
	}
}

func positiveDuration(s string) (time.Duration, bool) {
	d, err := time.ParseDuration(s)
	return d, err == nil && d > 0
}

func (c *fileConfig) modes() ([]display.Mode, error) {
	if len(c.Modes) == 0 {
		return display.Modes(), nil
	}

	var result []display.Mode
	for _, name := range c.Modes {
		m, err := display.ParseMode(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMode, err)
		}
		if !slices.Contains(result, m) {
			result = append(result, m)
		}
	}

	return result, nil
}

func (c *fileConfig) Valid() error {
	var errs []error

	if _, ok := positiveDuration(c.TTL); !ok {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTTL, c.TTL))
	}

	if c.Min < 0 || c.Max < c.Min {
		errs = append(errs, fmt.Errorf("%w: min=%d max=%d", ErrInvalidRange, c.Min, c.Max))
	}

	if _, err := words.ParseLanguage(c.Language); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidLanguage, err))
	}

	modes, err := c.modes()
	if err != nil {
		errs = append(errs, err)
	}

	if dm, err := display.ParseMode(c.DefaultMode); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidMode, err))
	} else if modes != nil && !slices.Contains(modes, dm) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrDefaultModeForbidden, dm))
	}

	if err := c.Image.Valid(); err != nil {
		errs = append(errs, err)
	}

	seen := map[string]bool{}
	for _, f := range c.Fonts {
		if err := f.Valid(); err != nil {
			errs = append(errs, err)
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateFont, f.Name))
		}
		seen[f.Name] = true
	}

	if err := storage.Kind(c.Storage.Backend).Valid(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidStorage, err))
	}

	if c.Storage.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidMaxEntries, c.Storage.MaxEntries))
	}

	if c.Storage.SessionTTL != "" {
		if _, ok := positiveDuration(c.Storage.SessionTTL); !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidSessionTTL, c.Storage.SessionTTL))
		}
	}

	if err := serialization.Kind(c.Serialization).Valid(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidSerialization, err))
	}

	if c.Store != nil {
		if err := c.Store.Valid(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := validFields(c.Fields); err != nil {
		errs = append(errs, err)
	}

	if err := c.Cookie.Valid(); err != nil {
		errs = append(errs, err)
	}

	if err := c.RateLimit.Valid(); err != nil {
		errs = append(errs, err)
	}

	if c.ValidateWhen != nil {
		if err := c.ValidateWhen.Valid(); err != nil {
			errs = append(errs, fmt.Errorf("config.ValidateWhen: %w", err))
		}
	}

	if len(errs) != 0 {
		return fmt.Errorf("config is not valid:\n%w", errors.Join(errs...))
	}

	return nil
}

func validFields(f challenge.Fields) error {
	names := []string{f.Answer, f.Input, f.Token}

	if slices.Contains(names, "") {
		return ErrEmptyFieldName
	}

	slices.Sort(names)
	if len(slices.Compact(names)) != 3 {
		return fmt.Errorf("%w: %+v", ErrDuplicateFieldName, f)
	}

	return nil
}

// Config is a validated policy file.
type Config struct {
	// Key is the secret challenge state is encrypted with. When empty a random
	// key is generated at startup.
	Key                string
	TTL                time.Duration
	Min                int
	Max                int
	Language           words.Language
	Modes              []display.Mode
	DefaultMode        display.Mode
	ThousandsSeparator bool
	Style              draw.Style
	Fonts              []Font
	Storage            storage.Kind
	MaxEntries         int
	SessionTTL         time.Duration
	Serialization      serialization.Kind
	Store              Store
	Fields             challenge.Fields
	Cookie             storage.CookieOptions
	RateLimit          RateLimit
	ValidateWhen       *ExpressionOrList
	Debug              bool
}

// Params returns the challenge parameters used when a request does not
// override them.
func (c *Config) Params() challenge.Params {
	return challenge.Params{
		Min:      c.Min,
		Max:      c.Max,
		Language: c.Language,
		Mode:     c.DefaultMode,
		Style:    c.Style,
	}
}

// Checker compiles the validate_when expression, falling back to
// expressions.DefaultValidateWhen.
func (c *Config) Checker() (*expressions.Checker, error) {
	if c.ValidateWhen == nil {
		return expressions.NewChecker(expressions.DefaultValidateWhen)
	}

	return c.ValidateWhen.Checker()
}

// Load reads and validates a policy file. fname is only used in error
// messages.
func Load(fin io.Reader, fname string) (*Config, error) {
	c := defaultFileConfig()

	if err := yaml.NewYAMLToJSONDecoder(fin).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't parse policy config YAML %s: %w", fname, err)
	}

	if err := c.Valid(); err != nil {
		return nil, fmt.Errorf("errors validating policy config %s: %w", fname, err)
	}

	result := &Config{
		Key:                c.Key,
		Min:                c.Min,
		Max:                c.Max,
		ThousandsSeparator: c.ThousandsSeparator,
		Fonts:              c.Fonts,
		Storage:            storage.Kind(c.Storage.Backend),
		MaxEntries:         c.Storage.MaxEntries,
		SessionTTL:         storage.DefaultSessionTTL,
		Serialization:      serialization.Kind(c.Serialization),
		Store:              DefaultStore(),
		Fields:             c.Fields,
		Cookie:             c.Cookie.parse(),
		RateLimit:          c.RateLimit.parse(),
		ValidateWhen:       c.ValidateWhen,
		Debug:              c.Debug,
	}

	// Everything below was checked by Valid.
	result.TTL, _ = positiveDuration(c.TTL)
	result.Language, _ = words.ParseLanguage(c.Language)
	result.Modes, _ = c.modes()
	result.DefaultMode, _ = display.ParseMode(c.DefaultMode)
	result.Style, _ = c.Image.style()

	if c.Storage.SessionTTL != "" {
		result.SessionTTL, _ = positiveDuration(c.Storage.SessionTTL)
	}

	if c.Store != nil {
		result.Store = *c.Store
	}

	if result.MaxEntries == 0 {
		result.MaxEntries = storage.DefaultMaxEntries
	}

	return result, nil
}
