package lib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/TecharoHQ/numcaptcha"
	"github.com/TecharoHQ/numcaptcha/data"
	"github.com/TecharoHQ/numcaptcha/internal"
	"github.com/TecharoHQ/numcaptcha/internal/random"
	"github.com/TecharoHQ/numcaptcha/internal/ratelimit"
	"github.com/TecharoHQ/numcaptcha/lib/challenge"
	"github.com/TecharoHQ/numcaptcha/lib/config"
	"github.com/TecharoHQ/numcaptcha/lib/crypter"
	"github.com/TecharoHQ/numcaptcha/lib/display"
	"github.com/TecharoHQ/numcaptcha/lib/draw"
	"github.com/TecharoHQ/numcaptcha/lib/serialization"
	"github.com/TecharoHQ/numcaptcha/lib/storage"
	"github.com/TecharoHQ/numcaptcha/lib/store"
)

type Options struct {
	// Next, if set, is served for every path outside the API, behind
	// ProtectStrict.
	Next http.Handler

	Config *config.Config

	BasePrefix      string
	StripBasePrefix bool

	// Store overrides the store built from Config.Store.
	Store store.Interface

	// Fonts overrides the font cache. Config.Fonts are registered in it.
	Fonts *draw.FontCache
}

// LoadConfigOrDefault loads the policy file at fname, or the embedded
// default when fname is empty.
func LoadConfigOrDefault(fname string) (*config.Config, error) {
	var fin io.ReadCloser
	var err error

	if fname != "" {
		fin, err = os.Open(fname)
		if err != nil {
			return nil, fmt.Errorf("can't parse policy file %s: %w", fname, err)
		}
	} else {
		fname = "(data)/" + data.DefaultConfigName
		fin, err = data.Config.Open(data.DefaultConfigName)
		if err != nil {
			return nil, fmt.Errorf("[unexpected] can't parse builtin policy file %s: %w", fname, err)
		}
	}

	defer func(fin io.ReadCloser) {
		err := fin.Close()
		if err != nil {
			slog.Error("failed to close policy file", "file", fname, "err", err)
		}
	}(fin)

	cfg, err := config.Load(fin, fname)
	if err != nil {
		return nil, fmt.Errorf("can't parse policy file %s: %w", fname, err)
	}

	return cfg, nil
}

// New builds a Server. ctx bounds the background cleanup goroutines of
// in-process stores.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Config == nil {
		cfg, err := LoadConfigOrDefault("")
		if err != nil {
			return nil, err
		}
		opts.Config = cfg
	}
	cfg := opts.Config

	numcaptcha.BasePrefix = opts.BasePrefix

	c, err := crypter.New(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("lib: can't create crypter: %w", err)
	}

	st := opts.Store
	if st == nil {
		fac, params, err := cfg.Store.Factory()
		if err != nil {
			return nil, err
		}

		st, err = fac.Build(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("lib: can't build %s store: %w", cfg.Store.Backend, err)
		}
	}

	fonts := opts.Fonts
	if fonts == nil {
		fonts = draw.NewFontCache(draw.DefaultFontCacheSize)
	}

	var errs []error
	for _, f := range cfg.Fonts {
		if err := fonts.Register(f.Name, f.Path); err != nil {
			errs = append(errs, err)
		}
	}

	drawer := draw.NewDrawer(fonts)
	if err := drawer.CheckFonts(cfg.Style.Fonts...); err != nil {
		errs = append(errs, err)
	}

	if len(errs) != 0 {
		return nil, fmt.Errorf("lib: can't load fonts: %w", errors.Join(errs...))
	}

	sp, err := storage.New(ctx, cfg.Storage, storage.Options{
		Crypter:    c,
		TTL:        cfg.TTL,
		Namespace:  numcaptcha.CookiePrefix,
		Cookie:     cfg.Cookie,
		Store:      st,
		MaxEntries: cfg.MaxEntries,
		SessionTTL: cfg.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("lib: can't create %s storage: %w", cfg.Storage, err)
	}

	ser, err := serialization.New(serialization.Options{
		Kind:      cfg.Serialization,
		Store:     st,
		Crypter:   c,
		TTL:       cfg.TTL,
		StoreName: cfg.Store.Backend,
	})
	if err != nil {
		return nil, fmt.Errorf("lib: can't create %s serializer: %w", cfg.Serialization, err)
	}

	rng := random.New()
	apiPrefix := strings.TrimSuffix(numcaptcha.BasePrefix, "/") + numcaptcha.APIPrefix

	iss, err := challenge.NewIssuer(challenge.IssuerOptions{
		Random:       rng,
		Renderer:     display.NewRenderer(rng, cfg.ThousandsSeparator),
		Crypter:      c,
		Storage:      sp,
		Serializer:   ser,
		ImagePath:    apiPrefix + "image",
		AllowedModes: cfg.Modes,
	})
	if err != nil {
		return nil, err
	}

	when, err := cfg.Checker()
	if err != nil {
		return nil, fmt.Errorf("lib: can't compile validate_when: %w", err)
	}

	val, err := challenge.NewValidator(challenge.ValidatorOptions{
		Crypter: c,
		Storage: sp,
		When:    when,
		Fields:  cfg.Fields,
	})
	if err != nil {
		return nil, err
	}

	result := &Server{
		next:       opts.Next,
		opts:       opts,
		cfg:        cfg,
		crypter:    c,
		store:      st,
		serializer: ser,
		drawer:     drawer,
		issuer:     iss,
		validator:  val,
		apiPrefix:  apiPrefix,
	}

	if cfg.RateLimit.Enabled() {
		result.limiter = ratelimit.New(cfg.RateLimit.Permits, cfg.RateLimit.Window, cfg.RateLimit.Exemptions)
		go result.limiter.CleanupLoop(ctx, cfg.RateLimit.Window)
	}

	mux := http.NewServeMux()

	// Helper to add global prefix
	registerWithPrefix := func(pattern string, handler http.Handler, method string) {
		if method != "" {
			method = method + " " // methods must end with a space to register with them
		}

		// Ensure there's no double slash when concatenating BasePrefix and pattern
		basePrefix := strings.TrimSuffix(numcaptcha.BasePrefix, "/")
		prefix := method + basePrefix

		// If pattern doesn't start with a slash, add one
		if !strings.HasPrefix(pattern, "/") {
			pattern = "/" + pattern
		}

		mux.Handle(prefix+pattern, handler)
	}

	noStore := func(h http.HandlerFunc) http.Handler {
		return internal.NoStoreCache(h)
	}

	registerWithPrefix(numcaptcha.APIPrefix+"issue", noStore(result.IssueChallenge), "GET")
	registerWithPrefix(numcaptcha.APIPrefix+"issue", noStore(result.IssueChallenge), "POST")
	registerWithPrefix(numcaptcha.APIPrefix+"image", noStore(result.RenderImage), "GET")
	registerWithPrefix(numcaptcha.APIPrefix+"widget", internal.GzipMiddleware(1, noStore(result.RenderWidget)), "GET")
	registerWithPrefix(numcaptcha.APIPrefix+"verify", noStore(result.Verify), "POST")

	if opts.Next != nil {
		registerWithPrefix("/", result.ProtectStrict(http.HandlerFunc(result.ServeHTTPNext)), "")
	}

	result.mux = mux

	return result, nil
}
