package main

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/TecharoHQ/numcaptcha"
	"github.com/TecharoHQ/numcaptcha/data"
	"github.com/TecharoHQ/numcaptcha/internal"
	libnumcaptcha "github.com/TecharoHQ/numcaptcha/lib"
	"github.com/facebookgo/flagenv"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	basePrefix               = flag.String("base-prefix", "", "base prefix (root URL) the application is served under e.g. /myapp")
	bind                     = flag.String("bind", ":8923", "network address to bind HTTP to")
	bindNetwork              = flag.String("bind-network", "tcp", "network family to bind HTTP to, e.g. unix, tcp")
	captchaKey               = flag.String("captcha-key", "", "secret challenge state is encrypted with, overrides the policy file's key")
	captchaKeyFile           = flag.String("captcha-key-file", "", "file name containing value for captcha-key")
	cookieDomain             = flag.String("cookie-domain", "", "if set, the domain numcaptcha cookies will be valid for")
	cookieDynamicDomain      = flag.Bool("cookie-dynamic-domain", false, "if set, automatically set the cookie Domain value based on the request domain")
	cookiePrefix             = flag.String("cookie-prefix", numcaptcha.CookiePrefix, "prefix for browser cookies created by numcaptcha")
	cookiePartitioned        = flag.Bool("cookie-partitioned", false, "if true, sets the partitioned flag on numcaptcha cookies, enabling CHIPS support")
	cookieSecure             = flag.Bool("cookie-secure", false, "if true, always sets the secure flag on numcaptcha cookies")
	debugMode                = flag.Bool("debug", false, "if true, show error details in image endpoint responses")
	forcedLanguage           = flag.String("forced-language", "", "if set, this language is being used instead of the one from the request's Accept-Language header")
	metricsBind              = flag.String("metrics-bind", ":9090", "network address to bind metrics to")
	metricsBindNetwork       = flag.String("metrics-bind-network", "tcp", "network family for the metrics server to bind to")
	socketMode               = flag.String("socket-mode", "0770", "socket mode (permissions) for unix domain sockets.")
	policyFname              = flag.String("policy-fname", "", "full path to numcaptcha policy document (defaults to a sensible built-in policy)")
	slogLevel                = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
	slogFormat               = flag.String("slog-format", "json", "log output format: json or text")
	stripBasePrefix          = flag.Bool("strip-base-prefix", false, "if true, strips the base prefix from requests forwarded to the target server")
	target                   = flag.String("target", "", "if set, target to reverse proxy to; form submissions selected by validate_when must carry a solved challenge")
	targetSNI                = flag.String("target-sni", "", "if set, the value of the TLS handshake hostname when forwarding requests to the target")
	targetHost               = flag.String("target-host", "", "if set, the value of the Host header when forwarding requests to the target")
	targetInsecureSkipVerify = flag.Bool("target-insecure-skip-verify", false, "if true, skips TLS validation for the backend")
	healthcheck              = flag.Bool("healthcheck", false, "run a health check against numcaptcha")
	useRemoteAddress         = flag.Bool("use-remote-address", false, "read the client's IP address from the network request, useful for debugging and running numcaptcha on bare metal")
	extractResources         = flag.String("extract-resources", "", "if set, extract the default policy file to the specified folder")
	versionFlag              = flag.Bool("version", false, "print numcaptcha version")
)

// doHealthCheck asks the metrics listener of a running instance whether it is
// up. Container images use it as their HEALTHCHECK.
func doHealthCheck() error {
	network, addr, err := splitBindAddress(*metricsBind)
	if err != nil {
		return err
	}
	if network != "tcp" {
		return fmt.Errorf("health checks need a tcp metrics listener, got %s", network)
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	resp, err := http.Get("http://" + addr + *basePrefix + "/metrics")
	if err != nil {
		return fmt.Errorf("failed to fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

func main() {
	flagenv.Parse()
	flag.Parse()

	if *versionFlag {
		fmt.Println("numcaptcha", numcaptcha.Version)
		return
	}

	internal.InitSlog(*slogLevel, *slogFormat)

	if *extractResources != "" {
		if err := extractEmbedFS(data.Config, ".", *extractResources); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Extracted embedded policy file to %s\n", *extractResources)
		return
	}

	if *healthcheck {
		if err := doHealthCheck(); err != nil {
			log.Fatal(err)
		}
		return
	}

	var next http.Handler
	// systemd can't set an environment variable to the empty string, only to a space
	if strings.TrimSpace(*target) != "" {
		rp, err := newReverseProxy(proxyOptions{
			target:             *target,
			sni:                *targetSNI,
			host:               *targetHost,
			insecureSkipVerify: *targetInsecureSkipVerify,
		})
		if err != nil {
			log.Fatalf("can't make reverse proxy: %v", err)
		}
		next = rp
	}

	if *cookieDomain != "" && *cookieDynamicDomain {
		log.Fatalf("you can't set COOKIE_DOMAIN and COOKIE_DYNAMIC_DOMAIN at the same time")
	}

	if *basePrefix != "" && !strings.HasPrefix(*basePrefix, "/") {
		log.Fatalf("[misconfiguration] base-prefix must start with a slash, eg: /%s", *basePrefix)
	} else if strings.HasSuffix(*basePrefix, "/") {
		log.Fatalf("[misconfiguration] base-prefix must not end with a slash")
	}
	if *stripBasePrefix && *basePrefix == "" {
		log.Fatalf("[misconfiguration] strip-base-prefix is set to true, but base-prefix is not set, " +
			"this may result in unexpected behavior")
	}

	if *captchaKey != "" && *captchaKeyFile != "" {
		log.Fatal("do not specify both CAPTCHA_KEY and CAPTCHA_KEY_FILE")
	}

	numcaptcha.CookiePrefix = *cookiePrefix
	numcaptcha.SessionCookieName = *cookiePrefix + "-session"
	numcaptcha.ForcedLanguage = *forcedLanguage

	cfg, err := libnumcaptcha.LoadConfigOrDefault(*policyFname)
	if err != nil {
		log.Fatalf("can't parse policy file: %v", err)
	}

	switch {
	case *captchaKey != "":
		cfg.Key = *captchaKey
	case *captchaKeyFile != "":
		keyFile, err := os.ReadFile(*captchaKeyFile)
		if err != nil {
			log.Fatalf("failed to read CAPTCHA_KEY_FILE %s: %v", *captchaKeyFile, err)
		}
		cfg.Key = string(bytes.TrimSpace(keyFile))
	}

	// Flags only widen what the policy file sets.
	if *cookieDomain != "" {
		cfg.Cookie.Domain = *cookieDomain
	}
	cfg.Cookie.DynamicDomain = cfg.Cookie.DynamicDomain || *cookieDynamicDomain
	cfg.Cookie.Partitioned = cfg.Cookie.Partitioned || *cookiePartitioned
	cfg.Cookie.Secure = cfg.Cookie.Secure || *cookieSecure
	cfg.Debug = cfg.Debug || *debugMode

	// install signal handler
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := libnumcaptcha.New(ctx, libnumcaptcha.Options{
		BasePrefix:      *basePrefix,
		StripBasePrefix: *stripBasePrefix,
		Next:            next,
		Config:          cfg,
	})
	if err != nil {
		log.Fatalf("can't construct libnumcaptcha.Server: %v", err)
	}

	wg := new(sync.WaitGroup)

	if *metricsBind != "" {
		wg.Add(1)
		go metricsServer(ctx, wg.Done)
	}

	var h http.Handler
	h = s
	h = internal.RemoteXRealIP(*useRemoteAddress, *bindNetwork, h)
	h = internal.XForwardedForToXRealIP(h)

	srv := http.Server{Handler: h, ErrorLog: internal.GetFilteredHTTPLogger()}
	listener, listenerURL, err := listen(*bindNetwork, *bind, *socketMode)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info(
		"listening",
		"url", listenerURL,
		"target", *target,
		"version", numcaptcha.Version,
		"use-remote-address", *useRemoteAddress,
		"base-prefix", *basePrefix,
		"storage", cfg.Storage,
		"serialization", cfg.Serialization,
		"store", cfg.Store.Backend,
		"ttl", cfg.TTL,
		"rate-limit", cfg.RateLimit.Enabled(),
		"modes", cfg.Modes,
	)

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(c); err != nil {
			log.Printf("cannot shut down: %v", err)
		}
	}()

	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	wg.Wait()
}

func metricsServer(ctx context.Context, done func()) {
	defer done()

	mux := http.NewServeMux()
	mux.Handle(numcaptcha.BasePrefix+"/metrics", promhttp.Handler())

	srv := http.Server{Handler: mux, ErrorLog: internal.GetFilteredHTTPLogger()}
	listener, metricsURL, err := listen(*metricsBindNetwork, *metricsBind, *socketMode)
	if err != nil {
		log.Fatal(err)
	}
	slog.Debug("listening for metrics", "url", metricsURL)

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(c); err != nil {
			log.Printf("cannot shut down: %v", err)
		}
	}()

	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func extractEmbedFS(fsys embed.FS, root string, destDir string) error {
	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(destDir, relPath)

		if d.IsDir() {
			return os.MkdirAll(destPath, 0o700)
		}

		embeddedData, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}

		return os.WriteFile(destPath, embeddedData, 0o644)
	})
}
