// Command numcaptcha-keygen writes a starter policy file with a freshly
// generated encryption key.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/TecharoHQ/numcaptcha"
	"github.com/TecharoHQ/numcaptcha/lib/display"
	"github.com/TecharoHQ/numcaptcha/lib/serialization"
	"github.com/TecharoHQ/numcaptcha/lib/storage"
	"sigs.k8s.io/yaml"
)

var (
	outputFile    = flag.String("output", "", "output file path (use - for stdout, defaults to stdout)")
	outputFormat  = flag.String("format", "yaml", "output format: yaml or json")
	keyBytes      = flag.Int("key-bytes", 32, "number of random bytes in the generated key")
	storageKind   = flag.String("storage", string(storage.KindCookie), "where challenge state lives: cookie, session, memory, distributed")
	serializeKind = flag.String("serialization", string(serialization.KindEncrypted), "how the answer travels: encrypted or cache")
	storeBackend  = flag.String("store", "memory", "store backend for server side state: memory, bbolt, valkey")
	bboltPath     = flag.String("bbolt-path", "/data/numcaptcha.bdb", "database path when -store=bbolt")
	valkeyURL     = flag.String("valkey-url", "redis://valkey:6379/0", "connection URL when -store=valkey")
	language      = flag.String("language", "en", "default puzzle language")
	helpFlag      = flag.Bool("help", false, "show help")
)

var (
	ErrKeyTooShort   = errors.New("keygen: key must be at least 16 bytes")
	ErrUnknownFormat = errors.New("keygen: unsupported output format")
	ErrUnknownStore  = errors.New("keygen: unknown store backend")
)

type storeConfig struct {
	Backend    string            `json:"backend"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type storageConfig struct {
	Backend string `json:"backend"`
}

// starterConfig is the subset of the policy file a new deployment usually
// wants to set. Everything else keeps its built-in default.
type starterConfig struct {
	Key           string        `json:"key"`
	TTL           string        `json:"ttl"`
	Min           int           `json:"min"`
	Max           int           `json:"max"`
	Language      string        `json:"language"`
	Modes         []string      `json:"modes"`
	DefaultMode   string        `json:"default_mode"`
	Storage       storageConfig `json:"storage"`
	Serialization string        `json:"serialization"`
	Store         storeConfig   `json:"store"`
}

type options struct {
	format        string
	keyBytes      int
	storage       string
	serialization string
	store         string
	bboltPath     string
	valkeyURL     string
	language      string
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s [options]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nExamples:")
		fmt.Fprintln(os.Stderr, "  # Cookie backed policy on stdout")
		fmt.Fprintln(os.Stderr, "  numcaptcha-keygen")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  # Shared state for several instances")
		fmt.Fprintln(os.Stderr, "  numcaptcha-keygen -storage distributed -store valkey -output policy.yaml")
		os.Exit(2)
	}
}

func main() {
	flag.Parse()

	if len(flag.Args()) > 0 || *helpFlag {
		flag.Usage()
	}

	opts := options{
		format:        *outputFormat,
		keyBytes:      *keyBytes,
		storage:       *storageKind,
		serialization: *serializeKind,
		store:         *storeBackend,
		bboltPath:     *bboltPath,
		valkeyURL:     *valkeyURL,
		language:      *language,
	}

	var out io.Writer = os.Stdout
	if *outputFile != "" && *outputFile != "-" {
		fout, err := os.OpenFile(*outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			log.Fatalf("failed to open output file: %v", err)
		}
		defer fout.Close()
		out = fout
	}

	if err := generate(out, rand.Reader, opts); err != nil {
		log.Fatal(err)
	}

	if out != os.Stdout {
		fmt.Fprintf(os.Stderr, "Generated numcaptcha policy written to %s\n", *outputFile)
	}
}

func newKey(entropy io.Reader, n int) (string, error) {
	if n < 16 {
		return "", fmt.Errorf("%w, got %d", ErrKeyTooShort, n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(entropy, buf); err != nil {
		return "", fmt.Errorf("keygen: can't read entropy: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

func starter(key string, opts options) (*starterConfig, error) {
	if err := storage.Kind(opts.storage).Valid(); err != nil {
		return nil, err
	}

	if err := serialization.Kind(opts.serialization).Valid(); err != nil {
		return nil, err
	}

	modes := make([]string, 0, len(display.Modes()))
	for _, m := range display.Modes() {
		modes = append(modes, m.String())
	}

	result := &starterConfig{
		Key:           key,
		TTL:           numcaptcha.DefaultTTL.String(),
		Min:           numcaptcha.DefaultMin,
		Max:           numcaptcha.DefaultMax,
		Language:      opts.language,
		Modes:         modes,
		DefaultMode:   display.ShowDigits.String(),
		Storage:       storageConfig{Backend: opts.storage},
		Serialization: opts.serialization,
		Store:         storeConfig{Backend: opts.store},
	}

	switch opts.store {
	case "memory":
	case "bbolt":
		result.Store.Parameters = map[string]string{"path": opts.bboltPath}
	case "valkey":
		result.Store.Parameters = map[string]string{"url": opts.valkeyURL}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, opts.store)
	}

	return result, nil
}

func generate(w io.Writer, entropy io.Reader, opts options) error {
	key, err := newKey(entropy, opts.keyBytes)
	if err != nil {
		return err
	}

	cfg, err := starter(key, opts)
	if err != nil {
		return err
	}

	var output []byte
	switch strings.ToLower(opts.format) {
	case "yaml":
		output, err = yaml.Marshal(cfg)
	case "json":
		output, err = json.MarshalIndent(cfg, "", "  ")
		output = append(output, '\n')
	default:
		return fmt.Errorf("%w: %s (use yaml or json)", ErrUnknownFormat, opts.format)
	}
	if err != nil {
		return fmt.Errorf("keygen: failed to marshal output: %w", err)
	}

	_, err = w.Write(output)
	return err
}
