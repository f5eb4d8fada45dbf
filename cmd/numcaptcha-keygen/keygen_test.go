package main

import (
	"bytes"
	"crypto/rand"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TecharoHQ/numcaptcha/lib/config"
	"github.com/TecharoHQ/numcaptcha/lib/serialization"
	"github.com/TecharoHQ/numcaptcha/lib/storage"
	"gopkg.in/yaml.v3"
)

func defaultOptions() options {
	return options{
		format:        "yaml",
		keyBytes:      32,
		storage:       string(storage.KindCookie),
		serialization: string(serialization.KindEncrypted),
		store:         "memory",
		language:      "en",
	}
}

func TestGenerateLoads(t *testing.T) {
	dir := t.TempDir()

	for _, tt := range []struct {
		name   string
		mutate func(*options)
	}{
		{
			name:   "defaults",
			mutate: func(*options) {},
		},
		{
			name:   "json",
			mutate: func(o *options) { o.format = "json" },
		},
		{
			name: "bbolt_session",
			mutate: func(o *options) {
				o.storage = string(storage.KindSession)
				o.store = "bbolt"
				o.bboltPath = filepath.Join(dir, "numcaptcha.bdb")
			},
		},
		{
			name: "valkey_distributed",
			mutate: func(o *options) {
				o.storage = string(storage.KindDistributed)
				o.serialization = string(serialization.KindCache)
				o.store = "valkey"
				o.valkeyURL = "redis://localhost:6379/0"
			},
		},
		{
			name:   "persian",
			mutate: func(o *options) { o.language = "fa" },
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions()
			tt.mutate(&opts)

			var buf bytes.Buffer
			if err := generate(&buf, rand.Reader, opts); err != nil {
				t.Fatalf("can't generate: %v", err)
			}

			cfg, err := config.Load(bytes.NewReader(buf.Bytes()), tt.name)
			if err != nil {
				t.Fatalf("generated config does not load: %v\n%s", err, buf.String())
			}

			if len(cfg.Key) != opts.keyBytes*2 {
				t.Errorf("wanted a %d character key, got %q", opts.keyBytes*2, cfg.Key)
			}

			if string(cfg.Storage) != opts.storage {
				t.Errorf("wanted storage %s, got %s", opts.storage, cfg.Storage)
			}

			if cfg.Store.Backend != opts.store {
				t.Errorf("wanted store %s, got %s", opts.store, cfg.Store.Backend)
			}
		})
	}
}

func TestGenerateYAMLShape(t *testing.T) {
	var buf bytes.Buffer
	if err := generate(&buf, rand.Reader, defaultOptions()); err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}

	for _, key := range []string{"key", "ttl", "min", "max", "language", "modes", "default_mode", "storage", "serialization", "store"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("output is missing %q:\n%s", key, buf.String())
		}
	}

	modes, ok := doc["modes"].([]any)
	if !ok || len(modes) != 4 {
		t.Errorf("wanted all four modes, got %v", doc["modes"])
	}
}

func TestGenerateKeysDiffer(t *testing.T) {
	seen := map[string]bool{}

	for range 16 {
		key, err := newKey(rand.Reader, 32)
		if err != nil {
			t.Fatal(err)
		}
		if seen[key] {
			t.Fatalf("key %s generated twice", key)
		}
		seen[key] = true
	}
}

func TestGenerateErrors(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*options)
		err    error
	}{
		{
			name:   "short_key",
			mutate: func(o *options) { o.keyBytes = 8 },
			err:    ErrKeyTooShort,
		},
		{
			name:   "bad_format",
			mutate: func(o *options) { o.format = "toml" },
			err:    ErrUnknownFormat,
		},
		{
			name:   "bad_store",
			mutate: func(o *options) { o.store = "etcd" },
			err:    ErrUnknownStore,
		},
		{
			name:   "bad_storage",
			mutate: func(o *options) { o.storage = "floppy" },
			err:    storage.ErrUnknownKind,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions()
			tt.mutate(&opts)

			var buf bytes.Buffer
			err := generate(&buf, rand.Reader, opts)
			if !errors.Is(err, tt.err) {
				t.Fatalf("wanted %v, got %v", tt.err, err)
			}

			if buf.Len() != 0 {
				t.Errorf("nothing should be written on error, got %q", buf.String())
			}
		})
	}
}

func TestGenerateShortEntropy(t *testing.T) {
	var buf bytes.Buffer
	err := generate(&buf, strings.NewReader("too short"), defaultOptions())
	if err == nil {
		t.Fatal("wanted an error when entropy runs out")
	}
}
