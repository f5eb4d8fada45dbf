package bbolt

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/TecharoHQ/numcaptcha/lib/store"
)

func TestFactoryValid(t *testing.T) {
	f := Factory{}
	dir := t.TempDir()

	if err := f.Valid(json.RawMessage(`}`)); !errors.Is(err, store.ErrBadConfig) {
		t.Errorf("wanted ErrBadConfig for unparseable parameters, got: %v", err)
	}

	for _, tt := range []struct {
		name string
		cfg  Config
		err  error
	}{
		{
			name: "minimal",
			cfg:  Config{Path: filepath.Join(dir, "db")},
		},
		{
			name: "with durations",
			cfg:  Config{Path: filepath.Join(dir, "db"), OpenTimeout: "250ms", CleanupInterval: "1m"},
		},
		{
			name: "missing path",
			cfg:  Config{},
			err:  ErrMissingPath,
		},
		{
			name: "unwritable folder",
			cfg:  Config{Path: filepath.Join(dir, "does", "not", "exist", "db")},
			err:  ErrCantWriteToPath,
		},
		{
			name: "negative cleanup interval",
			cfg:  Config{Path: filepath.Join(dir, "db"), CleanupInterval: "-1m"},
			err:  ErrBadDuration,
		},
		{
			name: "zero open timeout",
			cfg:  Config{Path: filepath.Join(dir, "db"), OpenTimeout: "0s"},
			err:  ErrBadDuration,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}

			err = f.Valid(json.RawMessage(data))
			switch tt.err {
			case nil:
				if err != nil {
					t.Errorf("wanted no error, got: %v", err)
				}
			default:
				if !errors.Is(err, tt.err) {
					t.Errorf("wanted %v, got: %v", tt.err, err)
				}
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config

	if got := c.openTimeout(); got != DefaultOpenTimeout {
		t.Errorf("open timeout: wanted %s, got %s", DefaultOpenTimeout, got)
	}

	if got := c.cleanupInterval(); got != DefaultCleanupInterval {
		t.Errorf("cleanup interval: wanted %s, got %s", DefaultCleanupInterval, got)
	}

	c.CleanupInterval = "30s"
	if got := c.cleanupInterval(); got != 30*time.Second {
		t.Errorf("cleanup interval: wanted 30s, got %s", got)
	}
}

func TestBuildLockedFile(t *testing.T) {
	data, err := json.Marshal(Config{Path: filepath.Join(t.TempDir(), "db"), OpenTimeout: "50ms"})
	if err != nil {
		t.Fatal(err)
	}

	first, err := Factory{}.Build(t.Context(), json.RawMessage(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { first.(*Store).Close() })

	if _, err := (Factory{}).Build(t.Context(), json.RawMessage(data)); err == nil {
		t.Error("a second open of a locked database should time out")
	}
}
