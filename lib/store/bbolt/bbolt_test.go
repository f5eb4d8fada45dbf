package bbolt

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/TecharoHQ/numcaptcha/lib/store"
	"github.com/TecharoHQ/numcaptcha/lib/store/storetest"
)

func TestImpl(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	t.Log(path)
	data, err := json.Marshal(Config{
		Path: path,
	})
	if err != nil {
		t.Fatal(err)
	}

	storetest.Common(t, Factory{}, json.RawMessage(data))
}

func TestCleanup(t *testing.T) {
	data, err := json.Marshal(Config{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	if err != nil {
		t.Fatal(err)
	}

	s, err := Factory{}.Build(t.Context(), json.RawMessage(data))
	if err != nil {
		t.Fatal(err)
	}
	bs := s.(*Store)
	t.Cleanup(func() { bs.Close() })

	if err := bs.Set(t.Context(), "old", []byte("x"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if err := bs.Set(t.Context(), "new", []byte("y"), time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := bs.cleanup(t.Context()); err != nil {
		t.Fatal(err)
	}

	if err := bs.Delete(t.Context(), "old"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expired value survived cleanup: %v", err)
	}

	if _, err := bs.Get(t.Context(), "new"); err != nil {
		t.Errorf("live value removed by cleanup: %v", err)
	}
}
