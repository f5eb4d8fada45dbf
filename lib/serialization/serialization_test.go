package serialization

import (
	"errors"
	"testing"
	"time"

	"github.com/TecharoHQ/numcaptcha/lib/crypter"
	"github.com/TecharoHQ/numcaptcha/lib/store/memory"
	"github.com/google/go-cmp/cmp"
)

type params struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
	ID       string  `json:"id"`
}

func newCrypter(t *testing.T) *crypter.Provider {
	t.Helper()
	c, err := crypter.New(t.Name())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNew(t *testing.T) {
	st := memory.New(t.Context())
	c := newCrypter(t)

	for _, tt := range []struct {
		name string
		opts Options
		ok   bool
	}{
		{name: "cache", opts: Options{Kind: KindCache, Store: st, TTL: time.Minute}, ok: true},
		{name: "encrypted", opts: Options{Kind: KindEncrypted, Crypter: c}, ok: true},
		{name: "cache without store", opts: Options{Kind: KindCache}},
		{name: "encrypted without crypter", opts: Options{Kind: KindEncrypted}},
		{name: "unknown", opts: Options{Kind: "gob", Store: st, Crypter: c}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if (err == nil) != tt.ok {
				t.Errorf("New: ok=%v, got err: %v", tt.ok, err)
			}
		})
	}

	if err := Kind("gob").Valid(); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("wanted ErrUnknownKind, got: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	want := params{Text: "12 + 7", FontSize: 42, ID: t.Name()}

	for _, kind := range []Kind{KindCache, KindEncrypted} {
		t.Run(string(kind), func(t *testing.T) {
			p, err := New(Options{
				Kind:    kind,
				Store:   memory.New(t.Context()),
				Crypter: newCrypter(t),
				TTL:     time.Minute,
			})
			if err != nil {
				t.Fatal(err)
			}

			token, err := p.Serialize(t.Context(), want)
			if err != nil {
				t.Fatal(err)
			}

			var got params
			if err := p.Deserialize(t.Context(), token, &got); err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCacheSingleUse(t *testing.T) {
	p, err := New(Options{Kind: KindCache, Store: memory.New(t.Context()), TTL: time.Minute, StoreName: "memory"})
	if err != nil {
		t.Fatal(err)
	}

	token, err := p.Serialize(t.Context(), params{Text: "1,234"})
	if err != nil {
		t.Fatal(err)
	}

	var got params
	if err := p.Deserialize(t.Context(), token, &got); err != nil {
		t.Fatal(err)
	}

	if err := p.Deserialize(t.Context(), token, &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("wanted ErrNotFound on reuse, got: %v", err)
	}
}

func TestCacheExpiry(t *testing.T) {
	p, err := New(Options{Kind: KindCache, Store: memory.New(t.Context()), TTL: -time.Second})
	if err != nil {
		t.Fatal(err)
	}

	token, err := p.Serialize(t.Context(), params{Text: "x"})
	if err != nil {
		t.Fatal(err)
	}

	var got params
	if err := p.Deserialize(t.Context(), token, &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("wanted ErrNotFound, got: %v", err)
	}
}

func TestCacheMalformed(t *testing.T) {
	st := memory.New(t.Context())
	p, err := New(Options{Kind: KindCache, Store: st, TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Set(t.Context(), Prefix+"broken", []byte("{"), time.Minute); err != nil {
		t.Fatal(err)
	}

	var got params
	if err := p.Deserialize(t.Context(), "broken", &got); !errors.Is(err, ErrCantDecode) {
		t.Errorf("wanted ErrCantDecode, got: %v", err)
	}
}

func TestEncryptedTamper(t *testing.T) {
	c := newCrypter(t)
	p := &Encrypted{crypter: c}

	token, err := p.Serialize(t.Context(), params{Text: "five"})
	if err != nil {
		t.Fatal(err)
	}

	var got params
	if err := p.Deserialize(t.Context(), token[:len(token)-2], &got); !errors.Is(err, ErrCantDecode) {
		t.Errorf("wanted ErrCantDecode for a truncated token, got: %v", err)
	}

	notJSON, err := c.Encrypt("not json")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Deserialize(t.Context(), notJSON, &got); !errors.Is(err, ErrCantDecode) {
		t.Errorf("wanted ErrCantDecode for bad JSON, got: %v", err)
	}

	other := &Encrypted{crypter: newCrypterWithSecret(t, "other")}
	if err := other.Deserialize(t.Context(), token, &got); !errors.Is(err, ErrCantDecode) {
		t.Errorf("wanted ErrCantDecode under another key, got: %v", err)
	}
}

func newCrypterWithSecret(t *testing.T, secret string) *crypter.Provider {
	t.Helper()
	c, err := crypter.New(secret)
	if err != nil {
		t.Fatal(err)
	}
	return c
}
