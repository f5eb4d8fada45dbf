// Package crypter protects captcha state that travels through the client:
// the encrypted answer, the encrypted storage token, and the serialized image
// parameters.
//
// Values are sealed with AES-GCM. The 96-bit nonce is prepended to the
// ciphertext so that a value can be opened with nothing but the static key.
// Any change to a sealed value makes Decrypt fail, so tampering never yields a
// usable plaintext.
package crypter

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
)

// KeySize is the AES key length derived from the configured secret.
const KeySize = 24

var (
	ErrCantDecrypt = errors.New("crypter: can't decrypt value")
	ErrCantEncrypt = errors.New("crypter: can't encrypt value")
)

var encoding = base64.RawURLEncoding

// Provider encrypts, decrypts and hashes short strings with a key derived
// from a secret.
type Provider struct {
	secret    []byte
	aead      cipher.AEAD
	generated bool
}

// New creates a Provider keyed by secret. If secret is empty a random one is
// generated and a warning is logged: every outstanding challenge becomes
// unsolvable when the process restarts, and multiple instances behind one
// load balancer will reject each other's challenges.
func New(secret string) (*Provider, error) {
	var generated bool
	key := []byte(secret)

	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("crypter: can't generate secret: %w", err)
		}
		generated = true

		slog.Warn("no encryption key configured, generating a random one; challenges will not survive a restart and will not validate across multiple instances")
	}

	_, sum := hash(key)

	block, err := aes.NewCipher(sum[:KeySize])
	if err != nil {
		return nil, fmt.Errorf("crypter: can't create block cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypter: can't create AEAD: %w", err)
	}

	return &Provider{
		secret:    key,
		aead:      aead,
		generated: generated,
	}, nil
}

// Generated reports whether the key was generated at startup.
func (p *Provider) Generated() bool {
	return p.generated
}

func hash(data []byte) (string, []byte) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), sum[:]
}

// Hash returns the SHA-256 digest of text, hex encoded and raw.
func (p *Provider) Hash(text string) (string, []byte) {
	return hash([]byte(text))
}

// DeriveKey returns a 32 byte key for purpose, independent from the
// encryption key.
func (p *Provider) DeriveKey(purpose string) []byte {
	_, sum := hash(append([]byte(purpose+"::"), p.secret...))
	return sum
}

// Encrypt seals text and returns it as unpadded URL-safe base64.
func (p *Provider) Encrypt(text string) (string, error) {
	nonce := make([]byte, p.aead.NonceSize(), p.aead.NonceSize()+len(text)+p.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: can't read nonce: %w", ErrCantEncrypt, err)
	}

	sealed := p.aead.Seal(nonce, nonce, []byte(text), nil)
	return encoding.EncodeToString(sealed), nil
}

// Decrypt opens a value made by Encrypt. Malformed base64, truncated input
// and authentication failures all return an error wrapping ErrCantDecrypt.
func (p *Provider) Decrypt(cipherText string) (string, error) {
	data, err := encoding.DecodeString(cipherText)
	if err != nil {
		return "", fmt.Errorf("%w: bad encoding: %w", ErrCantDecrypt, err)
	}

	if len(data) < p.aead.NonceSize()+p.aead.Overhead() {
		return "", fmt.Errorf("%w: value is %d bytes, too short", ErrCantDecrypt, len(data))
	}

	nonce, sealed := data[:p.aead.NonceSize()], data[p.aead.NonceSize():]

	plain, err := p.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCantDecrypt, err)
	}

	return string(plain), nil
}
