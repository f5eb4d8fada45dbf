package challenge

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/TecharoHQ/numcaptcha"
	"github.com/TecharoHQ/numcaptcha/internal"
	"github.com/TecharoHQ/numcaptcha/internal/random"
	"github.com/TecharoHQ/numcaptcha/lib/crypter"
	"github.com/TecharoHQ/numcaptcha/lib/display"
	"github.com/TecharoHQ/numcaptcha/lib/serialization"
	"github.com/TecharoHQ/numcaptcha/lib/storage"
	"github.com/google/uuid"
)

// IssuerOptions wire an Issuer to its collaborators. Every field except
// AllowedModes is required.
type IssuerOptions struct {
	Random     *random.Source
	Renderer   *display.Renderer
	Crypter    *crypter.Provider
	Storage    storage.Provider
	Serializer serialization.Provider

	// ImagePath is the path of the image endpoint, e.g. /.numcaptcha/api/image.
	ImagePath string

	// AllowedModes restricts the display modes callers may ask for. Empty
	// allows all of them.
	AllowedModes []display.Mode
}

// Issuer creates challenges.
type Issuer struct {
	opts IssuerOptions
}

func NewIssuer(opts IssuerOptions) (*Issuer, error) {
	var errs []error

	if opts.Random == nil {
		errs = append(errs, errors.New("random source is required"))
	}
	if opts.Renderer == nil {
		errs = append(errs, errors.New("renderer is required"))
	}
	if opts.Crypter == nil {
		errs = append(errs, errors.New("crypter is required"))
	}
	if opts.Storage == nil {
		errs = append(errs, errors.New("storage is required"))
	}
	if opts.Serializer == nil {
		errs = append(errs, errors.New("serializer is required"))
	}
	if opts.ImagePath == "" {
		errs = append(errs, errors.New("image path is required"))
	}

	if len(errs) != 0 {
		return nil, fmt.Errorf("challenge: can't create issuer: %w", errors.Join(errs...))
	}

	return &Issuer{opts: opts}, nil
}

// Issue creates a challenge, binds its answer to the client through
// storage and serializes the image parameters into the image URL.
func (i *Issuer) Issue(w http.ResponseWriter, r *http.Request, p Params) (*Challenge, error) {
	t0 := time.Now()
	defer func() { IssueDuration.Observe(time.Since(t0).Seconds()) }()

	if err := p.Valid(i.opts.AllowedModes); err != nil {
		return nil, err
	}

	number, err := i.opts.Random.NextRange(p.Min, p.Max)
	if err != nil {
		return nil, fmt.Errorf("challenge: can't pick number: %w", err)
	}

	text, err := i.opts.Renderer.Render(number, p.Language, p.Mode)
	if err != nil {
		return nil, fmt.Errorf("challenge: can't render number: %w", err)
	}

	answer := strconv.Itoa(number)

	encryptedAnswer, err := i.opts.Crypter.Encrypt(answer)
	if err != nil {
		return nil, fmt.Errorf("challenge: can't encrypt answer: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("challenge: can't generate id: %w", err)
	}

	divID := numcaptcha.DivIDPrefix + fmt.Sprintf("%x", id[:])
	storageToken := "." + divID

	if err := i.opts.Storage.Add(w, r, storageToken, answer); err != nil {
		return nil, fmt.Errorf("challenge: can't store answer: %w", err)
	}

	encryptedToken, err := i.opts.Crypter.Encrypt(storageToken)
	if err != nil {
		return nil, fmt.Errorf("challenge: can't encrypt token: %w", err)
	}

	now := time.Now()

	serialized, err := i.opts.Serializer.Serialize(r.Context(), ImageParams{
		ID:       divID,
		Text:     text,
		Style:    p.Style,
		IssuedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("challenge: can't serialize image parameters: %w", err)
	}

	data, err := i.opts.Crypter.Encrypt(serialized)
	if err != nil {
		return nil, fmt.Errorf("challenge: can't encrypt image parameters: %w", err)
	}

	challengesIssued.WithLabelValues(p.Mode.String(), p.Language.String()).Inc()
	internal.GetRequestLogger(r).Debug("issued challenge", "id", divID, "mode", p.Mode, "language", p.Language)

	return &Challenge{
		ID:              divID,
		ImageURL:        i.opts.ImagePath + "?" + url.Values{"data": {data}}.Encode(),
		EncryptedAnswer: encryptedAnswer,
		EncryptedToken:  encryptedToken,
		Number:          number,
		DisplayText:     text,
		Mode:            p.Mode,
		Language:        p.Language,
		IssuedAt:        now,
	}, nil
}
