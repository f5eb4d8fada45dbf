// Package challenge issues numeric puzzles and validates answers to them.
package challenge

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/TecharoHQ/numcaptcha/lib/display"
	"github.com/TecharoHQ/numcaptcha/lib/draw"
	"github.com/TecharoHQ/numcaptcha/lib/words"
)

var ErrInvalidParams = errors.New("challenge: invalid parameters")

// Params describe the puzzle to issue.
type Params struct {
	Min      int
	Max      int
	Language words.Language
	Mode     display.Mode
	Style    draw.Style
}

// Valid checks p against the modes an operator allows.
func (p Params) Valid(allowed []display.Mode) error {
	var errs []error

	if p.Min < 0 {
		errs = append(errs, fmt.Errorf("min must not be negative, got %d", p.Min))
	}

	if p.Max < p.Min {
		errs = append(errs, fmt.Errorf("max (%d) must not be less than min (%d)", p.Max, p.Min))
	}

	if err := p.Mode.Valid(); err != nil {
		errs = append(errs, err)
	} else if len(allowed) != 0 && !slices.Contains(allowed, p.Mode) {
		errs = append(errs, fmt.Errorf("display mode %s is not allowed", p.Mode))
	}

	if err := p.Language.Valid(); err != nil {
		errs = append(errs, err)
	}

	if err := p.Style.Valid(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) != 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParams, errors.Join(errs...))
	}

	return nil
}

// Challenge is one issued puzzle. Only the JSON fields may reach the client.
type Challenge struct {
	ID              string `json:"captchaId"`
	ImageURL        string `json:"imageUrl"`
	EncryptedAnswer string `json:"encryptedAnswer"`
	EncryptedToken  string `json:"encryptedToken"`

	Number      int            `json:"-"`
	DisplayText string         `json:"-"`
	Mode        display.Mode   `json:"-"`
	Language    words.Language `json:"-"`
	IssuedAt    time.Time      `json:"-"`
}

// ImageParams is what the image endpoint needs to draw a challenge. It is
// serialized into the image URL.
type ImageParams struct {
	ID       string     `json:"id"`
	Text     string     `json:"text"`
	Style    draw.Style `json:"style"`
	IssuedAt time.Time  `json:"issuedAt"`
}
