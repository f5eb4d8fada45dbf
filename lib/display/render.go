// Package display turns puzzle numbers into the text a user reads and types
// back as digits.
package display

import (
	"fmt"

	"github.com/TecharoHQ/numcaptcha/internal/random"
	"github.com/TecharoHQ/numcaptcha/lib/words"
)

// MaxSumAddend is the largest second addend of a sum puzzle.
const MaxSumAddend = 6

// Renderer renders puzzle numbers. It is safe for concurrent use.
type Renderer struct {
	rng                *random.Source
	ThousandsSeparator bool
}

// NewRenderer creates a Renderer drawing sum split points from rng.
func NewRenderer(rng *random.Source, thousandsSeparator bool) *Renderer {
	return &Renderer{
		rng:                rng,
		ThousandsSeparator: thousandsSeparator,
	}
}

// Render returns the text shown to the user for number.
//
// For the sum modes the split point is random and never stored. Validation
// must compare the decrypted plain number, not re-rendered text.
func (r *Renderer) Render(number int, lang words.Language, mode Mode) (string, error) {
	switch mode {
	case ShowDigits:
		return FormatDigits(number, lang, r.ThousandsSeparator), nil
	case NumberToWords:
		return words.FromNumber(int64(number), lang), nil
	case SumOfTwoNumbers:
		a, b, err := r.split(number)
		if err != nil {
			return "", err
		}
		return FormatDigits(a, lang, r.ThousandsSeparator) + " + " + FormatDigits(b, lang, r.ThousandsSeparator), nil
	case SumOfTwoNumbersToWords:
		a, b, err := r.split(number)
		if err != nil {
			return "", err
		}
		return words.FromNumber(int64(a), lang) + " + " + words.FromNumber(int64(b), lang), nil
	}

	return "", fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
}

// split returns a, b with a + b == number and a, b >= 0.
func (r *Renderer) split(number int) (int, int, error) {
	k, err := r.rng.NextRange(1, MaxSumAddend)
	if err != nil {
		return 0, 0, fmt.Errorf("display: can't pick addend: %w", err)
	}

	if number > k {
		return number - k, k, nil
	}

	return 0, number, nil
}
