package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/TecharoHQ/numcaptcha/lib/words"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var ErrNotANumber = errors.New("display: input is not a number")

var (
	toASCIIDigits = runes.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹': // Extended Arabic-Indic, used for Persian
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩': // Arabic-Indic
			return '0' + (r - '٠')
		}
		return r
	})

	toPersianDigits = runes.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '۰' + (r - '0')
		}
		return r
	})

	// grouping always uses the English "," so that both languages look the
	// same apart from the digit glyphs.
	groupingPrinter = message.NewPrinter(language.English)
)

func mapString(t runes.Transformer, s string) string {
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// NormalizeDigits replaces Persian and Arabic-Indic digits with ASCII digits.
func NormalizeDigits(s string) string {
	return mapString(toASCIIDigits, s)
}

// PersianDigits replaces ASCII digits with Persian digits.
func PersianDigits(s string) string {
	return mapString(toPersianDigits, s)
}

// FormatDigits formats n for display, optionally with thousands separators.
func FormatDigits(n int, lang words.Language, separators bool) string {
	result := strconv.Itoa(n)
	if separators {
		result = groupingPrinter.Sprintf("%d", n)
	}

	if lang == words.Persian {
		result = PersianDigits(result)
	}

	return result
}

// ParseNumber parses user input as a base 10 integer. Persian and Arabic
// digits are accepted, as are ',' and '٬' thousands separators.
func ParseNumber(s string) (int, error) {
	cleaned := strings.TrimSpace(NormalizeDigits(s))
	cleaned = strings.NewReplacer(",", "", "٬", "").Replace(cleaned)

	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty", ErrNotANumber)
	}

	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNotANumber, err)
	}

	return n, nil
}
