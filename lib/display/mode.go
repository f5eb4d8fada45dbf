package display

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Mode is how a puzzle number is shown to the user. The set is closed:
// every switch over Mode in this package lists all four values.
type Mode int

const (
	ShowDigits Mode = iota
	NumberToWords
	SumOfTwoNumbers
	SumOfTwoNumbersToWords
)

var ErrUnknownMode = errors.New("display: unknown display mode")

// Modes returns every Mode.
func Modes() []Mode {
	return []Mode{ShowDigits, NumberToWords, SumOfTwoNumbers, SumOfTwoNumbersToWords}
}

func (m Mode) String() string {
	switch m {
	case ShowDigits:
		return "ShowDigits"
	case NumberToWords:
		return "NumberToWords"
	case SumOfTwoNumbers:
		return "SumOfTwoNumbers"
	case SumOfTwoNumbersToWords:
		return "SumOfTwoNumbersToWords"
	}

	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid returns ErrUnknownMode for values outside of the enum.
func (m Mode) Valid() error {
	switch m {
	case ShowDigits, NumberToWords, SumOfTwoNumbers, SumOfTwoNumbersToWords:
		return nil
	}

	return fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
}

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if strings.EqualFold(m.String(), strings.TrimSpace(s)) {
			return m, nil
		}
	}

	return ShowDigits, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) MarshalJSON() ([]byte, error) {
	if err := m.Valid(); err != nil {
		return nil, err
	}

	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}
