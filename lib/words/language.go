package words

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Language is a language puzzles can be rendered in.
type Language int

const (
	English Language = iota
	Persian
	Arabic
	German
	French
	Spanish
	Italian
	Portuguese
	Finnish
	Turkish
	Indonesian
	Swedish
	Danish
	Norwegian
)

var ErrUnknownLanguage = errors.New("words: unknown language")

var tags = [...]language.Tag{
	English:    language.English,
	Persian:    language.Persian,
	Arabic:     language.Arabic,
	German:     language.German,
	French:     language.French,
	Spanish:    language.Spanish,
	Italian:    language.Italian,
	Portuguese: language.Portuguese,
	Finnish:    language.Finnish,
	Turkish:    language.Turkish,
	Indonesian: language.Indonesian,
	Swedish:    language.Swedish,
	Danish:     language.Danish,
	Norwegian:  language.Norwegian,
}

var matcher = language.NewMatcher(tags[:])

// Languages returns every supported Language.
func Languages() []Language {
	result := make([]Language, len(tags))
	for i := range tags {
		result[i] = Language(i)
	}
	return result
}

// Tag returns the BCP 47 tag of l.
func (l Language) Tag() language.Tag {
	if l.Valid() != nil {
		return language.Und
	}

	return tags[l]
}

func (l Language) String() string {
	if l.Valid() != nil {
		return fmt.Sprintf("Language(%d)", int(l))
	}

	base, _ := tags[l].Base()
	return base.String()
}

// RightToLeft reports whether l is written right to left.
func (l Language) RightToLeft() bool {
	return l == Persian || l == Arabic
}

// Valid returns ErrUnknownLanguage for values outside of the enum.
func (l Language) Valid() error {
	if l < 0 || int(l) >= len(tags) {
		return fmt.Errorf("%w: %d", ErrUnknownLanguage, int(l))
	}

	return nil
}

// ParseLanguage parses a BCP 47 tag such as "en", "en-US" or "fa-IR".
// Regional variants resolve to their base language.
func ParseLanguage(s string) (Language, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return English, fmt.Errorf("%w: %q: %w", ErrUnknownLanguage, s, err)
	}

	base, _ := tag.Base()
	switch base.String() {
	case "nb", "nn":
		return Norwegian, nil
	}

	for _, l := range Languages() {
		if lb, _ := l.Tag().Base(); lb == base {
			return l, nil
		}
	}

	return English, fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
}

// Match picks the best supported Language for an Accept-Language header,
// falling back to English.
func Match(acceptLanguage string) Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return English
	}

	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}

	return Languages()[idx]
}

func (l Language) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Language) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseLanguage(s)
	if err != nil {
		return err
	}

	*l = parsed
	return nil
}
