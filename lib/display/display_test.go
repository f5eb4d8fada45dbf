package display

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/TecharoHQ/numcaptcha/internal/random"
	"github.com/TecharoHQ/numcaptcha/lib/words"
)

func TestFormatDigits(t *testing.T) {
	for _, tt := range []struct {
		name       string
		n          int
		lang       words.Language
		separators bool
		want       string
	}{
		{name: "plain", n: 1234567, lang: words.English, want: "1234567"},
		{name: "grouped", n: 1234567, lang: words.English, separators: true, want: "1,234,567"},
		{name: "small grouped", n: 999, lang: words.English, separators: true, want: "999"},
		{name: "persian", n: 1234, lang: words.Persian, want: "۱۲۳۴"},
		{name: "persian grouped", n: 1234, lang: words.Persian, separators: true, want: "۱,۲۳۴"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDigits(tt.n, tt.lang, tt.separators); got != tt.want {
				t.Errorf("FormatDigits(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	for _, tt := range []struct {
		input string
		want  int
		err   error
	}{
		{input: "1234567", want: 1234567},
		{input: "1,234,567", want: 1234567},
		{input: "  42 ", want: 42},
		{input: "۱۲۳", want: 123},
		{input: "٤٥", want: 45},
		{input: "۱٬۲۳۴", want: 1234},
		{input: "", err: ErrNotANumber},
		{input: "   ", err: ErrNotANumber},
		{input: "twelve", err: ErrNotANumber},
		{input: "12a", err: ErrNotANumber},
	} {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNumber(tt.input)
			if !errors.Is(err, tt.err) {
				t.Fatalf("wanted error %v, got: %v", tt.err, err)
			}
			if got != tt.want {
				t.Errorf("ParseNumber(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDigits(t *testing.T) {
	if got := NormalizeDigits("کد ۰۹۸۷"); got != "کد 0987" {
		t.Errorf("got %q", got)
	}
	if got := PersianDigits("a1b2"); got != "a۱b۲" {
		t.Errorf("got %q", got)
	}
}

func TestRenderWords(t *testing.T) {
	r := NewRenderer(random.New(), false)

	got, err := r.Render(103, words.English, NumberToWords)
	if err != nil {
		t.Fatal(err)
	}
	if got != "One Hundred Three" {
		t.Errorf("got %q", got)
	}
}

func TestRenderSum(t *testing.T) {
	for _, lang := range words.Languages() {
		for _, sep := range []bool{false, true} {
			r := NewRenderer(random.New(), sep)
			for _, n := range []int{0, 1, 6, 7, 50, 1234, 9999, 1234567} {
				for range 20 {
					got, err := r.Render(n, lang, SumOfTwoNumbers)
					if err != nil {
						t.Fatal(err)
					}

					a, b, ok := strings.Cut(got, " + ")
					if !ok {
						t.Fatalf("%q is not a sum", got)
					}

					x, err := ParseNumber(a)
					if err != nil {
						t.Fatal(err)
					}
					y, err := ParseNumber(b)
					if err != nil {
						t.Fatal(err)
					}

					if x+y != n {
						t.Fatalf("%q does not add up to %d", got, n)
					}
					if x < 0 || y < 0 || y > MaxSumAddend {
						t.Fatalf("%q has out of range addends", got)
					}
				}
			}
		}
	}
}

func TestRenderSumSmallNumbers(t *testing.T) {
	// this reader always picks an addend of 6, which is larger than 3.
	r := NewRenderer(random.NewFromReader(bytes.NewReader(bytes.Repeat([]byte{0x05}, 64))), false)

	got, err := r.Render(3, words.English, SumOfTwoNumbers)
	if err != nil {
		t.Fatal(err)
	}
	if got != "0 + 3" {
		t.Errorf("got %q, want 0 + 3", got)
	}
}

func TestRenderSumWords(t *testing.T) {
	r := NewRenderer(random.New(), false)

	got, err := r.Render(20, words.English, SumOfTwoNumbersToWords)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for k := 1; k <= MaxSumAddend; k++ {
		if got == words.FromNumber(int64(20-k), words.English)+" + "+words.FromNumber(int64(k), words.English) {
			found = true
		}
	}
	if !found {
		t.Errorf("%q is not a valid split of twenty", got)
	}
}

func TestRenderEntropyFailure(t *testing.T) {
	r := NewRenderer(random.NewFromReader(bytes.NewReader(nil)), false)

	if _, err := r.Render(100, words.English, SumOfTwoNumbers); err == nil {
		t.Error("expected an error with no entropy")
	}

	if _, err := r.Render(100, words.English, ShowDigits); err != nil {
		t.Errorf("ShowDigits should not need entropy: %v", err)
	}
}

func TestRenderUnknownMode(t *testing.T) {
	r := NewRenderer(random.New(), false)

	if _, err := r.Render(1, words.English, Mode(42)); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("wanted ErrUnknownMode, got: %v", err)
	}
}

func TestModeJSON(t *testing.T) {
	for _, m := range Modes() {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatal(err)
		}

		var got Mode
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got != m {
			t.Errorf("got %s, want %s", got, m)
		}
	}

	if _, err := json.Marshal(Mode(9)); err == nil {
		t.Error("marshaling an unknown mode should fail")
	}

	var m Mode
	if err := json.Unmarshal([]byte(`"sumoftwonumbers"`), &m); err != nil || m != SumOfTwoNumbers {
		t.Errorf("case-insensitive parse failed: %v %s", err, m)
	}
	if err := json.Unmarshal([]byte(`"Roman"`), &m); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("wanted ErrUnknownMode, got: %v", err)
	}
}
