package challenge_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/TecharoHQ/numcaptcha/lib/challenge"
	"github.com/TecharoHQ/numcaptcha/lib/challenge/challengetest"
	"github.com/TecharoHQ/numcaptcha/lib/display"
	"github.com/TecharoHQ/numcaptcha/lib/storage"
	"github.com/TecharoHQ/numcaptcha/lib/words"
)

func submit(t *testing.T, h *challengetest.Harness, cookies []*http.Cookie, sub *challenge.Submission) challenge.Result {
	t.Helper()
	return h.Validator.Validate(httptest.NewRecorder(), challengetest.Request(t, http.MethodPost, cookies), sub)
}

func answerFor(chall *challenge.Challenge) *challenge.Submission {
	return &challenge.Submission{
		Input:           strconv.Itoa(chall.Number),
		EncryptedAnswer: chall.EncryptedAnswer,
		EncryptedToken:  chall.EncryptedToken,
	}
}

func TestRoundTrip(t *testing.T) {
	for _, kind := range storage.Kinds() {
		for _, mode := range display.Modes() {
			for _, lang := range words.Languages() {
				t.Run(string(kind)+"/"+mode.String()+"/"+lang.String(), func(t *testing.T) {
					h := challengetest.New(t, kind)
					chall, cookies := h.Issue(t, challengetest.Params(mode, lang))

					res := submit(t, h, cookies, answerFor(chall))
					if !res.Valid {
						t.Fatalf("correct answer rejected: %v", res.Err)
					}
					if res.State != challenge.Accepted || res.Skipped {
						t.Errorf("unexpected result %+v", res)
					}

					res = submit(t, h, cookies, answerFor(chall))
					if res.Valid {
						t.Fatal("replayed answer accepted")
					}
					if !errors.Is(res.Err, challenge.ErrExpired) {
						t.Errorf("wanted ErrExpired on replay, got: %v", res.Err)
					}
				})
			}
		}
	}
}

// genericRejection is what clients see for every failed validation.
const genericRejection = "The security code you entered is not valid."

func TestRejections(t *testing.T) {
	for _, tt := range []struct {
		name    string
		mutate  func(sub *challenge.Submission, chall *challenge.Challenge)
		err     error
		reached challenge.State
	}{
		{
			name: "wrong answer",
			mutate: func(sub *challenge.Submission, chall *challenge.Challenge) {
				sub.Input = strconv.Itoa(chall.Number + 1)
			},
			err:     challenge.ErrFailed,
			reached: challenge.AnswerDecrypted,
		},
		{
			name:    "empty input",
			mutate:  func(sub *challenge.Submission, _ *challenge.Challenge) { sub.Input = "  " },
			err:     challenge.ErrMissingField,
			reached: challenge.FieldsExtracted,
		},
		{
			name:    "missing answer",
			mutate:  func(sub *challenge.Submission, _ *challenge.Challenge) { sub.EncryptedAnswer = "" },
			err:     challenge.ErrMissingField,
			reached: challenge.FieldsExtracted,
		},
		{
			name:    "not a number",
			mutate:  func(sub *challenge.Submission, _ *challenge.Challenge) { sub.Input = "twelve" },
			err:     challenge.ErrInvalidFormat,
			reached: challenge.FieldsExtracted,
		},
		{
			name: "tampered answer",
			mutate: func(sub *challenge.Submission, _ *challenge.Challenge) {
				sub.EncryptedAnswer = flip(sub.EncryptedAnswer)
			},
			err:     challenge.ErrInvalidFormat,
			reached: challenge.NumberParsed,
		},
		{
			name: "tampered token",
			mutate: func(sub *challenge.Submission, _ *challenge.Challenge) {
				sub.EncryptedToken = flip(sub.EncryptedToken)
			},
			err:     challenge.ErrInvalidFormat,
			reached: challenge.AnswerDecrypted,
		},
		{
			name:    "missing token",
			mutate:  func(sub *challenge.Submission, _ *challenge.Challenge) { sub.EncryptedToken = "" },
			err:     challenge.ErrMissingField,
			reached: challenge.AnswerDecrypted,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := challengetest.New(t, storage.KindMemory)
			chall, cookies := h.Issue(t, challengetest.Params(display.ShowDigits, words.English))

			sub := answerFor(chall)
			tt.mutate(sub, chall)

			res := submit(t, h, cookies, sub)
			if res.Valid {
				t.Fatal("submission accepted")
			}

			if !errors.Is(res.Err, tt.err) {
				t.Errorf("wanted %v, got: %v", tt.err, res.Err)
			}

			var cerr *challenge.Error
			if !errors.As(res.Err, &cerr) {
				t.Fatalf("rejection is not a *challenge.Error: %T", res.Err)
			}
			if cerr.PublicReason != genericRejection {
				t.Errorf("wanted the generic public reason, got %q", cerr.PublicReason)
			}

			if res.Reached != tt.reached {
				t.Errorf("reached %s, want %s", res.Reached, tt.reached)
			}
		})
	}
}

// flip changes one character in the middle of an encrypted value.
func flip(s string) string {
	b := []byte(s)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestWrongAnswerBurnsChallenge(t *testing.T) {
	h := challengetest.New(t, storage.KindDistributed)
	chall, cookies := h.Issue(t, challengetest.Params(display.SumOfTwoNumbers, words.English))

	wrong := answerFor(chall)
	wrong.Input = strconv.Itoa(chall.Number + 1)
	if res := submit(t, h, cookies, wrong); res.Valid {
		t.Fatal("wrong answer accepted")
	}

	res := submit(t, h, cookies, answerFor(chall))
	if res.Valid {
		t.Fatal("challenge survived a failed attempt")
	}
	if !errors.Is(res.Err, challenge.ErrExpired) {
		t.Errorf("wanted ErrExpired, got: %v", res.Err)
	}
}

func TestSwappedAnswer(t *testing.T) {
	h := challengetest.New(t, storage.KindMemory)

	p := challengetest.Params(display.ShowDigits, words.English)
	p.Min, p.Max = 10, 10
	a, _ := h.Issue(t, p)

	p.Min, p.Max = 20, 20
	b, _ := h.Issue(t, p)

	// answer and encrypted answer of a, storage token of b
	res := submit(t, h, nil, &challenge.Submission{
		Input:           "10",
		EncryptedAnswer: a.EncryptedAnswer,
		EncryptedToken:  b.EncryptedToken,
	})
	if res.Valid {
		t.Fatal("mixed up submission accepted")
	}
	if !errors.Is(res.Err, challenge.ErrTampered) {
		t.Errorf("wanted ErrTampered, got: %v", res.Err)
	}
}

func TestNormalizedInput(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input func(n int) string
	}{
		{name: "separators", input: func(n int) string { return display.FormatDigits(n, words.English, true) }},
		{name: "persian digits", input: func(n int) string { return display.FormatDigits(n, words.Persian, false) }},
		{name: "padded", input: func(n int) string { return " " + strconv.Itoa(n) + " " }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := challengetest.New(t, storage.KindMemory)

			p := challengetest.Params(display.NumberToWords, words.Persian)
			p.Min, p.Max = 1234567, 1234567
			chall, cookies := h.Issue(t, p)

			sub := answerFor(chall)
			sub.Input = tt.input(chall.Number)

			if res := submit(t, h, cookies, sub); !res.Valid {
				t.Errorf("%q rejected: %v", sub.Input, res.Err)
			}
		})
	}
}

func TestSkippedMethods(t *testing.T) {
	h := challengetest.New(t, storage.KindMemory)

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		res := h.Validator.Validate(httptest.NewRecorder(), challengetest.Request(t, method, nil), nil)
		if !res.Valid || !res.Skipped {
			t.Errorf("%s: wanted a skipped result, got %+v", method, res)
		}
	}

	res := h.Validator.Validate(httptest.NewRecorder(), challengetest.Request(t, http.MethodPost, nil), nil)
	if res.Valid || res.Skipped {
		t.Errorf("empty POST: wanted rejection, got %+v", res)
	}
}

func TestExtractFromForm(t *testing.T) {
	h := challengetest.New(t, storage.KindCookie)
	chall, cookies := h.Issue(t, challengetest.Params(display.ShowDigits, words.English))

	fields := h.Validator.Fields()
	form := url.Values{
		fields.Input:  {strconv.Itoa(chall.Number)},
		fields.Answer: {chall.EncryptedAnswer},
		fields.Token:  {chall.EncryptedToken},
	}

	r := httptest.NewRequestWithContext(t.Context(), http.MethodPost, "https://example.com/form", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("User-Agent", challengetest.UserAgent)
	for _, ckie := range cookies {
		r.AddCookie(ckie)
	}

	if res := h.Validator.Validate(httptest.NewRecorder(), r, nil); !res.Valid {
		t.Errorf("form submission rejected: %v", res.Err)
	}
}

func TestParams(t *testing.T) {
	h := challengetest.New(t, storage.KindMemory)

	for _, tt := range []struct {
		name   string
		mutate func(p *challenge.Params)
	}{
		{name: "negative min", mutate: func(p *challenge.Params) { p.Min = -1 }},
		{name: "max below min", mutate: func(p *challenge.Params) { p.Min, p.Max = 10, 9 }},
		{name: "unknown mode", mutate: func(p *challenge.Params) { p.Mode = display.Mode(99) }},
		{name: "unknown language", mutate: func(p *challenge.Params) { p.Language = words.Language(99) }},
		{name: "bad style", mutate: func(p *challenge.Params) { p.Style.Height = 0 }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			p := challengetest.Params(display.ShowDigits, words.English)
			tt.mutate(&p)

			_, err := h.Issuer.Issue(httptest.NewRecorder(), challengetest.Request(t, http.MethodGet, nil), p)
			if !errors.Is(err, challenge.ErrInvalidParams) {
				t.Errorf("wanted ErrInvalidParams, got: %v", err)
			}
		})
	}

	p := challengetest.Params(display.ShowDigits, words.English)
	if err := p.Valid([]display.Mode{display.NumberToWords}); !errors.Is(err, challenge.ErrInvalidParams) {
		t.Errorf("disallowed mode: wanted ErrInvalidParams, got: %v", err)
	}
}

func TestIssue(t *testing.T) {
	h := challengetest.New(t, storage.KindMemory)

	p := challengetest.Params(display.SumOfTwoNumbers, words.English)
	p.Min, p.Max = 42, 42
	chall, _ := h.Issue(t, p)

	if chall.Number != 42 {
		t.Errorf("number: got %d, want 42", chall.Number)
	}

	if !strings.HasPrefix(chall.ID, "numcaptcha") || len(chall.ID) != len("numcaptcha")+32 {
		t.Errorf("unexpected id %q", chall.ID)
	}

	answer, err := h.Crypter.Decrypt(chall.EncryptedAnswer)
	if err != nil || answer != "42" {
		t.Errorf("encrypted answer decrypts to %q, %v", answer, err)
	}

	token, err := h.Crypter.Decrypt(chall.EncryptedToken)
	if err != nil || token != "."+chall.ID {
		t.Errorf("encrypted token decrypts to %q, %v", token, err)
	}

	u, err := url.Parse(chall.ImageURL)
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/.numcaptcha/api/image" {
		t.Errorf("image path: %q", u.Path)
	}

	serialized, err := h.Crypter.Decrypt(u.Query().Get("data"))
	if err != nil {
		t.Fatal(err)
	}

	var ip challenge.ImageParams
	if err := h.Serializer.Deserialize(t.Context(), serialized, &ip); err != nil {
		t.Fatal(err)
	}
	if ip.Text != chall.DisplayText || ip.ID != chall.ID {
		t.Errorf("image params %+v do not match challenge", ip)
	}

	data, err := json.Marshal(chall)
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{`"42"`, chall.DisplayText, "number", "displayText"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("client JSON leaks %q: %s", secret, data)
		}
	}
}

func TestResultContext(t *testing.T) {
	if _, ok := challenge.ResultFromContext(t.Context()); ok {
		t.Error("empty context has a result")
	}

	ctx := challenge.WithResult(t.Context(), challenge.Result{Valid: true, State: challenge.Accepted})
	res, ok := challenge.ResultFromContext(ctx)
	if !ok || !res.Valid {
		t.Errorf("got %+v, %v", res, ok)
	}
}

func TestStateString(t *testing.T) {
	if challenge.StorageChecked.String() != "StorageChecked" || challenge.State(42).String() != "State(42)" {
		t.Error("State.String is wrong")
	}
}
