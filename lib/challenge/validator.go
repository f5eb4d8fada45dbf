package challenge

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/TecharoHQ/numcaptcha"
	"github.com/TecharoHQ/numcaptcha/internal"
	"github.com/TecharoHQ/numcaptcha/lib/crypter"
	"github.com/TecharoHQ/numcaptcha/lib/display"
	"github.com/TecharoHQ/numcaptcha/lib/expressions"
	"github.com/TecharoHQ/numcaptcha/lib/localization"
	"github.com/TecharoHQ/numcaptcha/lib/storage"
)

// State is a step of validation.
type State int

const (
	Idle State = iota
	FieldsExtracted
	NumberParsed
	AnswerDecrypted
	TokenDecrypted
	StorageChecked
	Accepted
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case FieldsExtracted:
		return "FieldsExtracted"
	case NumberParsed:
		return "NumberParsed"
	case AnswerDecrypted:
		return "AnswerDecrypted"
	case TokenDecrypted:
		return "TokenDecrypted"
	case StorageChecked:
		return "StorageChecked"
	case Accepted:
		return "Accepted"
	case Rejected:
		return "Rejected"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Fields are the form field names a protected form posts.
type Fields struct {
	Answer string `json:"answer"`
	Input  string `json:"input"`
	Token  string `json:"token"`
}

// DefaultFields returns the default form field names.
func DefaultFields() Fields {
	return Fields{
		Answer: numcaptcha.DefaultAnswerField,
		Input:  numcaptcha.DefaultInputField,
		Token:  numcaptcha.DefaultTokenField,
	}
}

// Submission is what a client sent back.
type Submission struct {
	Input           string `json:"input"`
	EncryptedAnswer string `json:"encryptedAnswer"`
	EncryptedToken  string `json:"encryptedToken"`
}

// Result of a validation.
type Result struct {
	Valid bool

	// Skipped is set when the request did not need validation. Skipped
	// results are Valid.
	Skipped bool

	// State is Accepted or Rejected.
	State State

	// Reached is the last step passed before the decision.
	Reached State

	// Err is set on rejection and is always a *Error.
	Err error
}

// PublicReason returns the message to show for a rejection, or "".
func (res Result) PublicReason() string {
	var cerr *Error
	if errors.As(res.Err, &cerr) {
		return cerr.PublicReason
	}
	return ""
}

// ValidatorOptions wire a Validator to its collaborators.
type ValidatorOptions struct {
	Crypter *crypter.Provider
	Storage storage.Provider

	// When selects requests that must carry a solved challenge. Nil means
	// expressions.DefaultValidateWhen.
	When *expressions.Checker

	// Fields names the form fields. Empty names use the defaults.
	Fields Fields
}

// Validator checks submissions.
type Validator struct {
	crypter *crypter.Provider
	storage storage.Provider
	when    *expressions.Checker
	fields  Fields
}

func NewValidator(opts ValidatorOptions) (*Validator, error) {
	if opts.Crypter == nil || opts.Storage == nil {
		return nil, errors.New("challenge: validator needs a crypter and storage")
	}

	when := opts.When
	if when == nil {
		var err error
		when, err = expressions.NewChecker(expressions.DefaultValidateWhen)
		if err != nil {
			return nil, fmt.Errorf("challenge: can't compile default validate_when: %w", err)
		}
	}

	fields := DefaultFields()
	if opts.Fields.Answer != "" {
		fields.Answer = opts.Fields.Answer
	}
	if opts.Fields.Input != "" {
		fields.Input = opts.Fields.Input
	}
	if opts.Fields.Token != "" {
		fields.Token = opts.Fields.Token
	}

	return &Validator{
		crypter: opts.Crypter,
		storage: opts.Storage,
		when:    when,
		fields:  fields,
	}, nil
}

// Fields returns the form field names in use.
func (v *Validator) Fields() Fields { return v.fields }

// Applies reports whether r must carry a solved challenge. Evaluation errors
// count as yes.
func (v *Validator) Applies(r *http.Request) bool {
	ok, err := v.when.Check(r)
	if err != nil {
		internal.GetRequestLogger(r).Warn("validate_when failed, validating anyway", "expression", v.when.String(), "err", err)
		return true
	}
	return ok
}

// Extract reads a submission from the request form.
func (v *Validator) Extract(r *http.Request) *Submission {
	return &Submission{
		Input:           r.FormValue(v.fields.Input),
		EncryptedAnswer: r.FormValue(v.fields.Answer),
		EncryptedToken:  r.FormValue(v.fields.Token),
	}
}

// Validate decides whether r carries a solved challenge. When sub is nil
// the submission is read from the request form. Requests not selected by
// validate_when are accepted as skipped.
func (v *Validator) Validate(w http.ResponseWriter, r *http.Request, sub *Submission) Result {
	if !v.Applies(r) {
		skippedValidations.Inc()
		return Result{Valid: true, Skipped: true, State: Accepted, Reached: Idle}
	}

	return v.Check(w, r, sub)
}

// Check validates without consulting validate_when.
//
// The stored answer is taken out of storage before anything else is
// checked, so every attempt burns the challenge whether or not it passes.
func (v *Validator) Check(w http.ResponseWriter, r *http.Request, sub *Submission) Result {
	lg := internal.GetRequestLogger(r)
	state := Idle

	reject := func(publicID string, err error) Result {
		failedValidations.WithLabelValues(reasonLabel(err)).Inc()
		lg.Debug("challenge rejected", "state", state, "err", err)
		return Result{
			State:   Rejected,
			Reached: state,
			Err:     NewError("validate", localization.GetLocalizer(r).T(publicID), err),
		}
	}

	if sub == nil {
		sub = v.Extract(r)
	}
	state = FieldsExtracted

	var (
		stored, storageToken string
		storedOK, tokenOK    bool
	)
	if sub.EncryptedToken != "" {
		if tok, err := v.crypter.Decrypt(sub.EncryptedToken); err == nil && tok != "" {
			storageToken, tokenOK = tok, true
			stored, storedOK = v.storage.GetValue(w, r, storageToken)
		}
	}

	if strings.TrimSpace(sub.Input) == "" {
		return reject("captcha_invalid", fmt.Errorf("%w: %s", ErrMissingField, v.fields.Input))
	}

	if sub.EncryptedAnswer == "" {
		return reject("captcha_invalid", fmt.Errorf("%w: %s", ErrMissingField, v.fields.Answer))
	}

	parsed, err := display.ParseNumber(sub.Input)
	if err != nil {
		return reject("captcha_invalid", fmt.Errorf("%w: %w", ErrInvalidFormat, err))
	}
	state = NumberParsed

	expected, err := v.crypter.Decrypt(sub.EncryptedAnswer)
	if err != nil {
		return reject("captcha_invalid", fmt.Errorf("%w: answer: %w", ErrInvalidFormat, err))
	}
	state = AnswerDecrypted

	if !equal(expected, strconv.Itoa(parsed)) {
		return reject("captcha_invalid", fmt.Errorf("%w: wrong answer", ErrFailed))
	}

	if !tokenOK {
		if sub.EncryptedToken == "" {
			return reject("captcha_invalid", fmt.Errorf("%w: %s", ErrMissingField, v.fields.Token))
		}
		return reject("captcha_invalid", fmt.Errorf("%w: token does not decrypt", ErrInvalidFormat))
	}
	state = TokenDecrypted

	if !storedOK || stored == "" {
		return reject("captcha_invalid", fmt.Errorf("%w: %s", ErrExpired, storageToken))
	}
	state = StorageChecked

	if !equal(stored, expected) {
		return reject("captcha_invalid", ErrTampered)
	}

	challengesValidated.Inc()
	lg.Debug("challenge passed", "token", storageToken)

	return Result{Valid: true, State: Accepted, Reached: StorageChecked}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// LogValue keeps rejection details out of info level logs.
func (res Result) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Bool("valid", res.Valid),
		slog.Bool("skipped", res.Skipped),
		slog.String("state", res.State.String()),
		slog.String("reached", res.Reached.String()),
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("reason", reasonLabel(res.Err)))
	}
	return slog.GroupValue(attrs...)
}
