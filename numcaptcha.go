// Package numcaptcha contains the version number and shared constants of numcaptcha.
package numcaptcha

import "time"

// Version is the current version of numcaptcha.
//
// This variable is set at build time using the -X linker flag. If not set,
// it defaults to "devel".
var Version = "devel"

// CookiePrefix is the prefix for every cookie numcaptcha sets. It is set by
// the -cookie-prefix flag at startup.
var CookiePrefix = "numcaptcha"

// SessionCookieName is the name of the cookie carrying the signed session
// identifier used by the session storage backend.
var SessionCookieName = CookiePrefix + "-session"

// BasePrefix is a global prefix for all numcaptcha endpoints. Set from the
// -base-prefix flag.
var BasePrefix = ""

// ForcedLanguage is the language used for localized messages instead of the
// one from the request's Accept-Language header.
var ForcedLanguage = ""

// APIPrefix is the path prefix of every numcaptcha API route.
const APIPrefix = "/.numcaptcha/api/"

// DefaultTTL is how long an issued challenge stays solvable.
const DefaultTTL = 7 * time.Minute

// DefaultMin and DefaultMax are the default puzzle number bounds.
const (
	DefaultMin = 1
	DefaultMax = 9999
)

// Default names of the form fields a protected form posts back.
const (
	DefaultAnswerField = "numcaptchaText"
	DefaultInputField  = "numcaptchaInputText"
	DefaultTokenField  = "numcaptchaToken"
)

// DivIDPrefix is prepended to every generated captcha element id.
const DivIDPrefix = "numcaptcha"
