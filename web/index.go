// Package web renders the HTML numcaptcha serves: the form widget and the
// error page.
package web

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/TecharoHQ/numcaptcha/lib/challenge"
	"github.com/TecharoHQ/numcaptcha/lib/localization"
	"github.com/TecharoHQ/numcaptcha/lib/words"
)

// WidgetData is everything the widget needs to render one challenge.
type WidgetData struct {
	Challenge *challenge.Challenge
	Fields    challenge.Fields

	// Height of the image in pixels. Zero leaves it to the browser.
	Height int

	// RefreshURL, if set, is linked as "new code".
	RefreshURL string
}

func dir(lang words.Language) string {
	if lang.RightToLeft() {
		return "rtl"
	}
	return "ltr"
}

// Widget renders the captcha image, the hidden answer and token inputs and
// the text input the user types the number into. It is meant to be embedded
// in a server-rendered form.
func Widget(data WidgetData, localizer *localization.SimpleLocalizer) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		chall := data.Challenge
		inputID := chall.ID + "-input"
		h := &htmlWriter{w: w}

		h.raw(`<div class="numcaptcha"`)
		h.attr("id", chall.ID)
		h.attr("dir", dir(chall.Language))
		h.attr("lang", chall.Language.String())
		h.raw(">")

		h.raw("<img")
		h.url("src", chall.ImageURL)
		h.attr("alt", localizer.T("captcha_image_alt"))
		if data.Height != 0 {
			h.attr("height", strconv.Itoa(data.Height))
		}
		h.raw(">")

		h.raw(`<input type="hidden"`)
		h.attr("name", data.Fields.Answer)
		h.attr("value", chall.EncryptedAnswer)
		h.raw(">")

		h.raw(`<input type="hidden"`)
		h.attr("name", data.Fields.Token)
		h.attr("value", chall.EncryptedToken)
		h.raw(">")

		h.raw("<label")
		h.attr("for", inputID)
		h.raw(">")
		h.text(localizer.T("captcha_label"))
		h.raw("</label>")

		h.raw(`<input type="text" inputmode="numeric" autocomplete="off" required`)
		h.attr("id", inputID)
		h.attr("name", data.Fields.Input)
		h.attr("placeholder", localizer.T("captcha_placeholder"))
		h.raw(">")

		if data.RefreshURL != "" {
			h.raw(`<a class="numcaptcha-refresh"`)
			h.url("href", data.RefreshURL)
			h.raw(">")
			h.text(localizer.T("captcha_refresh"))
			h.raw("</a>")
		}

		h.raw("</div>")

		return h.err
	})
}

// Base wraps body in a minimal HTML document.
func Base(title string, body templ.Component, localizer *localization.SimpleLocalizer) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}

		h.raw(`<!DOCTYPE html><html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><meta name="robots" content="noindex,nofollow"><title>`)
		h.text(title)
		h.raw("</title></head><body><main><h1>")
		h.text(title)
		h.raw("</h1>")
		if h.err != nil {
			return h.err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		h.raw(`<p><a href="/">`)
		h.text(localizer.T("go_home"))
		h.raw("</a></p></main></body></html>")

		return h.err
	})
}

// ErrorPage shows a single message.
func ErrorPage(msg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<p class="numcaptcha-error">`)
		h.text(msg)
		h.raw("</p>")
		return h.err
	})
}
