package web

import (
	"io"

	"github.com/a-h/templ"
)

// htmlWriter writes escaped HTML and keeps the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + `="`)
	h.text(value)
	h.raw(`"`)
}

// url writes a URL attribute, replacing unsafe schemes.
func (h *htmlWriter) url(name, value string) {
	h.attr(name, string(templ.URL(value)))
}
