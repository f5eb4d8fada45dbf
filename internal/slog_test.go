package internal

import (
	"bytes"
	"log"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestErrorLogFilter(t *testing.T) {
	for _, tt := range []struct {
		name       string
		msg        string
		suppressed bool
	}{
		{
			name:       "context canceled",
			msg:        "http: proxy error: context canceled",
			suppressed: true,
		},
		{
			name:       "client hung up",
			msg:        "http: response.Write on hijacked connection: write tcp 127.0.0.1:8923->127.0.0.1:51234: write: broken pipe",
			suppressed: true,
		},
		{
			name:       "connection reset",
			msg:        "http: read tcp 127.0.0.1:8923: connection reset by peer",
			suppressed: true,
		},
		{
			name: "other error",
			msg:  "http: TLS handshake error from 10.0.0.1:4242: EOF",
		},
		{
			name:       "context canceled mid-line",
			msg:        "before http: proxy error: context canceled and after",
			suppressed: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			lg := log.New(&ErrorLogFilter{Unwrap: log.New(&buf, "", 0)}, "", 0)
			lg.Println(tt.msg)

			switch tt.suppressed {
			case true:
				if buf.Len() != 0 {
					t.Errorf("message should have been suppressed, got: %q", buf.String())
				}
			case false:
				if !strings.Contains(buf.String(), tt.msg) {
					t.Errorf("message was not written, got: %q", buf.String())
				}
				if !strings.HasSuffix(buf.String(), "\n") {
					t.Errorf("message is missing its newline: %q", buf.String())
				}
			}
		})
	}
}

func TestGetRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(old) })

	req := httptest.NewRequest("POST", "/contact", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("X-Real-Ip", "198.51.100.7")

	GetRequestLogger(req).Info("hello")

	for _, want := range []string{`"method":"POST"`, `"path":"/contact"`, `"user_agent":"Mozilla/5.0"`, `"client_ip":"198.51.100.7"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log line %q does not contain %s", buf.String(), want)
		}
	}
}

func TestNewHandler(t *testing.T) {
	for _, tt := range []struct {
		name, level, format string
		want                string
		dropsInfo           bool
	}{
		{name: "json", level: "info", format: "json", want: `"msg":"hello"`},
		{name: "text", level: "info", format: "text", want: "msg=hello"},
		{name: "unknown format falls back to json", level: "info", format: "xml", want: `"msg":"hello"`},
		{name: "warn hides info", level: "warn", format: "json", dropsInfo: true},
		{name: "bad level falls back to info", level: "loud", format: "text", want: "msg=hello"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			slog.New(newHandler(&buf, tt.level, tt.format)).Info("hello")

			if tt.dropsInfo {
				if buf.Len() != 0 {
					t.Errorf("info message was written: %q", buf.String())
				}
				return
			}

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log line %q does not contain %s", buf.String(), tt.want)
			}
		})
	}
}
