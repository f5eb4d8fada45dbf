package internal

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// InitSlog installs the default logger. format is "json" or "text"; anything
// else falls back to json.
func InitSlog(level, format string) {
	slog.SetDefault(slog.New(newHandler(os.Stderr, level, format)))
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	var programLevel slog.Level
	if err := (&programLevel).UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v, using info\n", level, err)
		programLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     programLevel,
	}

	switch strings.ToLower(format) {
	case "text":
		return slog.NewTextHandler(w, opts)
	case "json", "":
	default:
		fmt.Fprintf(os.Stderr, "invalid log format %s, using json\n", format)
	}

	return slog.NewJSONHandler(w, opts)
}

// GetRequestLogger returns the default logger annotated with what identifies
// the client of r. Submitted answers are never logged.
func GetRequestLogger(r *http.Request) *slog.Logger {
	return slog.With(
		"method", r.Method,
		"path", r.URL.Path,
		"client_ip", ClientIP(r),
		"user_agent", r.UserAgent(),
		"accept_language", r.Header.Get("Accept-Language"),
	)
}

// quietHTTPErrors are logged by net/http whenever a client goes away before
// its image or page was written.
var quietHTTPErrors = []string{
	"context canceled",
	"broken pipe",
	"connection reset by peer",
}

// ErrorLogFilter drops net/http error log lines caused by clients that
// disconnected.
type ErrorLogFilter struct {
	Unwrap *log.Logger
}

func (elf *ErrorLogFilter) Write(p []byte) (n int, err error) {
	msg := string(p)
	for _, quiet := range quietHTTPErrors {
		if strings.Contains(msg, quiet) {
			return len(p), nil
		}
	}

	if elf.Unwrap != nil {
		return elf.Unwrap.Writer().Write(p)
	}
	return len(p), nil
}

// GetFilteredHTTPLogger is meant for http.Server.ErrorLog.
func GetFilteredHTTPLogger() *log.Logger {
	stdErrLogger := log.New(os.Stderr, "", log.LstdFlags)
	return log.New(&ErrorLogFilter{Unwrap: stdErrLogger}, "", 0)
}
