package internal

import (
	"compress/gzip"
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

// compressible lists the media types worth compressing. PNG challenge images
// are already deflated.
var compressible = map[string]bool{
	"text/html":        true,
	"application/json": true,
}

// GzipMiddleware compresses HTML and JSON responses for clients that accept
// gzip. Other responses pass through untouched.
func GzipMiddleware(level int, next http.Handler) http.Handler {
	if _, err := gzip.NewWriterLevel(nil, level); err != nil {
		slog.Error("invalid gzip level, serving uncompressed", "level", level, "err", err)
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")

		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		grw := &gzipResponseWriter{ResponseWriter: w, level: level}
		defer grw.Close()

		next.ServeHTTP(grw, r)
	})
}

// gzipResponseWriter picks compression once the handler has set its
// Content-Type, on the first WriteHeader or Write.
type gzipResponseWriter struct {
	http.ResponseWriter
	level       int
	sink        *gzip.Writer
	wroteHeader bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.Header()
	if mt, _, err := mime.ParseMediaType(h.Get("Content-Type")); err == nil && compressible[mt] && h.Get("Content-Encoding") == "" {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
		w.sink, _ = gzip.NewWriterLevel(w.ResponseWriter, w.level)
	}

	w.ResponseWriter.WriteHeader(status)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}

	if w.sink == nil {
		return w.ResponseWriter.Write(b)
	}
	return w.sink.Write(b)
}

func (w *gzipResponseWriter) Close() error {
	if w.sink == nil {
		return nil
	}
	return w.sink.Close()
}
