package lib

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/TecharoHQ/numcaptcha/internal"
	"github.com/TecharoHQ/numcaptcha/lib/challenge"
	"github.com/TecharoHQ/numcaptcha/lib/display"
	"github.com/TecharoHQ/numcaptcha/lib/draw"
	"github.com/TecharoHQ/numcaptcha/lib/localization"
	"github.com/TecharoHQ/numcaptcha/lib/words"
	"github.com/TecharoHQ/numcaptcha/web"
)

// maxVerifyBody bounds JSON bodies posted to the verify endpoint.
const maxVerifyBody = 64 << 10

// maxProtectedBody bounds bodies buffered in front of a protected handler.
const maxProtectedBody = 10 << 20

var ErrOutOfRange = errors.New("lib: requested range is outside of the configured range")

func clientIP(r *http.Request) string {
	if ip := internal.ClientIP(r); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("can't write JSON response", "err", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondWithJSONError shows details only in debug mode.
func (s *Server) respondWithJSONError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if s.cfg.Debug && err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func (s *Server) respondWithStatus(w http.ResponseWriter, r *http.Request, msg string, status int) {
	localizer := localization.GetLocalizer(r)

	templ.Handler(web.Base(localizer.T("error_title"), web.ErrorPage(msg), localizer), templ.WithStatus(status)).ServeHTTP(w, r)
}

// allow applies the rate limit. It writes the 429 response itself.
func (s *Server) allow(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter == nil {
		return true
	}

	ok, retryAfter := s.limiter.Allow(clientIP(r))
	if ok {
		return true
	}

	rateLimited.Inc()
	seconds := int(math.Ceil(retryAfter.Seconds()))
	internal.GetRequestLogger(r).Debug("rate limited", "client", clientIP(r), "retry_after", seconds)

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	msg := localization.GetLocalizer(r).TData("rate_limited", map[string]any{"Seconds": seconds})
	s.respondWithJSONError(w, http.StatusTooManyRequests, msg, nil)
	return false
}

func formInt(r *http.Request, name string, dst *int) error {
	v := r.FormValue(name)
	if v == "" {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	*dst = n
	return nil
}

func formList(r *http.Request, name string) []string {
	v := r.FormValue(name)
	if v == "" {
		return nil
	}

	var result []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// paramsFromRequest overlays query or form parameters on the configured
// defaults. Callers may narrow the configured range, never widen it.
func (s *Server) paramsFromRequest(r *http.Request) (challenge.Params, error) {
	p := s.cfg.Params()
	var errs []error

	for name, dst := range map[string]*int{
		"min":        &p.Min,
		"max":        &p.Max,
		"height":     &p.Style.Height,
		"width":      &p.Style.Width,
		"noiseCount": &p.Style.NoiseCount,
	} {
		if err := formInt(r, name, dst); err != nil {
			errs = append(errs, err)
		}
	}

	if p.Min < s.cfg.Min || p.Max > s.cfg.Max {
		errs = append(errs, fmt.Errorf("%w: [%d,%d] not in [%d,%d]", ErrOutOfRange, p.Min, p.Max, s.cfg.Min, s.cfg.Max))
	}

	if v := r.FormValue("language"); v != "" {
		lang, err := words.ParseLanguage(v)
		if err != nil {
			errs = append(errs, err)
		}
		p.Language = lang
	}

	if v := r.FormValue("mode"); v != "" {
		mode, err := display.ParseMode(v)
		if err != nil {
			errs = append(errs, err)
		}
		p.Mode = mode
	}

	if names := formList(r, "lineOptions"); names != nil {
		lines, err := draw.ParseLineOptions(names...)
		if err != nil {
			errs = append(errs, err)
		}
		p.Style.LineOptions = lines
	}

	if v := r.FormValue("backColor"); v != "" {
		p.Style.BackColor = v
	}

	if fonts := formList(r, "fonts"); fonts != nil {
		if err := s.drawer.CheckFonts(fonts...); err != nil {
			errs = append(errs, err)
		}
		p.Style.Fonts = fonts
	}

	if len(errs) != 0 {
		return p, fmt.Errorf("%w: %w", challenge.ErrInvalidParams, errors.Join(errs...))
	}

	return p, nil
}

// issue creates a challenge for r, answering errors itself.
func (s *Server) issue(w http.ResponseWriter, r *http.Request) (*challenge.Challenge, bool) {
	if !s.allow(w, r) {
		return nil, false
	}

	lg := internal.GetRequestLogger(r)
	localizer := localization.GetLocalizer(r)

	p, err := s.paramsFromRequest(r)
	if err == nil {
		var chall *challenge.Challenge
		chall, err = s.issuer.Issue(w, r, p)
		if err == nil {
			return chall, true
		}
	}

	if errors.Is(err, challenge.ErrInvalidParams) {
		lg.Debug("invalid challenge parameters", "err", err)
		s.respondWithJSONError(w, http.StatusBadRequest, localizer.T("bad_request"), err)
		return nil, false
	}

	lg.Error("can't issue challenge", "err", err)
	s.respondWithJSONError(w, http.StatusInternalServerError, localizer.T("internal_server_error"), err)
	return nil, false
}

// IssueChallenge answers with the JSON form of a new challenge.
func (s *Server) IssueChallenge(w http.ResponseWriter, r *http.Request) {
	chall, ok := s.issue(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, chall)
}

// RenderWidget answers with an HTML fragment for a new challenge.
func (s *Server) RenderWidget(w http.ResponseWriter, r *http.Request) {
	chall, ok := s.issue(w, r)
	if !ok {
		return
	}

	templ.Handler(web.Widget(web.WidgetData{
		Challenge:  chall,
		Fields:     s.validator.Fields(),
		Height:     s.cfg.Style.Height,
		RefreshURL: r.URL.RequestURI(),
	}, localization.ForLanguage(chall.Language.String()))).ServeHTTP(w, r)
}

// RenderImage draws the challenge named by the data query parameter.
func (s *Server) RenderImage(w http.ResponseWriter, r *http.Request) {
	lg := internal.GetRequestLogger(r)
	localizer := localization.GetLocalizer(r)

	fail := func(result string, err error) {
		imagesRendered.WithLabelValues(result).Inc()
		lg.Debug("can't render captcha image", "result", result, "err", err)

		msg := localizer.T("image_unavailable")
		if s.cfg.Debug {
			msg += " " + err.Error()
		}
		http.Error(w, msg, http.StatusBadRequest)
	}

	data := r.URL.Query().Get("data")
	if data == "" {
		fail("missing", errors.New("no data parameter"))
		return
	}

	token, err := s.crypter.Decrypt(data)
	if err != nil {
		fail("tampered", err)
		return
	}

	var ip challenge.ImageParams
	if err := s.serializer.Deserialize(r.Context(), token, &ip); err != nil {
		fail("not_found", err)
		return
	}

	if age := time.Since(ip.IssuedAt); age > s.cfg.TTL {
		fail("expired", fmt.Errorf("%w: image for %s is %s old", challenge.ErrExpired, ip.ID, age.Truncate(time.Second)))
		return
	}

	var buf bytes.Buffer
	if err := s.drawer.Draw(&buf, ip.Text, ip.Style); err != nil {
		fail("draw_error", err)
		return
	}

	imagesRendered.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		lg.Debug("can't write captcha image", "err", err)
	}
}

type verifyRequest struct {
	Input           string `json:"input"`
	EncryptedAnswer string `json:"encryptedAnswer"`
	EncryptedToken  string `json:"encryptedToken"`
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Verify validates a submission for callers that are not Go handlers. It
// accepts the configured form fields or a JSON body.
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	var sub *challenge.Submission

	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req verifyRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVerifyBody)).Decode(&req); err != nil {
			s.respondWithJSONError(w, http.StatusBadRequest, localization.GetLocalizer(r).T("bad_request"), err)
			return
		}

		sub = &challenge.Submission{
			Input:           req.Input,
			EncryptedAnswer: req.EncryptedAnswer,
			EncryptedToken:  req.EncryptedToken,
		}
	}

	res := s.validator.Check(w, r, sub)
	writeJSON(w, http.StatusOK, verifyResponse{
		Valid:  res.Valid,
		Reason: res.PublicReason(),
	})
}

func (s *Server) stripBasePrefixFromRequest(r *http.Request) *http.Request {
	if !s.opts.StripBasePrefix || s.opts.BasePrefix == "" {
		return r
	}

	basePrefix := strings.TrimSuffix(s.opts.BasePrefix, "/")
	path := r.URL.Path

	if !strings.HasPrefix(path, basePrefix) {
		return r
	}

	trimmedPath := strings.TrimPrefix(path, basePrefix)
	if trimmedPath == "" {
		trimmedPath = "/"
	}

	// Clone the request and URL
	reqCopy := r.Clone(r.Context())
	urlCopy := *r.URL
	urlCopy.Path = trimmedPath
	reqCopy.URL = &urlCopy

	return reqCopy
}

// bufferBody reads r's body into memory and rewinds it. Parsing the
// challenge fields out of a form drains the body, and the protected handler
// still has to see it.
func (s *Server) bufferBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, true
	}

	buf, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProtectedBody))
	if err != nil {
		status := http.StatusBadRequest
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			status = http.StatusRequestEntityTooLarge
		}

		internal.GetRequestLogger(r).Debug("can't read request body", "err", err)
		s.respondWithStatus(w, r, localization.GetLocalizer(r).T("bad_request"), status)
		return nil, false
	}

	rewindBody(r, buf)
	return buf, true
}

func rewindBody(r *http.Request, buf []byte) {
	if buf == nil {
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(buf))
	r.ContentLength = int64(len(buf))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
}

// ServeHTTPNext hands r to the protected upstream.
func (s *Server) ServeHTTPNext(w http.ResponseWriter, r *http.Request) {
	requestsProxied.WithLabelValues(r.Host).Inc()
	r = s.stripBasePrefixFromRequest(r)
	s.next.ServeHTTP(w, r)
}
