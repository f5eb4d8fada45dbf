package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
)

type proxyOptions struct {
	target             string
	sni                string
	host               string
	insecureSkipVerify bool
}

// unixRoundTripper lets an http.Transport serve the unix:// scheme. The
// transport's DialContext already points at the socket.
type unixRoundTripper struct {
	transport *http.Transport
}

func (u unixRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Host == "" {
		req.Host = "localhost"
	}
	req.URL.Host = req.Host
	req.URL.Scheme = "http"
	return u.transport.RoundTrip(req)
}

// newReverseProxy forwards to the protected application. target is an
// http(s) URL or unix:///path/to.sock.
func newReverseProxy(opts proxyOptions) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(opts.target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target URL: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	if u.Scheme == "unix" {
		socket := u.Path
		u.Path = ""
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		}
		transport.RegisterProtocol("unix", unixRoundTripper{transport: transport})
	}

	if opts.insecureSkipVerify || opts.sni != "" {
		transport.TLSClientConfig = &tls.Config{
			ServerName:         opts.sni,
			InsecureSkipVerify: opts.insecureSkipVerify,
		}
		if opts.insecureSkipVerify {
			slog.Warn("TARGET_INSECURE_SKIP_VERIFY is set to true, TLS certificate validation will not be performed", "target", opts.target)
		}
	}

	rp := &httputil.ReverseProxy{
		Transport: transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()
			// SetURL rewrites Host to the target; keep what the client asked
			// for unless an override is configured.
			pr.Out.Host = pr.In.Host
			if opts.host != "" {
				pr.Out.Host = opts.host
			}
		},
	}

	return rp, nil
}
