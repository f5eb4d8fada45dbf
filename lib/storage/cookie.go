package storage

import (
	"context"
	"net/http"
	"time"

	"github.com/TecharoHQ/numcaptcha/decaymap"
	"github.com/TecharoHQ/numcaptcha/internal"
)

// Cookie keeps the sealed value in a cookie on the client.
//
// A client could resend a consumed cookie, so every value read is recorded
// as a tombstone until its TTL passes. Tombstones are per process; behind a
// load balancer use the distributed backend.
type Cookie struct {
	sealer     *sealer
	opts       CookieOptions
	ttl        time.Duration
	tombstones *decaymap.Impl[string, struct{}]
}

func newCookie(ctx context.Context, s *sealer, opts Options) *Cookie {
	result := &Cookie{
		sealer:     s,
		opts:       opts.Cookie,
		ttl:        opts.TTL,
		tombstones: decaymap.NewBounded[string, struct{}](opts.MaxEntries),
	}

	go result.cleanupThread(ctx)

	return result
}

func (c *Cookie) name(token string) string {
	return c.opts.Prefix + token
}

func (c *Cookie) Add(w http.ResponseWriter, r *http.Request, token, value string) error {
	sealed, err := c.sealer.seal(r, value)
	if err != nil {
		return err
	}

	c.opts.set(w, r, c.name(token), sealed, c.ttl)
	return nil
}

func (c *Cookie) Contains(_ http.ResponseWriter, r *http.Request, token string) bool {
	ckie, err := r.Cookie(c.name(token))
	if err != nil || ckie.Value == "" {
		return false
	}

	_, dead := c.tombstones.Get(internal.FastHash(ckie.Name, ckie.Value))
	return !dead
}

func (c *Cookie) GetValue(w http.ResponseWriter, r *http.Request, token string) (string, bool) {
	lg := internal.GetRequestLogger(r)

	ckie, err := r.Cookie(c.name(token))
	if err != nil || ckie.Value == "" {
		lg.Debug("challenge cookie not found", "token", token)
		return "", false
	}

	c.opts.clear(w, r, c.name(token))

	if !c.tombstones.SetIfAbsent(internal.FastHash(ckie.Name, ckie.Value), struct{}{}, c.ttl) {
		lg.Debug("challenge cookie replayed", "token", token)
		return "", false
	}

	value, ok := c.sealer.open(r, ckie.Value)
	if !ok {
		lg.Debug("challenge cookie does not decrypt for this client", "token", token)
	}

	return value, ok
}

func (c *Cookie) Remove(w http.ResponseWriter, r *http.Request, token string) {
	if ckie, err := r.Cookie(c.name(token)); err == nil && ckie.Value != "" {
		c.tombstones.Set(internal.FastHash(ckie.Name, ckie.Value), struct{}{}, c.ttl)
	}

	c.opts.clear(w, r, c.name(token))
}

func (c *Cookie) cleanupThread(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.tombstones.Cleanup()
		}
	}
}
