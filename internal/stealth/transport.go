package stealth

import (
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

// Transport is an http.RoundTripper that applies, in order:
// robots check, rate limit, human delay, fingerprint, proxy.
type Transport struct {
	Base        http.RoundTripper
	Robots      *RobotsChecker
	Fingerprint *FingerprintPool
	Proxy       *ProxyRotator
	Delay       *HumanDelay
	RateLimiter *rate.Limiter
	Logger      *slog.Logger
}

// ErrDisallowed is returned for URLs robots.txt forbids.
type ErrDisallowed struct{ URL string }

func (e *ErrDisallowed) Error() string { return fmt.Sprintf("blocked by robots.txt: %s", e.URL) }

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var fp Fingerprint
	if t.Fingerprint != nil {
		fp = t.Fingerprint.Next()
	}

	if t.Robots != nil {
		ua := fp.UserAgent
		if ua == "" {
			ua = req.UserAgent()
		}
		allowed, err := t.Robots.IsAllowed(ctx, ua, req.URL.String())
		if err == nil && !allowed {
			return nil, &ErrDisallowed{URL: req.URL.String()}
		}
	}

	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	if t.Delay != nil {
		if err := t.Delay.Wait(ctx); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
	}

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(ctx)
	if fp.UserAgent != "" {
		req.Header.Set("User-Agent", fp.UserAgent)
		for key, vals := range fp.Headers {
			if req.Header.Get(key) == "" {
				req.Header[key] = append([]string(nil), vals...)
			}
		}
	}

	base := t.Base
	if t.Proxy != nil {
		var via string
		base, via = t.Proxy.Next()
		if t.Logger != nil {
			t.Logger.DebugContext(ctx, "request via proxy", slog.String("proxy", via), slog.String("url", req.URL.String()))
		}
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
