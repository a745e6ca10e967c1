package stealth

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ProxyRotator cycles requests through a fixed list of HTTP or SOCKS5 proxies.
type ProxyRotator struct {
	mu         sync.Mutex
	idx        int
	names      []string
	transports []http.RoundTripper
}

// NewProxyRotator parses every proxy URL up front. Returns nil, nil for an
// empty list so callers can go direct.
func NewProxyRotator(rawURLs []string) (*ProxyRotator, error) {
	if len(rawURLs) == 0 {
		return nil, nil
	}
	r := &ProxyRotator{}
	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", raw)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
		r.names = append(r.names, u.Host)
		r.transports = append(r.transports, &http.Transport{
			Proxy:             http.ProxyURL(u),
			DisableKeepAlives: true,
		})
	}
	return r, nil
}

// Next returns the next proxy's transport and host label.
func (r *ProxyRotator) Next() (http.RoundTripper, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.idx % len(r.transports)
	r.idx++
	return r.transports[i], r.names[i]
}

func (r *ProxyRotator) Len() int { return len(r.transports) }

// LoadProxyFile reads one proxy URL per line. Blank lines and lines starting
// with '#' are ignored.
func LoadProxyFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read proxy file: %w", err)
	}
	return out, nil
}
