package stealth

import (
	"net/http"
	"sync"
)

// Fingerprint is a browser identity: a user agent plus the headers that
// browser actually sends with it.
type Fingerprint struct {
	UserAgent string
	Headers   http.Header
}

// FingerprintPool hands out fingerprints round-robin.
type FingerprintPool struct {
	mu           sync.Mutex
	fingerprints []Fingerprint
	idx          int
}

// NewFingerprintPool builds the default pool. acceptLanguage is sent by every
// fingerprint; empty means "en-US,en;q=0.9".
func NewFingerprintPool(acceptLanguage string) *FingerprintPool {
	if acceptLanguage == "" {
		acceptLanguage = "en-US,en;q=0.9"
	}
	return &FingerprintPool{fingerprints: defaultFingerprints(acceptLanguage)}
}

func (fp *FingerprintPool) Next() Fingerprint {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	f := fp.fingerprints[fp.idx%len(fp.fingerprints)]
	fp.idx++
	return f
}

type browser struct {
	ua       string
	chromium string // Chromium major version, empty for Firefox
	platform string
}

var browsers = []browser{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36", "138", "Windows"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36", "138", "macOS"},
	{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36", "137", "Linux"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36 Edg/138.0.0.0", "138", "Windows"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:140.0) Gecko/20100101 Firefox/140.0", "", "Windows"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:140.0) Gecko/20100101 Firefox/140.0", "", "macOS"},
}

func defaultFingerprints(lang string) []Fingerprint {
	out := make([]Fingerprint, 0, len(browsers))
	for _, b := range browsers {
		h := http.Header{}
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		h.Set("Accept-Language", lang)
		h.Set("Sec-Fetch-Dest", "document")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Sec-Fetch-Site", "none")
		h.Set("Sec-Fetch-User", "?1")
		h.Set("Upgrade-Insecure-Requests", "1")
		if b.chromium != "" {
			h.Set("Sec-Ch-Ua", `"Chromium";v="`+b.chromium+`", "Not)A;Brand";v="8", "Google Chrome";v="`+b.chromium+`"`)
			h.Set("Sec-Ch-Ua-Mobile", "?0")
			h.Set("Sec-Ch-Ua-Platform", `"`+b.platform+`"`)
		}
		out = append(out, Fingerprint{UserAgent: b.ua, Headers: h})
	}
	return out
}
