package fetch

import "net/http"

// Browser identity presented to regulator sites. Some of them serve
// degraded or empty listings to obvious bots.
const (
	chromeUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	chromeClientHints = `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`
	chromePlatform    = `"macOS"`
)

// HeaderProfile names a fixed request-header set.
type HeaderProfile string

// Header profiles per fetched resource kind.
const (
	ProfilePage     HeaderProfile = "page"
	ProfileFeed     HeaderProfile = "feed"
	ProfileDocument HeaderProfile = "document"
)

func headersFor(profile HeaderProfile) http.Header {
	h := http.Header{
		"Accept-Language":           {"de-DE,de;q=0.9,en;q=0.8,en-US;q=0.7"},
		"Cache-Control":             {"no-cache"},
		"Pragma":                    {"no-cache"},
		"Sec-Fetch-Dest":            {"document"},
		"Sec-Fetch-Mode":            {"navigate"},
		"Sec-Fetch-Site":            {"none"},
		"Sec-Fetch-User":            {"?1"},
		"Upgrade-Insecure-Requests": {"1"},
		"Sec-Ch-Ua":                 {chromeClientHints},
		"Sec-Ch-Ua-Platform":        {chromePlatform},
	}
	switch profile {
	case ProfileFeed:
		h.Set("Accept", "application/rss+xml,application/xml;q=0.9,*/*;q=0.8")
	case ProfileDocument:
		h.Set("Accept", "application/pdf,application/octet-stream;q=0.9,*/*;q=0.8")
	default:
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	}
	return h
}
