package fetcher

import "net/http"

// applyBrowserHeaders fills in the headers a desktop Chrome sends on a
// top-level navigation, leaving any caller-provided value in place.
func applyBrowserHeaders(h http.Header, userAgent string) {
	set := func(k, v string) {
		if h.Get(k) == "" {
			h.Set(k, v)
		}
	}
	set("User-Agent", userAgent)
	set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	set("Accept-Language", "en-US,en;q=0.5")
	set("Accept-Encoding", "gzip, deflate, br")
	set("Upgrade-Insecure-Requests", "1")
	set("Sec-Fetch-Dest", "document")
	set("Sec-Fetch-Mode", "navigate")
	set("Sec-Fetch-Site", "none")
	set("Sec-Fetch-User", "?1")
}
