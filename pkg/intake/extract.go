// Package intake turns a string shared by another application into a saved
// link: it filters development URLs, extracts the target, canonicalizes and
// classifies it, and hands the result to a save collaborator.
package intake

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/flashmemo/flashmemo/pkg/linkurl"
)

// developmentPrefixes and developmentMarkers identify URLs produced by the
// development runtime itself rather than by a share.
var (
	developmentPrefixes = []string{"exp://", "exps://", "expo-development://"}
	developmentMarkers  = []string{"localhost", "192.168.", "127.0.0.1"}
)

var sharePrefix = regexp.MustCompile(`^[^:]+://[^?]*\?`)

// IsDevelopmentURL reports whether raw comes from the development runtime.
func IsDevelopmentURL(raw string) bool {
	for _, p := range developmentPrefixes {
		if strings.HasPrefix(raw, p) {
			return true
		}
	}
	for _, m := range developmentMarkers {
		if strings.Contains(raw, m) {
			return true
		}
	}
	return false
}

// ExtractTarget pulls the shared link out of a share payload. The url query
// parameter wins over text; without either, a leading "scheme://host?" is
// stripped and a "url=" remainder is percent-decoded.
func ExtractTarget(raw string) (string, bool) {
	if u, err := url.Parse(raw); err == nil {
		q := u.Query()
		for _, key := range []string{"url", "text"} {
			if v := q.Get(key); v != "" {
				return v, true
			}
		}
	}

	target := sharePrefix.ReplaceAllLiteralString(raw, "")
	if strings.HasPrefix(target, "url=") {
		rest := target[len("url="):]
		if decoded, err := url.PathUnescape(rest); err == nil {
			rest = decoded
		}
		target = rest
	}
	return target, target != ""
}

// ValidTarget reports whether target looks like a web link. The check is a
// case-sensitive "http" prefix covering both http: and https:.
func ValidTarget(target string) bool {
	return strings.HasPrefix(target, "http")
}

// WrapTarget packs a link that was handed over on its own, outside any share
// payload, into a payload whose url parameter carries it. App links are
// canonicalized first so the http check accepts them.
func WrapTarget(target string) string {
	return "flashmemo://share?url=" + url.QueryEscape(linkurl.Normalize(target))
}

// PayloadFor treats s as a bare link when it canonicalizes to a web URL and
// wraps it; anything else is passed through as a share payload.
func PayloadFor(s string) string {
	if ValidTarget(linkurl.Normalize(s)) {
		return WrapTarget(s)
	}
	return s
}
