package linkurl

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ParsedURI is the generic decomposition of a shared string.
type ParsedURI struct {
	Scheme string // lowercase
	Host   string // lowercase, without userinfo or port
	Path   string
	Query  url.Values
}

// Parse decomposes raw into a ParsedURI. ok is false when raw does not
// conform to generic URI grammar or carries no scheme.
func Parse(raw string) (ParsedURI, bool) {
	if raw == "" {
		return ParsedURI{}, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ParsedURI{}, false
	}
	return ParsedURI{
		Scheme: strings.ToLower(u.Scheme),
		Host:   strings.ToLower(u.Hostname()),
		Path:   u.Path,
		// Query drops malformed pairs instead of failing.
		Query: u.Query(),
	}, true
}

// IsWeb reports whether the scheme is http or https.
func (p ParsedURI) IsWeb() bool {
	return p.Scheme == "http" || p.Scheme == "https"
}

// asciiHost folds an internationalized hostname to its ASCII form so domain
// fragments match regardless of how the host was typed.
func asciiHost(host string) string {
	if host == "" {
		return host
	}
	h, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host
	}
	return strings.ToLower(h)
}
