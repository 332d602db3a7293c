package storage

import (
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// ExtractRootDomain returns the registrable domain of a web URL.
// e.g., "https://m.youtube.com/watch?v=1" -> "youtube.com", true
func ExtractRootDomain(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	// IPs and single-label hosts have no registrable domain.
	if !strings.Contains(host, ".") || strings.Trim(host, "0123456789.") == "" {
		return "", false
	}

	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return "", false
	}
	return domain, true
}
