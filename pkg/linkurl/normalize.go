package linkurl

import (
	"net/url"
	"strings"
)

// Normalize rewrites a known app-specific URI into its canonical web URL.
// Web URLs and anything without a matching rule are returned verbatim.
//
// The host token is compared case-insensitively, so INSTAGRAM://MEDIA?id=1
// is rewritten too. The identifier is percent-escaped into the template: an
// id of "a/b" yields ".../p/a%2Fb" rather than an extra path segment.
func Normalize(raw string) string {
	p, ok := Parse(raw)
	if !ok || p.IsWeb() {
		return raw
	}
	if canonical, ok := rewrite(p); ok {
		return canonical
	}
	return raw
}

func rewrite(p ParsedURI) (string, bool) {
	rule, ok := ruleForScheme(p.Scheme)
	if !ok || p.Host != rule.Host {
		return "", false
	}
	value := p.Query.Get(rule.Param)
	if value == "" {
		return "", false
	}
	slot := strings.Index(rule.Template, "{}")
	if q := strings.IndexByte(rule.Template, '?'); q >= 0 && q < slot {
		value = url.QueryEscape(value)
	} else {
		value = url.PathEscape(value)
	}
	return rule.Template[:slot] + value + rule.Template[slot+2:], true
}
