package linkurl

import "strings"

// Classify returns the application raw most likely came from, or NoApp.
//
// A custom scheme alone is enough evidence, even when its host token would not
// allow Normalize to rewrite it. Web URLs are matched on their hostname.
func Classify(raw string) SourceApp {
	p, ok := Parse(raw)
	if !ok {
		return NoApp
	}
	if p.IsWeb() {
		return classifyHost(asciiHost(p.Host))
	}
	if rule, ok := ruleForScheme(p.Scheme); ok {
		return rule.App
	}
	return NoApp
}

func classifyHost(host string) SourceApp {
	if host == "" {
		return NoApp
	}
	for _, r := range domainRules {
		for _, f := range r.Fragments {
			if strings.Contains(host, f) {
				return r.App
			}
		}
	}
	return NoApp
}
