// Package linkurl canonicalizes links shared from other applications and
// classifies which application they came from.
//
// Both entry points, Normalize and Classify, are total functions: they never
// return errors and never panic. Input that cannot be parsed is ordinary data
// and falls back to identity (Normalize) or to NoApp (Classify).
package linkurl

import "strings"

// SourceApp labels the application a shared link originated from.
type SourceApp string

const (
	// NoApp means the classifier could not determine an application.
	NoApp     SourceApp = ""
	Instagram SourceApp = "Instagram"
	X         SourceApp = "X"
	YouTube   SourceApp = "YouTube"
	Web       SourceApp = "Web"
	Unknown   SourceApp = "Unknown"
)

func (a SourceApp) String() string {
	return string(a)
}

// Valid reports whether a is one of the closed set of labels.
func (a SourceApp) Valid() bool {
	switch a {
	case Instagram, X, YouTube, Web, Unknown:
		return true
	}
	return false
}

// SchemeRule maps a custom URI scheme to its canonical web form.
type SchemeRule struct {
	Scheme   string    // lowercase, without ":"
	Host     string    // host token required for a rewrite
	Param    string    // query parameter carrying the identifier
	Template string    // canonical URL, "{}" is replaced by the escaped parameter
	App      SourceApp // label assigned on scheme match alone
}

// DomainRule lists hostname fragments identifying an application on the web.
type DomainRule struct {
	App       SourceApp
	Fragments []string
}

var schemeRules = []SchemeRule{
	{Scheme: "instagram", Host: "media", Param: "id", Template: "https://instagram.com/p/{}", App: Instagram},
	{Scheme: "twitter", Host: "status", Param: "id", Template: "https://x.com/status/{}", App: X},
	{Scheme: "x", Host: "status", Param: "id", Template: "https://x.com/status/{}", App: X},
	{Scheme: "youtube", Host: "watch", Param: "v", Template: "https://youtube.com/watch?v={}", App: YouTube},
}

// Order matters: the first rule with a matching fragment wins.
var domainRules = []DomainRule{
	{App: Instagram, Fragments: []string{"instagram.com"}},
	{App: X, Fragments: []string{"x.com", "twitter.com"}},
	{App: YouTube, Fragments: []string{"youtube.com", "youtu.be"}},
}

// Rules returns a copy of the built-in scheme table.
func Rules() []SchemeRule {
	out := make([]SchemeRule, len(schemeRules))
	copy(out, schemeRules)
	return out
}

// DomainRules returns a copy of the built-in hostname table.
func DomainRules() []DomainRule {
	out := make([]DomainRule, 0, len(domainRules))
	for _, r := range domainRules {
		out = append(out, DomainRule{App: r.App, Fragments: append([]string(nil), r.Fragments...)})
	}
	return out
}

func ruleForScheme(scheme string) (SchemeRule, bool) {
	for _, r := range schemeRules {
		if r.Scheme == scheme {
			return r, true
		}
	}
	return SchemeRule{}, false
}

// aliasMap groups the spellings seen in stored records and user filters under
// a single label.
var aliasMap = map[SourceApp][]string{
	Instagram: {"instagram", "ig", "insta"},
	X:         {"x", "twitter", "tweet"},
	YouTube:   {"youtube", "yt", "youtu.be"},
	Web:       {"web", "browser", "safari", "chrome", "http", "https"},
	Unknown:   {"unknown", "other"},
}

var labelMap map[string]SourceApp

func init() {
	labelMap = make(map[string]SourceApp)
	for app, aliases := range aliasMap {
		for _, a := range aliases {
			labelMap[a] = app
		}
	}
}

// ParseSourceApp maps a free-form label to a SourceApp. Unrecognized labels
// yield Unknown; an empty label yields NoApp.
func ParseSourceApp(label string) SourceApp {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return NoApp
	}
	if app, ok := labelMap[label]; ok {
		return app
	}
	return Unknown
}
