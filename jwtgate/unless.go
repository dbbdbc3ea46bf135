package jwtgate

import (
	"net/http"
	"net/url"
	"path"
	"regexp"
	"slices"
)

// PathRule exempts requests whose path equals Path or matches Pattern.
//
// When Methods is non-empty the rule is method-scoped: a matching path is
// exempt only for methods outside the list, so the listed methods stay gated.
// ExactPath("/articles", http.MethodPost) lets GET /articles through
// anonymously while POST /articles still needs a token.
type PathRule struct {
	Path    string
	Pattern *regexp.Regexp
	Methods []string
}

// ExactPath returns a rule matching path exactly.
func ExactPath(p string, methods ...string) PathRule {
	return PathRule{Path: p, Methods: methods}
}

// MatchPath returns a rule matching paths against the regular expression expr.
// It panics if expr does not compile.
func MatchPath(expr string, methods ...string) PathRule {
	return PathRule{Pattern: regexp.MustCompile(expr), Methods: methods}
}

func (rule PathRule) matches(p, method string) bool {
	hit := (rule.Path != "" && rule.Path == p) ||
		(rule.Pattern != nil && rule.Pattern.MatchString(p))
	if !hit {
		return false
	}
	return len(rule.Methods) == 0 || !slices.Contains(rule.Methods, method)
}

// UnlessOptions selects requests that bypass the gate. A request is excluded
// if any of the conditions holds.
type UnlessOptions struct {
	// Paths lists path rules.
	Paths []PathRule

	// Methods lists methods excluded on every path.
	Methods []string

	// Extensions lists file extensions, with the leading dot, excluded on
	// every path.
	Extensions []string

	// UseOriginalURL matches against the request line as received
	// (RequestURI) instead of URL.Path, which handlers such as
	// http.StripPrefix rewrite.
	UseOriginalURL bool

	// Custom is consulted last.
	Custom func(r *http.Request) bool
}

// Excludes reports whether r bypasses the gate.
func (o UnlessOptions) Excludes(r *http.Request) bool {
	if slices.Contains(o.Methods, r.Method) {
		return true
	}

	p := o.requestPath(r)
	for _, rule := range o.Paths {
		if rule.matches(p, r.Method) {
			return true
		}
	}

	if ext := path.Ext(p); ext != "" && slices.Contains(o.Extensions, ext) {
		return true
	}

	return o.Custom != nil && o.Custom(r)
}

func (o UnlessOptions) requestPath(r *http.Request) string {
	if o.UseOriginalURL && r.RequestURI != "" {
		if u, err := url.ParseRequestURI(r.RequestURI); err == nil {
			return u.Path
		}
	}
	return r.URL.Path
}
