package scrape

import (
	"net/url"
	"path"
	"strings"
)

// DefaultSkipPatterns excludes binary documents and login walls.
var DefaultSkipPatterns = []string{"*.pdf", "*.zip", "*.hwp", "*.hwpx", "/login/*", "/member/*"}

// URLFilter rejects result URLs that are not worth fetching. Patterns are
// case-insensitive globs: one with a leading slash matches the path, and a
// trailing "/*" also matches everything below that directory; one without
// a slash matches the last path segment.
type URLFilter struct {
	patterns []string
}

// NewURLFilter builds a filter. No patterns selects DefaultSkipPatterns.
func NewURLFilter(patterns []string) *URLFilter {
	if len(patterns) == 0 {
		patterns = DefaultSkipPatterns
	}
	f := &URLFilter{patterns: make([]string, len(patterns))}
	for i, p := range patterns {
		f.patterns[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return f
}

// Skip reports whether rawURL should not be fetched: it does not parse, is
// not http(s), or matches a pattern.
func (f *URLFilter) Skip(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pat := range f.patterns {
		if globMatch(pat, p) {
			return true
		}
	}
	return false
}

func globMatch(pattern, p string) bool {
	if !strings.HasPrefix(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(p))
		return ok
	}
	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	if dir, ok := strings.CutSuffix(pattern, "/*"); ok {
		return p == dir || strings.HasPrefix(p, dir+"/")
	}
	return false
}
