package scrape

import (
	"context"
	"strings"
)

// Result holds the readable content of a fetched page.
type Result struct {
	URL        string
	Title      string
	Paragraphs []string
	StatusCode int
	Source     string // e.g. "local_http", "jina", "firecrawl"
}

// Text joins the paragraphs with blank lines.
func (r *Result) Text() string {
	return strings.Join(r.Paragraphs, "\n\n")
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
