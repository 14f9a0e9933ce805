package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/startup-research/internal/cost"
	"github.com/sells-group/startup-research/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper for single-page
// scrapes. It is the last scraper in the chain.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	timeout time.Duration
	tracker *cost.Tracker
}

// NewFirecrawlAdapter creates a FirecrawlAdapter. tracker may be nil.
func NewFirecrawlAdapter(client firecrawl.Client, timeout time.Duration, tracker *cost.Tracker) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client, timeout: timeout, tracker: tracker}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true; Firecrawl can attempt any URL as a fallback.
func (f *FirecrawlAdapter) Supports(_ string) bool { return true }

// Scrape fetches a single URL via Firecrawl's scrape API, restricted to the
// main content.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		TimeoutMS:       int(f.timeout / time.Millisecond),
	})
	if err != nil {
		return nil, err
	}
	if f.tracker != nil {
		f.tracker.RecordFirecrawl()
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}
	u := resp.Data.URL
	if u == "" {
		u = targetURL
	}
	return &Result{
		URL:        u,
		Title:      resp.Data.Title,
		Paragraphs: markdownParagraphs(resp.Data.Markdown),
		StatusCode: resp.Data.StatusCode,
		Source:     "firecrawl",
	}, nil
}
