// Package scrape fetches result pages for the research fan-out and reduces
// them to paragraph text, trying a chain of scrapers in priority order.
package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries scrapers in priority order, returning the first success.
type Chain struct {
	filter   *URLFilter
	scrapers []Scraper
	timeout  time.Duration
}

// NewChain creates a Chain. A nil filter uses the default skip patterns.
func NewChain(filter *URLFilter, scrapers ...Scraper) *Chain {
	if filter == nil {
		filter = NewURLFilter(nil)
	}
	return &Chain{
		filter:   filter,
		scrapers: scrapers,
		timeout:  DefaultFetchTimeout,
	}
}

// WithTimeout bounds each Extract call, covering every scraper tried for the
// URL. Non-positive values leave the default.
func (c *Chain) WithTimeout(d time.Duration) *Chain {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Scrape tries each scraper in order for a single URL.
// Returns the first successful result, or an error if all fail.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if c.filter.Skip(targetURL) {
		return nil, eris.Errorf("scrape: url skipped: %s", targetURL)
	}

	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		result, err := s.Scrape(ctx, targetURL)
		if err == nil && result != nil {
			return result, nil
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

// Extract fetches a URL within the chain timeout and returns its paragraphs.
func (c *Chain) Extract(ctx context.Context, targetURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.Scrape(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	return result.Paragraphs, nil
}
