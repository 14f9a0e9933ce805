// Package research implements the fan-out research step shared by the
// technology and market stages: search every query, optionally extract
// keyword-bearing paragraphs from each result page on a bounded worker pool,
// merge, and summarize per query.
package research

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/search"
)

// DefaultWorkers is the extraction pool size.
const DefaultWorkers = 8

// Extractor fetches a page and returns its paragraphs.
type Extractor interface {
	Extract(ctx context.Context, url string) ([]string, error)
}

// Summarizer reduces a snippet set to one summary for title. An empty
// snippet set yields model.PlaceholderSummary without a generation call.
type Summarizer interface {
	Summarize(ctx context.Context, title string, snippets []string) (string, error)
}

// SupplementFunc contributes extra snippets for a query, appended after the
// search and extraction snippets.
type SupplementFunc func(ctx context.Context, q model.ResearchQuery) []string

// Options control one Analyze call.
type Options struct {
	MaxResults int
	Site       string
	Extract    bool
	Summarizer Summarizer
	Supplement SupplementFunc
}

// Aggregator runs the fan-out research step.
type Aggregator struct {
	searcher  search.Searcher
	extractor Extractor
	workers   int
}

// NewAggregator creates an Aggregator. extractor may be nil when no stage
// enables extraction. workers <= 0 uses DefaultWorkers.
func NewAggregator(searcher search.Searcher, extractor Extractor, workers int) *Aggregator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Aggregator{searcher: searcher, extractor: extractor, workers: workers}
}

// Analyze researches each query in order and returns one summary per query.
// Search and extraction failures degrade the snippet set; only a failed
// summarization call is returned as an error.
func (a *Aggregator) Analyze(ctx context.Context, queries []model.ResearchQuery, opts Options) (model.QuerySummary, error) {
	if opts.Summarizer == nil {
		return nil, eris.New("research: no summarizer configured")
	}

	out := make(model.QuerySummary, 0, len(queries))
	for _, q := range queries {
		snippets := a.Gather(ctx, q, opts)
		summary, err := opts.Summarizer.Summarize(ctx, q.Topic, snippets)
		if err != nil {
			return nil, eris.Wrapf(err, "research: summarize %q", q.Topic)
		}
		out = append(out, model.QuerySummaryEntry{Query: q.Topic, Summary: summary})
	}
	return out, nil
}

// Gather collects the merged snippet set for one query: API snippets first,
// then extracted paragraphs, then supplements.
func (a *Aggregator) Gather(ctx context.Context, q model.ResearchQuery, opts Options) []string {
	results, err := a.searcher.Search(ctx, search.Request{
		Query:      q.Topic,
		Site:       opts.Site,
		MaxResults: opts.MaxResults,
	})
	if err != nil {
		zap.L().Warn("research: search failed, continuing with no results",
			zap.String("query", q.Topic),
			zap.Error(err),
		)
		results = nil
	}

	var snippets []string
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if s := strings.TrimSpace(r.Snippet); s != "" {
			snippets = append(snippets, s)
		}
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}

	if opts.Extract && a.extractor != nil && len(urls) > 0 {
		snippets = append(snippets, a.extractAll(ctx, urls, q.Keywords)...)
	}

	if opts.Supplement != nil {
		snippets = append(snippets, opts.Supplement(ctx, q)...)
	}
	return snippets
}

// extractAll fetches every URL on the worker pool and returns the paragraphs
// containing at least one keyword. Each worker writes only its own slot; the
// slots are merged after the join barrier.
func (a *Aggregator) extractAll(ctx context.Context, urls, keywords []string) []string {
	perURL := make([][]string, len(urls))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, u := range urls {
		g.Go(func() error {
			paras, err := a.extractor.Extract(ctx, u)
			if err != nil {
				zap.L().Warn("research: extraction failed",
					zap.String("url", u),
					zap.Error(err),
				)
				return nil
			}
			perURL[i] = FilterByKeywords(paras, keywords)
			return nil
		})
	}
	_ = g.Wait()

	var merged []string
	for _, p := range perURL {
		merged = append(merged, p...)
	}
	return merged
}

// FilterByKeywords keeps the paragraphs that contain at least one keyword.
// Both sides are NFC-normalized so composed and decomposed Hangul match.
// With no keywords nothing is kept.
func FilterByKeywords(paras, keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = norm.NFC.String(strings.TrimSpace(kw)); kw != "" {
			normalized = append(normalized, kw)
		}
	}

	var kept []string
	for _, p := range paras {
		text := norm.NFC.String(p)
		for _, kw := range normalized {
			if strings.Contains(text, kw) {
				kept = append(kept, p)
				break
			}
		}
	}
	return kept
}
