// Package search runs rate-limited web searches for the research fan-out.
package search

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/startup-research/internal/config"
	"github.com/sells-group/startup-research/internal/cost"
	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/resilience"
	"github.com/sells-group/startup-research/pkg/jina"
)

// DefaultMaxResults is used when a request does not set MaxResults.
const DefaultMaxResults = 5

// Request is a single search.
type Request struct {
	Query      string
	Site       string // optional domain restriction, e.g. "thevc.kr"
	MaxResults int
}

// Searcher returns ranked results for a query.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]model.SearchResult, error)
}

// JinaSearcher implements Searcher over the Jina Search API.
type JinaSearcher struct {
	client   jina.Client
	limiter  *AdaptiveLimiter
	retry    resilience.Backoff
	tracker  *cost.Tracker
	language string
}

// NewJinaSearcher builds a searcher from the jina config. tracker may be nil.
func NewJinaSearcher(client jina.Client, cfg config.JinaConfig, tracker *cost.Tracker) *JinaSearcher {
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}
	retry := resilience.DefaultBackoff()
	retry.Attempts = cfg.SearchRetries + 1
	retry.Base = time.Second
	return &JinaSearcher{
		client:   client,
		limiter:  NewAdaptiveLimiter(rate.Limit(perSec), cfg.Burst),
		retry:    retry,
		tracker:  tracker,
		language: "ko",
	}
}

// WithRetry overrides the retry policy.
func (s *JinaSearcher) WithRetry(b resilience.Backoff) *JinaSearcher {
	s.retry = b
	return s
}

// Search runs one query, retrying transient failures, and returns at most
// MaxResults results in rank order.
func (s *JinaSearcher) Search(ctx context.Context, req Request) ([]model.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, eris.New("search: empty query")
	}
	limit := req.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	opts := []jina.SearchOption{jina.WithoutContent()}
	if s.language != "" {
		opts = append(opts, jina.WithLanguage(s.language))
	}
	if req.Site != "" {
		opts = append(opts, jina.WithSiteFilter(req.Site))
	}

	resp, err := resilience.Retry(ctx, s.retry, "jina_search", func(ctx context.Context) (*jina.SearchResponse, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if s.tracker != nil {
			s.tracker.RecordJinaSearch()
		}
		resp, err := s.client.Search(ctx, query, opts...)
		if err != nil {
			var apiErr *jina.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
				s.limiter.OnRateLimit()
			}
			return nil, err
		}
		s.limiter.OnSuccess()
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "search: query %q", query)
	}

	results := make([]model.SearchResult, 0, min(limit, len(resp.Data)))
	seen := make(map[string]bool, len(resp.Data))
	for _, r := range resp.Data {
		if len(results) == limit {
			break
		}
		if key := urlKey(r.URL); key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		results = append(results, model.SearchResult{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: strings.TrimSpace(r.Snippet()),
		})
	}
	zap.L().Debug("search: results",
		zap.String("query", query),
		zap.String("site", req.Site),
		zap.Int("count", len(results)),
	)
	return results, nil
}

// urlKey normalizes a result URL for duplicate detection.
func urlKey(raw string) string {
	return strings.TrimSuffix(strings.TrimSpace(raw), "/")
}
