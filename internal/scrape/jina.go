package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/startup-research/internal/cost"
	"github.com/sells-group/startup-research/internal/resilience"
	"github.com/sells-group/startup-research/pkg/jina"
)

// errNeedsFallback marks a reader response that carried no usable content.
var errNeedsFallback = eris.New("jina: response needs fallback")

// JinaAdapter wraps a Jina Reader client as a Scraper behind a circuit
// breaker: 3 consecutive failures open the circuit for 60s, causing
// immediate fallback to the next scraper.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.Breaker
	tracker *cost.Tracker
}

// NewJinaAdapter creates a JinaAdapter from a Jina client. tracker may be nil.
func NewJinaAdapter(client jina.Client, tracker *cost.Tracker) *JinaAdapter {
	return &JinaAdapter{
		client: client,
		breaker: resilience.NewBreaker("jina_reader", 3, 60*time.Second),
		tracker: tracker,
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return !j.breaker.Open()
}

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := resilience.Call(ctx, j.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, errNeedsFallback
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	if j.tracker != nil {
		j.tracker.RecordJinaRead(resp.Data.Usage.Tokens)
	}

	u := resp.Data.URL
	if u == "" {
		u = targetURL
	}
	return &Result{
		URL:        u,
		Title:      resp.Data.Title,
		Paragraphs: markdownParagraphs(resp.Data.Content),
		StatusCode: resp.Code,
		Source:     "jina",
	}, nil
}

// needsFallback reports whether a Reader response is an error, near-empty,
// or an interstitial page instead of content.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil || (resp.Code != 0 && resp.Code != 200) {
		return true
	}
	content := strings.TrimSpace(resp.Data.Content)
	return len(content) < 100 || challengeText(content) != BlockNone
}
