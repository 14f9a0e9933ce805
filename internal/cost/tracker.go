package cost

import (
	"sync"

	"github.com/sells-group/startup-research/internal/model"
)

// Tracker accumulates usage and cost across a run. It is safe for
// concurrent use by the research fan-out.
type Tracker struct {
	calc *Calculator

	mu         sync.Mutex
	usage      model.TokenUsage
	byProvider map[string]float64
	calls      map[string]int
}

// NewTracker creates a Tracker pricing usage with calc.
func NewTracker(calc *Calculator) *Tracker {
	return &Tracker{
		calc:       calc,
		byProvider: make(map[string]float64),
		calls:      make(map[string]int),
	}
}

// RecordClaude prices and records one Claude response.
func (t *Tracker) RecordClaude(modelName string, isBatch bool, u model.TokenUsage) float64 {
	c := t.calc.Claude(modelName, isBatch, u)
	u.Cost = c
	t.record("anthropic", u)
	return c
}

// RecordPerplexity records one Perplexity completion.
func (t *Tracker) RecordPerplexity(u model.TokenUsage) float64 {
	u.Cost = t.calc.PerplexityQuery()
	t.record("perplexity", u)
	return u.Cost
}

// RecordJinaSearch records one search request.
func (t *Tracker) RecordJinaSearch() {
	t.record("jina_search", model.TokenUsage{Cost: t.calc.JinaSearch()})
}

// RecordJinaRead records one reader request consuming tokens.
func (t *Tracker) RecordJinaRead(tokens int) {
	t.record("jina_reader", model.TokenUsage{Cost: t.calc.Jina(tokens)})
}

// RecordFirecrawl records one Firecrawl scrape.
func (t *Tracker) RecordFirecrawl() {
	t.record("firecrawl", model.TokenUsage{Cost: t.calc.FirecrawlScrape()})
}

func (t *Tracker) record(provider string, u model.TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.Add(u)
	t.byProvider[provider] += u.Cost
	t.calls[provider]++
}

// Usage returns the accumulated usage.
func (t *Tracker) Usage() model.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Calls returns the number of recorded calls per provider.
func (t *Tracker) Calls() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.calls))
	for k, v := range t.calls {
		out[k] = v
	}
	return out
}

// ByProvider returns the accumulated cost per provider.
func (t *Tracker) ByProvider() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]float64, len(t.byProvider))
	for k, v := range t.byProvider {
		out[k] = v
	}
	return out
}
