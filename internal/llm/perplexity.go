package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/config"
	"github.com/sells-group/startup-research/internal/cost"
	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/resilience"
	"github.com/sells-group/startup-research/pkg/perplexity"
)

// PerplexityGenerator implements Generator over Perplexity chat completions.
// Token and temperature defaults are shared with the anthropic section.
type PerplexityGenerator struct {
	client      perplexity.Client
	maxTokens   int
	temperature float64
	retry       resilience.Backoff
	tracker     *cost.Tracker
}

// NewPerplexityGenerator creates a generator. tracker may be nil.
func NewPerplexityGenerator(client perplexity.Client, defaults config.AnthropicConfig, tracker *cost.Tracker) *PerplexityGenerator {
	maxTokens := int(defaults.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &PerplexityGenerator{
		client:      client,
		maxTokens:   maxTokens,
		temperature: defaults.Temperature,
		retry:       resilience.DefaultBackoff(),
		tracker:     tracker,
	}
}

// WithRetry overrides the retry policy for 429 and 5xx responses.
func (g *PerplexityGenerator) WithRetry(b resilience.Backoff) *PerplexityGenerator {
	g.retry = b
	return g
}

// Generate sends a single chat completion and returns its text.
func (g *PerplexityGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	maxTokens := g.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = int(opts.MaxTokens)
	}
	temp := opts.Temperature
	if temp == nil {
		temp = Float(g.temperature)
	}

	req := perplexity.ChatRequest{Temperature: temp, MaxTokens: &maxTokens}
	if opts.System != "" {
		req.Messages = append(req.Messages, perplexity.System(opts.System))
	}
	req.Messages = append(req.Messages, perplexity.User(prompt))

	resp, err := resilience.Retry(ctx, g.retry, "perplexity_chat", func(ctx context.Context) (*perplexity.ChatResponse, error) {
		return g.client.Chat(ctx, req)
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: perplexity generate")
	}
	if g.tracker != nil {
		g.tracker.RecordPerplexity(model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		})
	}
	if len(resp.Citations) > 0 {
		zap.L().Debug("llm: perplexity citations", zap.Strings("urls", resp.Citations))
	}
	return resp.Text(), nil
}
