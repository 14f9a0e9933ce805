// Package llm adapts the text-generation providers to a single prompt-in,
// text-out interface used by every pipeline stage.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/startup-research/internal/config"
	"github.com/sells-group/startup-research/internal/cost"
	"github.com/sells-group/startup-research/pkg/anthropic"
	"github.com/sells-group/startup-research/pkg/perplexity"
)

// Options tune a single generation call. Zero values fall back to the
// provider defaults from config.
type Options struct {
	MaxTokens   int64
	Temperature *float64
	System      string
}

// Float returns a pointer to v, for Options.Temperature.
func Float(v float64) *float64 { return &v }

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// BatchGenerator can run many independent prompts at once. Results are
// returned in prompt order.
type BatchGenerator interface {
	Generator
	GenerateBatch(ctx context.Context, prompts []string, opts Options) ([]string, error)
}

// Provider names accepted by llm.provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderPerplexity = "perplexity"
)

// New builds the generator selected by cfg.LLM.Provider. tracker may be nil.
func New(cfg *config.Config, tracker *cost.Tracker) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "", ProviderAnthropic:
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return NewAnthropicGenerator(client, cfg.Anthropic, tracker), nil
	case ProviderPerplexity:
		opts := []perplexity.Option{}
		if cfg.Perplexity.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(cfg.Perplexity.BaseURL))
		}
		if cfg.Perplexity.Model != "" {
			opts = append(opts, perplexity.WithModel(cfg.Perplexity.Model))
		}
		client := perplexity.NewClient(cfg.Perplexity.Key, opts...)
		return NewPerplexityGenerator(client, cfg.Anthropic, tracker), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}
}
