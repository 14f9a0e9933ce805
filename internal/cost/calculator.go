// Package cost prices external API usage for a run.
package cost

import (
	"github.com/sells-group/startup-research/internal/config"
	"github.com/sells-group/startup-research/internal/model"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaRate             `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlRate        `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// JinaRate holds Jina Reader and Search pricing.
type JinaRate struct {
	PerMTok   float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
	PerSearch float64 `yaml:"per_search" mapstructure:"per_search"`
}

// PerplexityRate holds Perplexity pricing.
type PerplexityRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// FirecrawlRate holds Firecrawl pricing.
type FirecrawlRate struct {
	PerScrape float64 `yaml:"per_scrape" mapstructure:"per_scrape"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude prices one response. Unknown models cost nothing. Batch responses
// get the model's batch discount on every token class.
func (c *Calculator) Claude(modelName string, isBatch bool, u model.TokenUsage) float64 {
	rate, ok := c.rates.Anthropic[modelName]
	if !ok {
		return 0
	}
	mul := 1.0
	if isBatch {
		mul = rate.BatchDiscount
	}
	perTok := rate.Input / 1e6
	return mul * (float64(u.InputTokens)*perTok +
		float64(u.OutputTokens)*rate.Output/1e6 +
		float64(u.CacheCreationTokens)*perTok*rate.CacheWriteMul +
		float64(u.CacheReadTokens)*perTok*rate.CacheReadMul)
}

// Jina computes the cost for Jina Reader token usage.
func (c *Calculator) Jina(tokens int) float64 {
	return (float64(tokens) / 1e6) * c.rates.Jina.PerMTok
}

// JinaSearch returns the flat cost per Jina search.
func (c *Calculator) JinaSearch() float64 {
	return c.rates.Jina.PerSearch
}

// PerplexityQuery returns the flat cost per Perplexity query.
func (c *Calculator) PerplexityQuery() float64 {
	return c.rates.Perplexity.PerQuery
}

// FirecrawlScrape returns the flat cost per Firecrawl scrape.
func (c *Calculator) FirecrawlScrape() float64 {
	return c.rates.Firecrawl.PerScrape
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Jina:       JinaRate{PerMTok: 0.02},
		Perplexity: PerplexityRate{PerQuery: 0.005},
		Firecrawl:  FirecrawlRate{PerScrape: 0.00633},
	}
}

// RatesFromConfig merges configured pricing over DefaultRates. Models named
// in the config replace the default entry for that model.
func RatesFromConfig(p config.PricingConfig) Rates {
	r := DefaultRates()
	for name, mp := range p.Anthropic {
		r.Anthropic[name] = ModelRate{
			Input:         mp.Input,
			Output:        mp.Output,
			BatchDiscount: mp.BatchDiscount,
			CacheWriteMul: mp.CacheWriteMul,
			CacheReadMul:  mp.CacheReadMul,
		}
	}
	if p.Jina.PerMTok > 0 {
		r.Jina.PerMTok = p.Jina.PerMTok
	}
	if p.Jina.PerSearch > 0 {
		r.Jina.PerSearch = p.Jina.PerSearch
	}
	if p.Perplexity.PerQuery > 0 {
		r.Perplexity.PerQuery = p.Perplexity.PerQuery
	}
	if p.Firecrawl.PerScrape > 0 {
		r.Firecrawl.PerScrape = p.Firecrawl.PerScrape
	}
	return r
}
