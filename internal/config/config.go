package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	GenAI      GenAIConfig      `yaml:"genai" mapstructure:"genai"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Gate       GateConfig       `yaml:"gate" mapstructure:"gate"`
	Final      FinalConfig      `yaml:"final" mapstructure:"final"`
	Patent     PatentConfig     `yaml:"patent" mapstructure:"patent"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Companies  []string         `yaml:"companies" mapstructure:"companies"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key                 string  `yaml:"key" mapstructure:"key"`
	Model               string  `yaml:"model" mapstructure:"model"`
	MaxTokens           int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature         float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxBatchSize        int     `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	NoBatch             bool    `yaml:"no_batch" mapstructure:"no_batch"`
	SmallBatchThreshold int     `yaml:"small_batch_threshold" mapstructure:"small_batch_threshold"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// LLMConfig selects the text-generation backend ("anthropic" or "perplexity").
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// JinaConfig holds Jina Search and Reader settings.
type JinaConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string  `yaml:"search_base_url" mapstructure:"search_base_url"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
	SearchRetries int     `yaml:"search_retries" mapstructure:"search_retries"`
}

// FirecrawlConfig holds Firecrawl API settings (extraction fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GenAIConfig holds Gemini embedding settings for the patent index.
type GenAIConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ResearchConfig tunes the search fan-out and summarization.
type ResearchConfig struct {
	MaxResults       int      `yaml:"max_results" mapstructure:"max_results"`
	Workers          int      `yaml:"workers" mapstructure:"workers"`
	FetchTimeoutSecs int      `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	BatchSize        int      `yaml:"batch_size" mapstructure:"batch_size"`
	TechSentences    int      `yaml:"tech_sentences" mapstructure:"tech_sentences"`
	MarketSentences  int      `yaml:"market_sentences" mapstructure:"market_sentences"`
	CompetitorSite   string   `yaml:"competitor_site" mapstructure:"competitor_site"`
	MaxCompetitors   int      `yaml:"max_competitors" mapstructure:"max_competitors"`
	SkipPatterns     []string `yaml:"skip_patterns" mapstructure:"skip_patterns"`
}

// GateConfig bounds the quality gate retry loop.
type GateConfig struct {
	MaxRetries        int `yaml:"max_retries" mapstructure:"max_retries"`
	FallbackThreshold int `yaml:"fallback_threshold" mapstructure:"fallback_threshold"`
}

// FinalConfig configures the cross-company report.
type FinalConfig struct {
	Attempts int `yaml:"attempts" mapstructure:"attempts"`
}

// PatentConfig configures patent indexing and retrieval.
type PatentConfig struct {
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	TopK          int    `yaml:"top_k" mapstructure:"top_k"`
	ChunkChars    int    `yaml:"chunk_chars" mapstructure:"chunk_chars"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// OutputConfig configures where the final report is written.
type OutputConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic  map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaPricing             `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityPricing       `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlPricing        `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// JinaPricing holds Jina pricing.
type JinaPricing struct {
	PerMTok   float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
	PerSearch float64 `yaml:"per_search" mapstructure:"per_search"`
}

// PerplexityPricing holds Perplexity pricing.
type PerplexityPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// FirecrawlPricing holds Firecrawl pricing.
type FirecrawlPricing struct {
	PerScrape float64 `yaml:"per_scrape" mapstructure:"per_scrape"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "startup-research.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.temperature", 0.3)
	v.SetDefault("anthropic.max_batch_size", 100)
	v.SetDefault("anthropic.small_batch_threshold", 3)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.rate_per_sec", 2.0)
	v.SetDefault("jina.burst", 4)
	v.SetDefault("jina.search_retries", 2)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("genai.model", "gemini-embedding-001")
	v.SetDefault("research.max_results", 5)
	v.SetDefault("research.workers", 8)
	v.SetDefault("research.fetch_timeout_secs", 5)
	v.SetDefault("research.batch_size", 5)
	v.SetDefault("research.tech_sentences", 5)
	v.SetDefault("research.market_sentences", 2)
	v.SetDefault("research.competitor_site", "thevc.kr")
	v.SetDefault("research.max_competitors", 3)
	v.SetDefault("research.skip_patterns", []string{"*.pdf", "*.zip", "*.hwp", "*.hwpx", "/login/*", "/member/*"})
	v.SetDefault("gate.max_retries", 3)
	v.SetDefault("gate.fallback_threshold", 1)
	v.SetDefault("final.attempts", 1)
	v.SetDefault("patent.data_dir", "data")
	v.SetDefault("patent.top_k", 50)
	v.SetDefault("patent.chunk_chars", 2000)
	v.SetDefault("patent.pdftotext_path", "pdftotext")
	v.SetDefault("output.path", "투자_최종_보고서.md")
	v.SetDefault("pricing.jina.per_mtok", 0.02)
	v.SetDefault("pricing.jina.per_search", 0.0)
	v.SetDefault("pricing.perplexity.per_query", 0.005)
	v.SetDefault("pricing.firecrawl.per_scrape", 0.00633)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// companyFile is the on-disk shape accepted by LoadCompanies.
type companyFile struct {
	Companies []string `yaml:"companies"`
}

// LoadCompanies reads a company list from a YAML file. Both a bare sequence
// and a mapping with a "companies" key are accepted.
func LoadCompanies(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read companies file %s", path)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return cleanCompanies(list), nil
	}

	var f companyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse companies file %s", path)
	}
	if len(f.Companies) == 0 {
		return nil, eris.Errorf("config: companies file %s lists no companies", path)
	}
	return cleanCompanies(f.Companies), nil
}

func cleanCompanies(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks the settings required by a command. Mode is one of
// "run", "index" or "store".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		switch c.LLM.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		case "perplexity":
			if c.Perplexity.Key == "" {
				errs = append(errs, "perplexity.key is required")
			}
		default:
			errs = append(errs, "llm.provider must be anthropic or perplexity")
		}
		if c.Jina.Key == "" {
			errs = append(errs, "jina.key is required")
		}
		if c.Research.Workers < 1 || c.Research.Workers > 64 {
			errs = append(errs, "research.workers must be between 1 and 64")
		}
		if c.Research.MaxResults < 1 {
			errs = append(errs, "research.max_results must be > 0")
		}
		if c.Research.BatchSize < 1 {
			errs = append(errs, "research.batch_size must be > 0")
		}
		if c.Gate.MaxRetries < 0 {
			errs = append(errs, "gate.max_retries must be >= 0")
		}
		if c.Gate.FallbackThreshold < 0 {
			errs = append(errs, "gate.fallback_threshold must be >= 0")
		}
		if c.Final.Attempts < 1 {
			errs = append(errs, "final.attempts must be >= 1")
		}
	case "index":
		if c.GenAI.Key == "" {
			errs = append(errs, "genai.key is required")
		}
		if c.Patent.ChunkChars < 100 {
			errs = append(errs, "patent.chunk_chars must be >= 100")
		}
	case "store":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
