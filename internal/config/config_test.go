package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "startup-research.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.InDelta(t, 0.3, cfg.Anthropic.Temperature, 0.001)
	assert.Equal(t, 3, cfg.Anthropic.SmallBatchThreshold)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, "https://api.firecrawl.dev/v2", cfg.Firecrawl.BaseURL)
	assert.Equal(t, "gemini-embedding-001", cfg.GenAI.Model)
	assert.Equal(t, 5, cfg.Research.MaxResults)
	assert.Equal(t, 8, cfg.Research.Workers)
	assert.Equal(t, 5, cfg.Research.FetchTimeoutSecs)
	assert.Equal(t, 5, cfg.Research.BatchSize)
	assert.Equal(t, 5, cfg.Research.TechSentences)
	assert.Equal(t, 2, cfg.Research.MarketSentences)
	assert.Equal(t, "thevc.kr", cfg.Research.CompetitorSite)
	assert.Equal(t, 3, cfg.Gate.MaxRetries)
	assert.Equal(t, 1, cfg.Gate.FallbackThreshold)
	assert.Equal(t, 1, cfg.Final.Attempts)
	assert.Equal(t, 50, cfg.Patent.TopK)
	assert.Equal(t, 2000, cfg.Patent.ChunkChars)
	assert.Equal(t, "투자_최종_보고서.md", cfg.Output.Path)
	assert.Empty(t, cfg.Companies)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/research
log:
  level: debug
  format: console
gate:
  max_retries: 5
companies:
  - 업스테이지
  - 뤼이드
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Gate.MaxRetries)
	assert.Equal(t, []string{"업스테이지", "뤼이드"}, cfg.Companies)
	// Defaults still apply for unset values
	assert.Equal(t, 1, cfg.Gate.FallbackThreshold)
	assert.Equal(t, 8, cfg.Research.Workers)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RESEARCH_STORE_DRIVER", "postgres")
	t.Setenv("RESEARCH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("RESEARCH_RESEARCH_WORKERS", "3")
	t.Setenv("RESEARCH_GATE_MAX_RETRIES", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Research.Workers)
	assert.Equal(t, 1, cfg.Gate.MaxRetries)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unterminated"), 0644))

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadCompanies(t *testing.T) {
	dir := t.TempDir()

	t.Run("bare sequence", func(t *testing.T) {
		path := filepath.Join(dir, "list.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- 업스테이지\n- \"  노타AI \"\n- \"\"\n"), 0644))
		got, err := LoadCompanies(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"업스테이지", "노타AI"}, got)
	})

	t.Run("mapping", func(t *testing.T) {
		path := filepath.Join(dir, "map.yaml")
		require.NoError(t, os.WriteFile(path, []byte("companies:\n  - 트웰브랩스\n"), 0644))
		got, err := LoadCompanies(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"트웰브랩스"}, got)
	})

	t.Run("empty mapping", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("companies: []\n"), 0644))
		_, err := LoadCompanies(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "lists no companies")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCompanies(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with run defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "test.db"
	cfg.LLM.Provider = "anthropic"
	cfg.Research.Workers = 8
	cfg.Research.MaxResults = 5
	cfg.Research.BatchSize = 5
	cfg.Gate.MaxRetries = 3
	cfg.Gate.FallbackThreshold = 1
	cfg.Final.Attempts = 1
	cfg.Patent.ChunkChars = 2000
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Jina.Key = "jina-key"

	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_MissingKeys(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "jina.key is required")
}

func TestValidateRun_PerplexityProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = "perplexity"
	cfg.Jina.Key = "jina-key"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "perplexity.key is required")

	cfg.Perplexity.Key = "pplx"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "k"
	cfg.Jina.Key = "k"

	cfg.Research.Workers = 0
	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "research.workers must be between 1 and 64")

	cfg.Research.Workers = 8
	cfg.Final.Attempts = 0
	err = cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "final.attempts")

	cfg.Final.Attempts = 1
	cfg.Gate.MaxRetries = -1
	err = cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gate.max_retries")
}

func TestValidateIndex(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("index")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "genai.key is required")

	cfg.GenAI.Key = "g"
	assert.NoError(t, cfg.Validate("index"))
}

func TestValidateStoreDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("store")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
