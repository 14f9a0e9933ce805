package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/config"
	"github.com/sells-group/startup-research/internal/cost"
	"github.com/sells-group/startup-research/internal/llm"
	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/ocr"
	"github.com/sells-group/startup-research/internal/patent"
	"github.com/sells-group/startup-research/internal/pipeline"
	"github.com/sells-group/startup-research/internal/report"
	"github.com/sells-group/startup-research/internal/scrape"
	"github.com/sells-group/startup-research/internal/search"
	"github.com/sells-group/startup-research/internal/store"
	"github.com/sells-group/startup-research/pkg/firecrawl"
	"github.com/sells-group/startup-research/pkg/jina"
)

// pipelineEnv holds the store, cost tracker and sequencer needed by the run
// command.
type pipelineEnv struct {
	Store     store.Store
	Tracker   *cost.Tracker
	Sequencer *pipeline.Sequencer
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// newJinaClient builds the Jina client used for both search and reading.
func newJinaClient() jina.Client {
	opts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		opts = append(opts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	return jina.NewClient(cfg.Jina.Key, opts...)
}

// initPatentIndex builds the patent index, or returns nil when no embedding
// key is configured.
func initPatentIndex(ctx context.Context, st store.Store) (*patent.Index, error) {
	if cfg.GenAI.Key == "" {
		zap.L().Debug("RESEARCH_GENAI_KEY not set, patent retrieval disabled")
		return nil, nil
	}
	emb, err := patent.NewGenAIEmbedder(ctx, cfg.GenAI)
	if err != nil {
		return nil, eris.Wrap(err, "init embedder")
	}
	return patent.NewIndex(cfg.Patent.DataDir, cfg.Patent.ChunkChars, cfg.Patent.TopK,
		ocr.NewPdfToText(cfg.Patent.PdfToTextPath), emb, st), nil
}

// initPipeline sets up the store, API clients, scrape chain and patent index
// and builds the Sequencer. Callers should defer env.Close().
func initPipeline(ctx context.Context, outputPath string) (*pipelineEnv, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	tracker := cost.NewTracker(cost.NewCalculator(cost.RatesFromConfig(cfg.Pricing)))

	gen, err := llm.New(cfg, tracker)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	jinaClient := newJinaClient()
	searcher := search.NewJinaSearcher(jinaClient, cfg.Jina, tracker)

	// Build scrape chain: local fetch, then Jina Reader, then Firecrawl when keyed.
	fetchTimeout := time.Duration(cfg.Research.FetchTimeoutSecs) * time.Second
	scrapers := []scrape.Scraper{
		scrape.NewLocalScraper(fetchTimeout),
		scrape.NewJinaAdapter(jinaClient, tracker),
	}
	if cfg.Firecrawl.Key != "" {
		firecrawlClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(firecrawlClient, fetchTimeout, tracker))
	}
	chain := scrape.NewChain(scrape.NewURLFilter(cfg.Research.SkipPatterns), scrapers...).
		WithTimeout(fetchTimeout)

	deps := pipeline.Deps{
		Generator: gen,
		Searcher:  searcher,
		Extractor: chain,
		Writer:    report.NewWriter(outputPath),
		Recorder:  st,
	}

	idx, err := initPatentIndex(ctx, st)
	if err != nil {
		zap.L().Warn("patent index unavailable, technology reports will omit patents", zap.Error(err))
	} else if idx != nil {
		deps.Patents = idx
		zap.L().Info("patent retrieval enabled", zap.String("data_dir", cfg.Patent.DataDir))
	}

	return &pipelineEnv{
		Store:     st,
		Tracker:   tracker,
		Sequencer: pipeline.New(cfg, deps),
	}, nil
}

// resolveCompanies picks the company list: the --companies file, then the
// companies config key, then the built-in default list.
func resolveCompanies(path string, configured []string) ([]string, error) {
	if path != "" {
		return config.LoadCompanies(path)
	}
	if len(configured) > 0 {
		return configured, nil
	}
	return append([]string(nil), model.DefaultStartups...), nil
}
