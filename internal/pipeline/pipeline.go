package pipeline

import (
	"github.com/sells-group/startup-research/internal/config"
	"github.com/sells-group/startup-research/internal/llm"
	"github.com/sells-group/startup-research/internal/research"
	"github.com/sells-group/startup-research/internal/search"
)

// Deps are the collaborators a Sequencer is built from.
type Deps struct {
	Generator llm.Generator
	Searcher  search.Searcher
	Extractor research.Extractor
	// Patents may be nil; the technology report then states that patent
	// data is unavailable.
	Patents  PatentSource
	Writer   ReportWriter
	Recorder RunRecorder
}

// New wires the three research stages, synthesizer, gate and final
// aggregator from cfg.
func New(cfg *config.Config, deps Deps) *Sequencer {
	agg := research.NewAggregator(deps.Searcher, deps.Extractor, cfg.Research.Workers)

	techSummarizer := research.Hierarchical{
		Gen:       deps.Generator,
		BatchSize: cfg.Research.BatchSize,
		Sentences: cfg.Research.TechSentences,
	}
	marketSummarizer := research.Flat{
		Gen:       deps.Generator,
		Sentences: cfg.Research.MarketSentences,
	}

	stages := []Stage{
		NewTechStage(agg, techSummarizer, deps.Patents, cfg.Research.MaxResults),
		NewCompetitorStage(deps.Searcher, deps.Generator, cfg.Research.CompetitorSite, cfg.Research.MaxCompetitors),
		NewMarketStage(agg, deps.Searcher, deps.Generator, marketSummarizer, cfg.Research.MaxResults),
	}

	seq := NewSequencer(stages,
		NewSynthesizer(deps.Generator),
		NewGate(deps.Generator, cfg.Gate.FallbackThreshold),
		NewFinalAggregator(deps.Generator, deps.Writer, cfg.Final.Attempts),
		cfg.Gate.MaxRetries,
	)
	if deps.Recorder != nil {
		seq.WithRecorder(deps.Recorder)
	}
	return seq
}
