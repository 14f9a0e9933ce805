package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/patent"
	"github.com/sells-group/startup-research/internal/research"
)

// PatentSource retrieves indexed patent text for a company.
type PatentSource interface {
	Query(ctx context.Context, company, query string) ([]string, error)
	CountPatents(ctx context.Context, company string) (int, error)
}

// TechStage researches a company's technology: four web queries, each
// supplemented with the closest patent chunks and summarized hierarchically,
// then a roll-up over the patent overview and the per-query summaries.
type TechStage struct {
	agg        *research.Aggregator
	summarizer research.Summarizer
	patents    PatentSource
	maxResults int
}

// NewTechStage creates a TechStage. patents may be nil.
func NewTechStage(agg *research.Aggregator, summarizer research.Summarizer, patents PatentSource, maxResults int) *TechStage {
	return &TechStage{agg: agg, summarizer: summarizer, patents: patents, maxResults: maxResults}
}

func (s *TechStage) Name() string { return "tech" }

func (s *TechStage) Run(ctx context.Context, st model.PipelineState) (model.Patch, error) {
	company, err := st.RequireCompany("pipeline: tech stage")
	if err != nil {
		return nil, err
	}

	analysis, err := s.agg.Analyze(ctx, TechQueries(company), research.Options{
		MaxResults: s.maxResults,
		Summarizer: s.summarizer,
		Supplement: func(ctx context.Context, q model.ResearchQuery) []string {
			return s.patentSnippets(ctx, company, q.Topic)
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: tech analysis for %s", company)
	}

	combined := s.patentSnippets(ctx, company, patent.OverviewQuery(company))
	combined = append(combined, analysis.Summaries()...)
	rollup, err := s.summarizer.Summarize(ctx, company+" 기술력", combined)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: tech roll-up for %s", company)
	}

	count := "확인 불가"
	if s.patents != nil {
		if n, err := s.patents.CountPatents(ctx, company); err != nil {
			zap.L().Warn("pipeline: patent count unavailable", zap.String("company", company), zap.Error(err))
		} else {
			count = fmt.Sprintf("%d건", n)
		}
	}

	return model.Patch{model.FieldTechReport: formatTechReport(company, count, analysis, rollup)}, nil
}

func (s *TechStage) patentSnippets(ctx context.Context, company, query string) []string {
	if s.patents == nil {
		return nil
	}
	snips, err := s.patents.Query(ctx, company, query)
	if err != nil {
		zap.L().Warn("pipeline: patent retrieval failed",
			zap.String("company", company),
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}
	return snips
}

func formatTechReport(company, patentCount string, analysis model.QuerySummary, rollup string) string {
	var b strings.Builder
	b.WriteString("기술력 평가\n")
	fmt.Fprintf(&b, "1. 기업: %s\n", company)
	fmt.Fprintf(&b, "2. 특허 문서 수: %s\n", patentCount)
	b.WriteString("3. 기술 분석:\n")
	for _, e := range analysis {
		fmt.Fprintf(&b, "   - %s: %s\n", e.Query, e.Summary)
	}
	fmt.Fprintf(&b, "4. 종합: %s", rollup)
	return b.String()
}
