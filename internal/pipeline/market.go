package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/llm"
	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/research"
	"github.com/sells-group/startup-research/internal/search"
)

// UnclassifiedDomain is used when the classifier returns nothing.
const UnclassifiedDomain = "미분류"

const classifySnippets = 5

// MarketStage classifies the company's domain and researches domain-level and
// company-level market queries with paragraph extraction enabled.
type MarketStage struct {
	agg        *research.Aggregator
	searcher   search.Searcher
	gen        llm.Generator
	summarizer research.Summarizer
	maxResults int
}

// NewMarketStage creates a MarketStage.
func NewMarketStage(agg *research.Aggregator, searcher search.Searcher, gen llm.Generator, summarizer research.Summarizer, maxResults int) *MarketStage {
	return &MarketStage{agg: agg, searcher: searcher, gen: gen, summarizer: summarizer, maxResults: maxResults}
}

func (s *MarketStage) Name() string { return "market" }

func (s *MarketStage) Run(ctx context.Context, st model.PipelineState) (model.Patch, error) {
	company, err := st.RequireCompany("pipeline: market stage")
	if err != nil {
		return nil, err
	}

	domain, err := s.Classify(ctx, company)
	if err != nil {
		return nil, err
	}

	opts := research.Options{MaxResults: s.maxResults, Extract: true, Summarizer: s.summarizer}
	domainAnalysis, err := s.agg.Analyze(ctx, DomainQueries(domain), opts)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: market domain analysis for %s", company)
	}
	companyAnalysis, err := s.agg.Analyze(ctx, CompanyQueries(company), opts)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: market company analysis for %s", company)
	}

	return model.Patch{model.FieldMarketReport: formatMarketReport(company, domain, domainAnalysis, companyAnalysis)}, nil
}

// Classify tags the company's core domain in one or two words from a single
// search over the company name.
func (s *MarketStage) Classify(ctx context.Context, company string) (string, error) {
	results, err := s.searcher.Search(ctx, search.Request{Query: company, MaxResults: classifySnippets})
	if err != nil {
		zap.L().Warn("pipeline: domain search failed", zap.String("company", company), zap.Error(err))
	}
	var snippets []string
	for _, r := range results {
		if r.Snippet != "" {
			snippets = append(snippets, r.Snippet)
		}
	}
	snippets = snippets[:min(classifySnippets, len(snippets))]

	text, err := s.gen.Generate(ctx, domainPrompt(company, snippets), llm.Options{
		MaxTokens:   20,
		Temperature: llm.Float(0),
	})
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: classify domain for %s", company)
	}
	domain := cleanDomain(text)
	if domain == "" {
		domain = UnclassifiedDomain
	}
	zap.L().Debug("pipeline: classified domain", zap.String("company", company), zap.String("domain", domain))
	return domain, nil
}

func cleanDomain(text string) string {
	line := firstNonEmptyLine(text)
	line = strings.Trim(line, " \t\"'`*.")
	return strings.TrimSpace(line)
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func formatMarketReport(company, domain string, domainAnalysis, companyAnalysis model.QuerySummary) string {
	var b strings.Builder
	b.WriteString("시장성 평가\n")
	fmt.Fprintf(&b, "1. 기업: %s\n", company)
	fmt.Fprintf(&b, "2. 도메인: %s\n", domain)
	b.WriteString("3. 도메인 분석:\n")
	for _, e := range domainAnalysis {
		fmt.Fprintf(&b, "   - %s: %s\n", e.Query, e.Summary)
	}
	b.WriteString("4. 기업 분석:")
	for _, e := range companyAnalysis {
		fmt.Fprintf(&b, "\n   - %s: %s", e.Query, e.Summary)
	}
	return b.String()
}
