package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/llm"
	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/search"
)

// Competitor search defaults.
const (
	DefaultCompetitorSite = "thevc.kr"
	DefaultMaxCompetitors = 3
	competitorSnippets    = 5
)

// CompetitorStage finds up to MaxCompetitors similar companies listed on a
// startup directory, profiles each and writes a competitive landscape report.
type CompetitorStage struct {
	searcher       search.Searcher
	gen            llm.Generator
	site           string
	maxCompetitors int
}

// NewCompetitorStage creates a CompetitorStage. Empty site and non-positive
// maxCompetitors select the defaults.
func NewCompetitorStage(searcher search.Searcher, gen llm.Generator, site string, maxCompetitors int) *CompetitorStage {
	if site == "" {
		site = DefaultCompetitorSite
	}
	if maxCompetitors <= 0 {
		maxCompetitors = DefaultMaxCompetitors
	}
	return &CompetitorStage{searcher: searcher, gen: gen, site: site, maxCompetitors: maxCompetitors}
}

func (s *CompetitorStage) Name() string { return "competitor" }

func (s *CompetitorStage) Run(ctx context.Context, st model.PipelineState) (model.Patch, error) {
	company, err := st.RequireCompany("pipeline: competitor stage")
	if err != nil {
		return nil, err
	}

	names, err := s.Competitors(ctx, company)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return model.Patch{model.FieldCompetitorReport: NoCompetitorsReport(company)}, nil
	}

	profiles := make([]string, 0, len(names))
	for _, name := range names {
		p, err := s.profile(ctx, name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	text, err := s.gen.Generate(ctx, competitorReportPrompt(company, profiles), llm.Options{})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: competitor report for %s", company)
	}
	return model.Patch{model.FieldCompetitorReport: strings.TrimSpace(text)}, nil
}

// NoCompetitorsReport is the complete report when no similar companies are found.
func NoCompetitorsReport(company string) string {
	return fmt.Sprintf("[%s]에 대한 유사 기업을 찾을 수 없습니다.", company)
}

// Competitors asks the generator to pick the company's listed similar
// companies out of the directory snippets. An empty list is a valid result.
func (s *CompetitorStage) Competitors(ctx context.Context, company string) ([]string, error) {
	snippets := s.snippets(ctx, search.Request{
		Query:      company + " 유사기업",
		Site:       s.site,
		MaxResults: competitorSnippets,
	})
	if len(snippets) == 0 {
		zap.L().Info("pipeline: no directory snippets", zap.String("company", company), zap.String("site", s.site))
		return nil, nil
	}

	text, err := s.gen.Generate(ctx, competitorNamesPrompt(company, strings.Join(snippets, "\n"), s.maxCompetitors), llm.Options{})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: extract competitors for %s", company)
	}
	names := ParseCompetitors(text, company, s.maxCompetitors)
	zap.L().Info("pipeline: competitors extracted", zap.String("company", company), zap.Strings("competitors", names))
	return names, nil
}

func (s *CompetitorStage) profile(ctx context.Context, name string) (string, error) {
	snippets := s.snippets(ctx, search.Request{
		Query:      name + " 스타트업 기술 전략 시장 제품 사업모델",
		MaxResults: competitorSnippets,
	})
	if len(snippets) == 0 {
		return fmt.Sprintf("- 회사명: %s\n- %s", name, model.PlaceholderSummary), nil
	}
	text, err := s.gen.Generate(ctx, profilePrompt(name, snippets), llm.Options{})
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: profile %s", name)
	}
	return strings.TrimSpace(text), nil
}

func (s *CompetitorStage) snippets(ctx context.Context, req search.Request) []string {
	results, err := s.searcher.Search(ctx, req)
	if err != nil {
		zap.L().Warn("pipeline: competitor search failed", zap.String("query", req.Query), zap.Error(err))
		return nil
	}
	var out []string
	for _, r := range results {
		if r.Snippet != "" {
			out = append(out, r.Snippet)
		}
		if len(out) == competitorSnippets {
			break
		}
	}
	return out
}

var (
	competitorSplit  = regexp.MustCompile(`[,，、\n]`)
	competitorPrefix = regexp.MustCompile(`^(?:형식\s*[:：]|유사\s*기업\s*[:：]|\d+[.)]|[-*•])\s*`)
)

// noCompetitorsRe matches whole answers meaning there is nothing to list,
// e.g. "없음" or "해당 없음".
var noCompetitorsRe = regexp.MustCompile(`(?i)^(?:(?:유사\s*기업(?:이|은|는)?\s*)?없(?:음|습니다|어요|다)|해당\s*(?:사항\s*)?없음|n/?a|none)$`)

// ParseCompetitors splits a comma-separated answer into at most limit unique
// names, dropping labels, list markers and the company itself.
func ParseCompetitors(text, company string, limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, part := range competitorSplit.Split(text, -1) {
		name := strings.TrimSpace(part)
		for {
			trimmed := strings.TrimSpace(competitorPrefix.ReplaceAllString(name, ""))
			if trimmed == name {
				break
			}
			name = trimmed
		}
		name = strings.Trim(name, " \"'`*.")
		if name == "" || name == company || seen[name] {
			continue
		}
		if noCompetitorsRe.MatchString(name) {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if len(out) == limit {
			break
		}
	}
	return out
}
