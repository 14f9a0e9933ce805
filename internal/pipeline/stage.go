// Package pipeline evaluates a list of startups: it drives each company
// through the technology, competitor and market research stages, synthesizes
// a scored investment summary, gates it for quality with bounded retries and
// finally aggregates every company into one ranked report.
package pipeline

import (
	"context"

	"github.com/sells-group/startup-research/internal/model"
)

// Stage produces one research report for the state's current company. A
// stage receives a snapshot and returns the fields it sets; it never writes
// the state itself.
type Stage interface {
	Name() string
	Run(ctx context.Context, st model.PipelineState) (model.Patch, error)
}

// Keyword templates for the generated research queries.
var (
	TechKeywords          = []string{"핵심 기술 키워드", "R&D 현황", "특허 건수 및 영역", "제품·솔루션 기술력"}
	MarketDomainKeywords  = []string{"시장 규모", "CAGR", "핵심 기술 트렌드"}
	MarketCompanyKeywords = []string{"시장 점유율", "손익", "펀딩 현황", "매출 현황"}
)

// TechQueries builds "{company} {kw}" for every technology keyword.
func TechQueries(company string) []model.ResearchQuery {
	out := make([]model.ResearchQuery, 0, len(TechKeywords))
	for _, kw := range TechKeywords {
		out = append(out, model.ResearchQuery{Topic: company + " " + kw, Keywords: []string{company}})
	}
	return out
}

// DomainQueries builds "{domain} 시장 {kw}" filtered by the domain tag.
func DomainQueries(domain string) []model.ResearchQuery {
	out := make([]model.ResearchQuery, 0, len(MarketDomainKeywords))
	for _, kw := range MarketDomainKeywords {
		out = append(out, model.ResearchQuery{Topic: domain + " 시장 " + kw, Keywords: []string{domain}})
	}
	return out
}

// CompanyQueries builds "{company} {kw}" filtered by the company name.
func CompanyQueries(company string) []model.ResearchQuery {
	out := make([]model.ResearchQuery, 0, len(MarketCompanyKeywords))
	for _, kw := range MarketCompanyKeywords {
		out = append(out, model.ResearchQuery{Topic: company + " " + kw, Keywords: []string{company}})
	}
	return out
}
