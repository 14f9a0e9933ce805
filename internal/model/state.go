package model

import (
	"github.com/rotisserie/eris"
)

// Field names a patchable PipelineState field.
type Field string

const (
	FieldTechReport        Field = "tech_report"
	FieldCompetitorReport  Field = "competitor_report"
	FieldMarketReport      Field = "market_report"
	FieldInvestmentSummary Field = "investment_summary"
)

// Sequencer-owned fields. They are never accepted in a Patch.
const (
	FieldCompanyIndex       Field = "company_index"
	FieldCurrentCompany     Field = "current_company"
	FieldRetryCount         Field = "retry_count"
	FieldAccumulatedReports Field = "accumulated_reports"
	FieldFinalReport        Field = "final_report"
)

var (
	// ErrUnknownField is returned when a patch names a field the state does not have.
	ErrUnknownField = eris.New("model: unknown state field")
	// ErrSequencerField is returned when a patch names a field only the sequencer may write.
	ErrSequencerField = eris.New("model: field is owned by the sequencer")
	// ErrFinalReportSet is returned when the final report is written twice.
	ErrFinalReportSet = eris.New("model: final report already set")
	// ErrNoCurrentCompany signals a stage was invoked without a dispatched company.
	ErrNoCurrentCompany = eris.New("model: current company is not set")
)

// Patch is the set of fields a stage produced. Fields absent from the patch
// are left untouched when it is applied.
type Patch map[Field]string

// PipelineState is the record threaded through a run. The sequencer owns it;
// stages receive a copy and return a Patch.
type PipelineState struct {
	CompanyIndex       int      `json:"company_index"`
	CurrentCompany     string   `json:"current_company"`
	TechReport         string   `json:"tech_report,omitempty"`
	CompetitorReport   string   `json:"competitor_report,omitempty"`
	MarketReport       string   `json:"market_report,omitempty"`
	InvestmentSummary  string   `json:"investment_summary,omitempty"`
	RetryCount         int      `json:"retry_count"`
	AccumulatedReports []string `json:"accumulated_reports"`
	FinalReport        string   `json:"final_report,omitempty"`
}

// Validate checks every field name in the patch without applying it.
func (p Patch) Validate() error {
	for f := range p {
		switch f {
		case FieldTechReport, FieldCompetitorReport, FieldMarketReport, FieldInvestmentSummary:
		case FieldCompanyIndex, FieldCurrentCompany, FieldRetryCount, FieldAccumulatedReports, FieldFinalReport:
			return eris.Wrapf(ErrSequencerField, "field %q", f)
		default:
			return eris.Wrapf(ErrUnknownField, "field %q", f)
		}
	}
	return nil
}

// Apply merges a patch into the state. The patch is validated first so a
// rejected patch leaves the state unchanged.
func (s *PipelineState) Apply(p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for f, v := range p {
		switch f {
		case FieldTechReport:
			s.TechReport = v
		case FieldCompetitorReport:
			s.CompetitorReport = v
		case FieldMarketReport:
			s.MarketReport = v
		case FieldInvestmentSummary:
			s.InvestmentSummary = v
		}
	}
	return nil
}

// Snapshot returns a copy that shares no mutable memory with s.
func (s *PipelineState) Snapshot() PipelineState {
	cp := *s
	cp.AccumulatedReports = append([]string(nil), s.AccumulatedReports...)
	return cp
}

// Dispatch sets CurrentCompany from the list at CompanyIndex.
func (s *PipelineState) Dispatch(companies []string) error {
	if s.CompanyIndex < 0 || s.CompanyIndex >= len(companies) {
		return eris.Errorf("model: dispatch index %d out of range [0,%d)", s.CompanyIndex, len(companies))
	}
	s.CurrentCompany = companies[s.CompanyIndex]
	return nil
}

// BumpRetry increments the per-company retry counter.
func (s *PipelineState) BumpRetry() {
	s.RetryCount++
}

// Advance appends the current summary (or NoSummary), clears the per-attempt
// fields and moves to the next company.
func (s *PipelineState) Advance() {
	summary := s.InvestmentSummary
	if summary == "" {
		summary = NoSummary
	}
	s.AccumulatedReports = append(s.AccumulatedReports, summary)
	s.TechReport = ""
	s.CompetitorReport = ""
	s.MarketReport = ""
	s.InvestmentSummary = ""
	s.RetryCount = 0
	s.CurrentCompany = ""
	s.CompanyIndex++
}

// SetFinalReport records the final report. It may only be called once.
func (s *PipelineState) SetFinalReport(text string) error {
	if s.FinalReport != "" {
		return ErrFinalReportSet
	}
	s.FinalReport = text
	return nil
}

// RequireCompany returns the current company or an error wrapping
// ErrNoCurrentCompany.
func (s PipelineState) RequireCompany(stage string) (string, error) {
	if s.CurrentCompany == "" {
		return "", eris.Wrapf(ErrNoCurrentCompany, "%s", stage)
	}
	return s.CurrentCompany, nil
}
