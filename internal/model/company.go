package model

// DefaultStartups is the company list evaluated when no override is configured.
var DefaultStartups = []string{"업스테이지", "노타AI", "트웰브랩스", "뤼이드", "에어스메디컬"}

// NoSummary is appended to the accumulated reports when a company advances
// without an investment summary.
const NoSummary = "[요약 없음]"

// CompanyOutcome records how a single company finished its evaluation.
type CompanyOutcome struct {
	Index      int      `json:"index"`
	Company    string   `json:"company"`
	Judgment   Judgment `json:"judgment"`
	Retries    int      `json:"retries"`
	Summary    string   `json:"summary"`
	FinalScore *float64 `json:"final_score,omitempty"`
}

// RunResult is the output of a full evaluation run.
type RunResult struct {
	RunID       string           `json:"run_id"`
	Companies   []string         `json:"companies"`
	Outcomes    []CompanyOutcome `json:"outcomes"`
	FinalReport string           `json:"final_report"`
	ReportPath  string           `json:"report_path,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
	Steps       int              `json:"steps"`
	TokenUsage  TokenUsage       `json:"token_usage"`
}
