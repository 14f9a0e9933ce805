package model

import "time"

// RunStatus is the lifecycle state of a stored run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted evaluation run.
type Run struct {
	ID          string    `json:"id"`
	Companies   []string  `json:"companies"`
	Status      RunStatus `json:"status"`
	FinalReport string    `json:"final_report,omitempty"`
	ReportPath  string    `json:"report_path,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
