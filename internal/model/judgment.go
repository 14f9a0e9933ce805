package model

import "strings"

// Judgment is the quality gate's verdict on a synthesized summary.
type Judgment string

const (
	JudgmentPass  Judgment = "PASS"
	JudgmentRetry Judgment = "RETRY"
	JudgmentFail  Judgment = "FAIL"
)

// ParseJudgment normalizes a raw gate response. It succeeds only when the
// trimmed, upper-cased text is exactly one of the three tokens.
func ParseJudgment(raw string) (Judgment, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Trim(s, "`*\"'.")
	switch Judgment(s) {
	case JudgmentPass, JudgmentRetry, JudgmentFail:
		return Judgment(s), true
	}
	return "", false
}
