package model

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Scoring weights applied to the three sub-scores.
const (
	MarketWeight      = 0.5
	TechWeight        = 0.3
	CompetitiveWeight = 0.2
)

// InvestmentScore holds the sub-scores and the weighted final score.
type InvestmentScore struct {
	Market               int     `json:"market"`
	Tech                 int     `json:"tech"`
	Competitive          int     `json:"competitive"`
	MarketRationale      string  `json:"market_rationale,omitempty"`
	TechRationale        string  `json:"tech_rationale,omitempty"`
	CompetitiveRationale string  `json:"competitive_rationale,omitempty"`
	Final                float64 `json:"final"`
}

// FinalScore computes round(0.5*market + 0.3*tech + 0.2*competitive, 2).
func FinalScore(market, tech, competitive int) float64 {
	raw := MarketWeight*float64(market) + TechWeight*float64(tech) + CompetitiveWeight*float64(competitive)
	return math.Round(raw*100) / 100
}

// NewInvestmentScore builds a score with Final computed from the sub-scores.
func NewInvestmentScore(market, tech, competitive int) InvestmentScore {
	return InvestmentScore{
		Market:      market,
		Tech:        tech,
		Competitive: competitive,
		Final:       FinalScore(market, tech, competitive),
	}
}

// Valid reports whether every sub-score lies in [0,10].
func (s InvestmentScore) Valid() bool {
	for _, v := range []int{s.Market, s.Tech, s.Competitive} {
		if v < 0 || v > 10 {
			return false
		}
	}
	return true
}

// VerificationLine renders the deterministic recomputation appended to a summary.
func (s InvestmentScore) VerificationLine() string {
	return fmt.Sprintf("[검증] 시장성 %d × 0.5 + 기술력 %d × 0.3 + 경쟁우위 %d × 0.2 = %.2f",
		s.Market, s.Tech, s.Competitive, s.Final)
}

// Sub-score patterns. Each label is followed, within a short window, by the
// first integer, e.g. "시장성 평가\n - 점수: 8점".
var (
	marketScoreRe      = regexp.MustCompile(`시장성[^\d\n]*(?:\n[^\d\n]*)?(\d{1,2})\s*(?:점|/\s*10)`)
	techScoreRe        = regexp.MustCompile(`(?:제품\s*)?기술력[^\d\n]*(?:\n[^\d\n]*)?(\d{1,2})\s*(?:점|/\s*10)`)
	competitiveScoreRe = regexp.MustCompile(`경쟁\s*우위[^\d\n]*(?:\n[^\d\n]*)?(\d{1,2})\s*(?:점|/\s*10)`)
	rationaleRe        = regexp.MustCompile(`설명\**\s*[:：]?\s*(.+)`)

	// Rubric range echoed from the prompt, e.g. "점수 (0~10점): 8점".
	scaleRangeRe = regexp.MustCompile(`\(\s*0\s*[~～-]\s*10\s*점?\s*\)`)
)

// ParseScores extracts the three sub-scores from free text. It returns false
// unless all three are found and lie in [0,10].
func ParseScores(text string) (InvestmentScore, bool) {
	text = scaleRangeRe.ReplaceAllString(text, "")
	m, ok := findScore(marketScoreRe, text)
	if !ok {
		return InvestmentScore{}, false
	}
	t, ok := findScore(techScoreRe, text)
	if !ok {
		return InvestmentScore{}, false
	}
	c, ok := findScore(competitiveScoreRe, text)
	if !ok {
		return InvestmentScore{}, false
	}
	s := NewInvestmentScore(m, t, c)
	if !s.Valid() {
		return InvestmentScore{}, false
	}
	rationales := rationaleRe.FindAllStringSubmatch(text, 3)
	for i, r := range rationales {
		switch i {
		case 0:
			s.MarketRationale = strings.TrimSpace(r[1])
		case 1:
			s.TechRationale = strings.TrimSpace(r[1])
		case 2:
			s.CompetitiveRationale = strings.TrimSpace(r[1])
		}
	}
	return s, true
}

func findScore(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}
