package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/llm"
	"github.com/sells-group/startup-research/internal/model"
)

// Synthesis is the outcome of one synthesis attempt.
type Synthesis struct {
	Summary string
	// Score is set when all three sub-scores could be parsed from the evaluation.
	Score *model.InvestmentScore
}

// Synthesizer combines the three stage reports into a scored summary.
type Synthesizer struct {
	gen llm.Generator
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(gen llm.Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// Synthesize runs one generation call with the scoring rubric and composes
// the company report. When the evaluation carries all three sub-scores the
// final score is recomputed and appended as a verification line.
func (s *Synthesizer) Synthesize(ctx context.Context, st model.PipelineState) (Synthesis, error) {
	company, err := st.RequireCompany("pipeline: synthesize")
	if err != nil {
		return Synthesis{}, err
	}

	text, err := s.gen.Generate(ctx, investmentPrompt(st.TechReport, st.CompetitorReport, st.MarketReport), llm.Options{
		Temperature: llm.Float(0.3),
	})
	if err != nil {
		return Synthesis{}, eris.Wrapf(err, "pipeline: synthesize %s", company)
	}
	evaluation := strings.TrimSpace(text)

	var out Synthesis
	if score, ok := model.ParseScores(evaluation); ok {
		out.Score = &score
		evaluation += "\n\n" + score.VerificationLine()
	} else {
		zap.L().Warn("pipeline: could not parse sub-scores", zap.String("company", company))
	}
	out.Summary = ComposeReport(company, st.TechReport, st.CompetitorReport, st.MarketReport, evaluation)
	return out, nil
}

// ComposeReport lays out the per-company report.
func ComposeReport(company, tech, competitor, market, evaluation string) string {
	return fmt.Sprintf("[%s 보고서]\n\nA. 기술 분석\n%s\n\nB. 경쟁사 비교\n%s\n\nC. 시장 분석\n%s\n\nD. 투자 평가\n%s",
		company, tech, competitor, market, evaluation)
}
