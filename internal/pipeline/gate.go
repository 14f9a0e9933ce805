package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/llm"
	"github.com/sells-group/startup-research/internal/model"
)

// DefaultFallbackThreshold is the retry count from which malformed gate
// output resolves to FAIL instead of RETRY.
const DefaultFallbackThreshold = 1

// Gate classifies a synthesized summary as PASS, RETRY or FAIL.
type Gate struct {
	gen       llm.Generator
	threshold int
}

// NewGate creates a Gate. A negative threshold selects the default.
func NewGate(gen llm.Generator, threshold int) *Gate {
	if threshold < 0 {
		threshold = DefaultFallbackThreshold
	}
	return &Gate{gen: gen, threshold: threshold}
}

// Validate asks the generator to judge summary against the rubric. Output
// that is not exactly one judgment token, or a failed call, resolves through
// Fallback. Only context cancellation is returned as an error.
func (g *Gate) Validate(ctx context.Context, summary string, retryCount int) (model.Judgment, error) {
	text, err := g.gen.Generate(ctx, gatePrompt(summary), llm.Options{
		MaxTokens:   10,
		Temperature: llm.Float(0.3),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		j := Fallback(retryCount, g.threshold)
		zap.L().Warn("pipeline: gate call failed, using fallback",
			zap.Int("retry_count", retryCount),
			zap.String("judgment", string(j)),
			zap.Error(err),
		)
		return j, nil
	}

	if j, ok := model.ParseJudgment(text); ok {
		return j, nil
	}
	j := Fallback(retryCount, g.threshold)
	zap.L().Warn("pipeline: malformed gate output, using fallback",
		zap.String("output", text),
		zap.Int("retry_count", retryCount),
		zap.String("judgment", string(j)),
	)
	return j, nil
}

// Fallback is RETRY while retryCount is below threshold and FAIL after.
func Fallback(retryCount, threshold int) model.Judgment {
	if retryCount < threshold {
		return model.JudgmentRetry
	}
	return model.JudgmentFail
}
