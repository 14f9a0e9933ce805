package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/llm"
)

// ReportWriter persists the final report and returns where it went.
type ReportWriter interface {
	Write(text string) (string, error)
}

// FinalReport is the cross-company output of a run.
type FinalReport struct {
	Compact    []string `json:"compact"`
	Comparison string   `json:"comparison"`
	Text       string   `json:"text"`
	Path       string   `json:"path,omitempty"`
	Warning    string   `json:"warning,omitempty"`
}

// FinalAggregator compacts every accumulated summary, ranks and compares the
// companies, and writes the combined report.
type FinalAggregator struct {
	gen      llm.Generator
	writer   ReportWriter
	attempts int
}

// NewFinalAggregator creates a FinalAggregator. writer may be nil. attempts
// bounds the comparison call on generation errors; values below 1 mean 1.
func NewFinalAggregator(gen llm.Generator, writer ReportWriter, attempts int) *FinalAggregator {
	if attempts < 1 {
		attempts = 1
	}
	return &FinalAggregator{gen: gen, writer: writer, attempts: attempts}
}

// Aggregate produces the final report from the ordered per-company summaries.
func (f *FinalAggregator) Aggregate(ctx context.Context, reports []string) (*FinalReport, error) {
	if len(reports) == 0 {
		return nil, eris.New("pipeline: no reports to aggregate")
	}

	compact, err := f.compact(ctx, reports)
	if err != nil {
		return nil, err
	}
	joined := strings.Join(compact, "\n\n")

	var (
		comparison string
		done       bool
	)
	for attempt := 1; attempt <= f.attempts && !done; attempt++ {
		text, genErr := f.gen.Generate(ctx, comparisonPrompt(joined), llm.Options{
			System:      compactSystem,
			Temperature: llm.Float(0.3),
		})
		if genErr == nil {
			comparison = strings.TrimSpace(text)
			done = true
			continue
		}
		err = genErr
		zap.L().Warn("pipeline: final comparison failed",
			zap.Int("attempt", attempt),
			zap.Int("attempts", f.attempts),
			zap.Error(genErr),
		)
		if ctx.Err() != nil {
			break
		}
	}
	if !done {
		return nil, eris.Wrap(err, "pipeline: final comparison")
	}

	out := &FinalReport{
		Compact:    compact,
		Comparison: comparison,
		Text:       joined + "\n\n" + comparison,
	}

	if f.writer != nil {
		path, werr := f.writer.Write(out.Text)
		if werr != nil {
			out.Warning = werr.Error()
			zap.L().Warn("pipeline: final report not saved", zap.Error(werr))
		} else {
			out.Path = path
		}
	}
	return out, nil
}

// compact re-summarizes each report into a scored entry, using the batch API
// when the generator supports it.
func (f *FinalAggregator) compact(ctx context.Context, reports []string) ([]string, error) {
	prompts := make([]string, len(reports))
	for i, r := range reports {
		prompts[i] = compactPrompt(r)
	}
	opts := llm.Options{System: compactSystem, Temperature: llm.Float(0.3)}

	if bg, ok := f.gen.(llm.BatchGenerator); ok {
		out, err := bg.GenerateBatch(ctx, prompts, opts)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: compact reports")
		}
		if len(out) != len(prompts) {
			return nil, eris.Errorf("pipeline: compact reports: got %d results for %d reports", len(out), len(prompts))
		}
		for i := range out {
			out[i] = strings.TrimSpace(out[i])
		}
		return out, nil
	}

	out := make([]string, 0, len(prompts))
	for i, p := range prompts {
		text, err := f.gen.Generate(ctx, p, opts)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: compact report %d", i)
		}
		out = append(out, strings.TrimSpace(text))
	}
	return out, nil
}
