package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/startup-research/internal/llm"
	"github.com/sells-group/startup-research/internal/model"
)

// flatTopN is how many snippets a flat summary considers.
const flatTopN = 5

// Flat summarizes the top snippets in one call into at most Sentences
// complete sentences.
type Flat struct {
	Gen       llm.Generator
	Sentences int
}

// Summarize implements Summarizer.
func (f Flat) Summarize(ctx context.Context, title string, snippets []string) (string, error) {
	if len(snippets) == 0 {
		return model.PlaceholderSummary, nil
	}
	n := f.Sentences
	if n <= 0 {
		n = 2
	}
	top := snippets[:min(flatTopN, len(snippets))]

	text, err := f.Gen.Generate(ctx, flatPrompt(title, n, top), llm.Options{
		MaxTokens:   250,
		Temperature: llm.Float(0.2),
	})
	if err != nil {
		return "", eris.Wrap(err, "research: flat summary")
	}
	return model.Terminate(firstLine(text)), nil
}

// Hierarchical summarizes snippets in batches of BatchSize, then reduces the
// batch summaries to one final summary of Sentences sentences.
type Hierarchical struct {
	Gen       llm.Generator
	BatchSize int
	Sentences int
}

// Summarize implements Summarizer.
func (h Hierarchical) Summarize(ctx context.Context, title string, snippets []string) (string, error) {
	if len(snippets) == 0 {
		return model.PlaceholderSummary, nil
	}
	size := h.BatchSize
	if size <= 0 {
		size = 5
	}
	n := h.Sentences
	if n <= 0 {
		n = 5
	}
	opts := llm.Options{MaxTokens: 300, Temperature: llm.Float(0.3)}

	var partials []string
	for idx, batch := range Batches(snippets, size) {
		text, err := h.Gen.Generate(ctx, batchPrompt(title, idx+1, n, batch), opts)
		if err != nil {
			return "", eris.Wrapf(err, "research: batch %d summary", idx+1)
		}
		partials = append(partials, model.Terminate(text))
	}

	text, err := h.Gen.Generate(ctx, reducePrompt(title, n, partials), opts)
	if err != nil {
		return "", eris.Wrap(err, "research: reduce summary")
	}
	return model.Terminate(text), nil
}

// Batches splits items into consecutive groups of at most size.
func Batches(items []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}

func firstLine(s string) string {
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func flatPrompt(title string, sentences int, snippets []string) string {
	return fmt.Sprintf(`아래는 '%s'에 관한 핵심 정보 스니펫입니다.
- 요청: '%s'에 해당하는 핵심 숫자나 키워드를 정확히 **%d문장 이내**로 완결형 문장(마침표 포함)으로 요약하세요.
- 문장은 마침표로 끝나야 하며, 불필요한 내용은 제거하세요.
- 출력은 한 줄로 작성하세요.

스니펫:
%s`, title, title, sentences, strings.Join(snippets, "\n\n"))
}

func batchPrompt(title string, idx, sentences int, batch []string) string {
	return fmt.Sprintf("‘%s’ 배치 %d를 %d문장으로 요약하세요.\n\n%s",
		title, idx, sentences, strings.Join(batch, "\n\n"))
}

func reducePrompt(title string, sentences int, partials []string) string {
	return fmt.Sprintf("‘%s’ 전체를 %d문장으로 최종 요약하세요.\n\n%s",
		title, sentences, strings.Join(partials, "\n\n"))
}
