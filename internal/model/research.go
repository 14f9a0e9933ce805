package model

import "strings"

// PlaceholderSummary stands in for a query that produced no snippets.
const PlaceholderSummary = "정보 부족."

// ResearchQuery is a search text paired with the keywords used to filter
// extracted paragraphs.
type ResearchQuery struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords,omitempty"`
}

// SearchResult is one ranked hit from the search capability.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet"`
}

// QuerySummaryEntry pairs a query with its finalized summary.
type QuerySummaryEntry struct {
	Query   string `json:"query"`
	Summary string `json:"summary"`
}

// QuerySummary keeps per-query summaries in query order.
type QuerySummary []QuerySummaryEntry

// Get returns the summary for a query.
func (q QuerySummary) Get(query string) (string, bool) {
	for _, e := range q {
		if e.Query == query {
			return e.Summary, true
		}
	}
	return "", false
}

// Summaries returns the summary texts in order.
func (q QuerySummary) Summaries() []string {
	out := make([]string, 0, len(q))
	for _, e := range q {
		out = append(out, e.Summary)
	}
	return out
}

// sentenceEnders are accepted as final punctuation.
var sentenceEnders = []string{".", "!", "?", "。", "！", "？"}

// Terminate ensures text ends with sentence-final punctuation. Calling it
// twice yields the same result.
func Terminate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return PlaceholderSummary
	}
	for _, e := range sentenceEnders {
		if strings.HasSuffix(text, e) {
			return text
		}
	}
	return text + "."
}
