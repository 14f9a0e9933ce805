// Package patent builds and queries the semantic index of company patent
// documents used by the technology stage.
package patent

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultChunkChars is the chunk size used when none is configured.
const DefaultChunkChars = 2000

var (
	sentenceEnd = regexp.MustCompile(`([.!?])\s+`)
	markerRe    = regexp.MustCompile(`특허\s*\d+\s*:`)
)

// Sentences splits text after sentence-final punctuation followed by space.
func Sentences(text string) []string {
	var out []string
	last := 0
	for _, m := range sentenceEnd.FindAllStringSubmatchIndex(text, -1) {
		out = appendSentence(out, text[last:m[3]])
		last = m[1]
	}
	return appendSentence(out, text[last:])
}

func appendSentence(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

// Chunk packs whole sentences into chunks of at most maxChars characters.
// A single sentence longer than maxChars becomes its own chunk.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}
	var chunks []string
	var cur strings.Builder
	curLen := 0
	for _, s := range Sentences(text) {
		n := utf8.RuneCountInString(s)
		switch {
		case curLen == 0:
		case curLen+1+n <= maxChars:
			cur.WriteByte(' ')
			curLen++
		default:
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
		cur.WriteString(s)
		curLen += n
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// CountMarkers counts "특허 N:" headings, one per patent in the company filings.
func CountMarkers(text string) int {
	return len(markerRe.FindAllStringIndex(text, -1))
}
