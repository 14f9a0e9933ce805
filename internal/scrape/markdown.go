package scrape

import (
	"regexp"
	"strings"
)

var (
	mdImageRe = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLinkRe  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdBlankRe = regexp.MustCompile(`\n\s*\n`)
)

// markdownParagraphs splits reader markdown into prose paragraphs. Headings,
// tables, rules and link-only blocks are dropped.
func markdownParagraphs(md string) []string {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	var out []string
	for _, block := range mdBlankRe.Split(md, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		switch {
		case strings.HasPrefix(block, "#"),
			strings.HasPrefix(block, "|"),
			strings.HasPrefix(block, "---"),
			strings.HasPrefix(block, "==="),
			strings.HasPrefix(block, "```"):
			continue
		}
		block = mdImageRe.ReplaceAllString(block, "")
		block = mdLinkRe.ReplaceAllString(block, "$1")
		block = strings.TrimLeft(block, "*->+ ")
		text := collapseSpace(block)
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}
