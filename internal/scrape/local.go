package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// DefaultFetchTimeout bounds a single page fetch.
const DefaultFetchTimeout = 5 * time.Second

// maxBodyBytes caps how much of a page body is read.
const maxBodyBytes = 1 << 20

// LocalScraper fetches HTML via net/http, detects blocks, and returns the text
// of every <p> element. Free, no API calls. Falls through to Jina/Firecrawl
// when blocked.
type LocalScraper struct {
	client *http.Client
}

// NewLocalScraper creates a LocalScraper. A zero timeout uses
// DefaultFetchTimeout.
func NewLocalScraper(timeout time.Duration) *LocalScraper {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
			},
		},
	}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, detects blocks and collects paragraph text.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; StartupResearchBot/1.0)")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if b := pageBlock(resp.StatusCode, resp.Header, body); b != BlockNone {
		return nil, eris.Errorf("local_http: blocked (%s)", b)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, eris.New("local_http: empty page")
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse html")
	}

	return &Result{
		URL:        targetURL,
		Title:      extractTitle(doc),
		Paragraphs: extractParagraphs(doc),
		StatusCode: resp.StatusCode,
		Source:     "local_http",
	}, nil
}

// extractTitle returns the text of the first <title> element.
func extractTitle(doc *html.Node) string {
	if n := findFirst(doc, "title"); n != nil {
		return collapseSpace(nodeText(n))
	}
	return ""
}

// extractParagraphs returns the whitespace-collapsed text of every <p>
// element in document order, skipping empty ones.
func extractParagraphs(doc *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "p":
				if text := collapseSpace(nodeText(n)); text != "" {
					out = append(out, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// nodeText concatenates all descendant text nodes.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
