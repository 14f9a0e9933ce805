// Package firecrawl is a minimal client for the Firecrawl v2 scrape
// endpoint, the last-resort page extractor.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const DefaultBaseURL = "https://api.firecrawl.dev/v2"

// Client scrapes single pages.
type Client interface {
	Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error)
}

// ScrapeRequest is the body of POST /scrape.
type ScrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent bool     `json:"onlyMainContent,omitempty"`
	IncludeTags     []string `json:"includeTags,omitempty"`
	TimeoutMS       int      `json:"timeout,omitempty"`
}

type ScrapeResponse struct {
	Success bool     `json:"success"`
	Data    PageData `json:"data"`
}

// PageData is one scraped page. Title, URL and StatusCode are filled from
// Metadata when the top-level fields are empty.
type PageData struct {
	URL        string       `json:"url"`
	Markdown   string       `json:"markdown"`
	Title      string       `json:"title"`
	StatusCode int          `json:"statusCode"`
	Metadata   PageMetadata `json:"metadata"`
}

type PageMetadata struct {
	Title      string `json:"title"`
	SourceURL  string `json:"sourceURL"`
	StatusCode int    `json:"statusCode"`
}

func (d *PageData) promoteMetadata() {
	if d.Title == "" {
		d.Title = d.Metadata.Title
	}
	if d.URL == "" {
		d.URL = d.Metadata.SourceURL
	}
	if d.StatusCode == 0 {
		d.StatusCode = d.Metadata.StatusCode
	}
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

// HTTPStatus lets resilience.Retryable classify the error.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

func (e *APIError) Error() string {
	return fmt.Sprintf("firecrawl: status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*client)

func WithBaseURL(u string) Option {
	return func(c *client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the HTTP client timeout (default 60s).
func WithTimeout(d time.Duration) Option {
	return func(c *client) { c.http.Timeout = d }
}

type client struct {
	key     string
	baseURL string
	http    *http.Client
}

// NewClient returns a Client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{key: apiKey, baseURL: DefaultBaseURL, http: &http.Client{Timeout: 60 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *client) Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "firecrawl: scrape: encode")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "firecrawl: scrape")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrapf(err, "firecrawl: scrape %s", req.URL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out ScrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "firecrawl: scrape: decode response")
	}
	out.Data.promoteMetadata()
	return &out, nil
}
