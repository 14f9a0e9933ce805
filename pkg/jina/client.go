// Package jina is a small client for Jina AI Search (s.jina.ai) and Reader
// (r.jina.ai). Search backs the research fan-out; Read is a fallback page
// extractor.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultReaderURL = "https://r.jina.ai"
	defaultSearchURL = "https://s.jina.ai"

	// maxErrorBody bounds how much of a failed response is kept in APIError.
	maxErrorBody = 4 << 10
)

// Client is the Jina API surface used by the pipeline.
type Client interface {
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// ReadResponse is a Reader result. Content is markdown.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is a Search result page. Code is 422 with no data when the
// query matched nothing.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// Snippet prefers the description over page content.
func (r SearchResult) Snippet() string {
	if r.Description != "" {
		return r.Description
	}
	return r.Content
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

// HTTPStatus lets resilience.Retryable classify the error.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

func (e *APIError) Error() string {
	return fmt.Sprintf("jina: status %d: %s", e.StatusCode, e.Body)
}

// SearchOption adjusts one search call.
type SearchOption func(url.Values, http.Header)

// WithSiteFilter restricts results to domain.
func WithSiteFilter(domain string) SearchOption {
	return func(q url.Values, _ http.Header) { q.Set("site", domain) }
}

// WithLanguage sets the result locale, e.g. "ko".
func WithLanguage(lang string) SearchOption {
	return func(q url.Values, _ http.Header) { q.Set("hl", lang) }
}

// WithoutContent skips Jina's per-result page fetch; results carry title,
// URL and description only.
func WithoutContent() SearchOption {
	return func(_ url.Values, h http.Header) { h.Set("X-Respond-With", "no-content") }
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the Reader endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) {
		if u != "" {
			c.readerURL = u
		}
	}
}

// WithSearchBaseURL overrides the Search endpoint.
func WithSearchBaseURL(u string) Option {
	return func(c *client) {
		if u != "" {
			c.searchURL = u
		}
	}
}

// WithTimeout sets the per-request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(c *client) { c.http.Timeout = d }
}

type client struct {
	key       string
	readerURL string
	searchURL string
	http      *http.Client
}

// NewClient returns a Client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		key:       apiKey,
		readerURL: defaultReaderURL,
		searchURL: defaultSearchURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *client) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	h := http.Header{}
	h.Set("X-Return-Format", "markdown")

	var out ReadResponse
	if _, err := c.get(ctx, c.readerURL+"/"+targetURL, h, &out); err != nil {
		return nil, eris.Wrapf(err, "jina: read %s", targetURL)
	}
	return &out, nil
}

func (c *client) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	q := url.Values{}
	h := http.Header{}
	for _, o := range opts {
		o(q, h)
	}
	u := c.searchURL + "/" + url.PathEscape(query)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var out SearchResponse
	status, err := c.get(ctx, u, h, &out)
	if status == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: status}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "jina: search %q", query)
	}
	return &out, nil
}

// get issues an authenticated GET and decodes a 200 JSON body into out.
func (c *client) get(ctx context.Context, u string, h http.Header, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header = h
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, eris.Wrap(err, "decode response")
	}
	return resp.StatusCode, nil
}
