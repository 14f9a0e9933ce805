package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_Scrape_FirstSuccess(t *testing.T) {
	filter := NewURLFilter([]string{"/excluded/*"})
	s1 := &mockScraper{
		name: "primary", supports: true,
		result: &Result{URL: "https://upstage.ai", Title: "Upstage", Paragraphs: []string{"Document AI"}, Source: "primary"},
	}
	s2 := &mockScraper{name: "fallback", supports: true}

	chain := NewChain(filter, s1, s2)
	result, err := chain.Scrape(context.Background(), "https://upstage.ai")

	require.NoError(t, err)
	assert.Equal(t, "primary", result.Source)
	assert.Equal(t, "https://upstage.ai", result.URL)
	assert.Equal(t, 0, s2.calls)
}

func TestChain_Scrape_FallbackOnError(t *testing.T) {
	filter := NewURLFilter([]string{"/excluded/*"})
	s1 := &mockScraper{name: "primary", supports: true, err: errors.New("failed")}
	s2 := &mockScraper{
		name: "fallback", supports: true,
		result: &Result{URL: "https://upstage.ai", Title: "Upstage", Source: "fallback"},
	}

	chain := NewChain(filter, s1, s2)
	result, err := chain.Scrape(context.Background(), "https://upstage.ai")

	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Source)
	assert.Equal(t, 1, s1.calls)
}

func TestChain_Scrape_AllFail(t *testing.T) {
	filter := NewURLFilter([]string{"/excluded/*"})
	s1 := &mockScraper{name: "s1", supports: true, err: errors.New("s1 error")}
	s2 := &mockScraper{name: "s2", supports: true, err: errors.New("s2 error")}

	chain := NewChain(filter, s1, s2)
	result, err := chain.Scrape(context.Background(), "https://upstage.ai")

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "all scrapers failed")
	assert.Contains(t, err.Error(), "s2 error")
}

func TestChain_Scrape_ExcludedURL(t *testing.T) {
	filter := NewURLFilter([]string{"*.pdf"})
	s1 := &mockScraper{name: "s1", supports: true}

	chain := NewChain(filter, s1)
	result, err := chain.Scrape(context.Background(), "https://upstage.ai/ir/report.pdf")

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "url skipped")
	assert.Equal(t, 0, s1.calls)
}

func TestChain_Scrape_SkipsUnsupported(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: false}
	s2 := &mockScraper{
		name: "s2", supports: true,
		result: &Result{URL: "https://upstage.ai", Source: "s2"},
	}

	chain := NewChain(nil, s1, s2)
	result, err := chain.Scrape(context.Background(), "https://upstage.ai")

	require.NoError(t, err)
	assert.Equal(t, "s2", result.Source)
	assert.Equal(t, 0, s1.calls)
}

func TestChain_Scrape_NoSuitableScraper(t *testing.T) {
	chain := NewChain(nil, &mockScraper{name: "s1", supports: false})
	_, err := chain.Scrape(context.Background(), "https://upstage.ai")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable scraper")
}

func TestChain_Extract_ReturnsParagraphs(t *testing.T) {
	s1 := &mockScraper{
		name: "s1", supports: true,
		result: &Result{Paragraphs: []string{"업스테이지는 문서 AI 기업이다.", "Solar LLM을 개발했다."}, Source: "s1"},
	}

	paras, err := NewChain(nil, s1).Extract(context.Background(), "https://upstage.ai")
	require.NoError(t, err)
	assert.Equal(t, []string{"업스테이지는 문서 AI 기업이다.", "Solar LLM을 개발했다."}, paras)
}

func TestChain_Extract_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	chain := NewChain(nil, NewLocalScraper(time.Minute)).WithTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := chain.Extract(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestChain_WithTimeout_IgnoresNonPositive(t *testing.T) {
	chain := NewChain(nil).WithTimeout(0)
	assert.Equal(t, DefaultFetchTimeout, chain.timeout)

	chain.WithTimeout(2 * time.Second)
	assert.Equal(t, 2*time.Second, chain.timeout)
}
