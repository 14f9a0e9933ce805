package research

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/startup-research/internal/llm"
	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/search"
)

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, req search.Request) ([]model.SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

// --- Generator Mock ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

// fakeExtractor serves canned paragraphs per URL and records peak
// concurrency.
type fakeExtractor struct {
	pages map[string][]string
	errs  map[string]error
	delay time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	seen     []string
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) ([]string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.seen = append(f.seen, url)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.pages[url], nil
}

// recordingSummarizer captures the snippets handed to it.
type recordingSummarizer struct {
	mu    sync.Mutex
	calls map[string][]string
	err   error
}

func (r *recordingSummarizer) Summarize(_ context.Context, title string, snippets []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string][]string)
	}
	r.calls[title] = snippets
	if r.err != nil {
		return "", r.err
	}
	if len(snippets) == 0 {
		return model.PlaceholderSummary, nil
	}
	return title + " 요약.", nil
}
