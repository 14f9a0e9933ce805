package llm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/startup-research/pkg/anthropic"
	"github.com/sells-group/startup-research/pkg/perplexity"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) Send(ctx context.Context, req anthropic.Request) (*anthropic.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.Response), args.Error(1)
}

func (m *mockAnthropicClient) SubmitBatch(ctx context.Context, items []anthropic.BatchItem) (*anthropic.Batch, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.Batch), args.Error(1)
}

func (m *mockAnthropicClient) GetBatch(ctx context.Context, batchID string) (*anthropic.Batch, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.Batch), args.Error(1)
}

func (m *mockAnthropicClient) Results(ctx context.Context, batchID string) (anthropic.ResultStream, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(anthropic.ResultStream), args.Error(1)
}

// resultSlice replays fixed batch results.
type resultSlice struct {
	items []anthropic.Result
	pos   int
}

func (s *resultSlice) Next() bool {
	if s.pos >= len(s.items) {
		return false
	}
	s.pos++
	return true
}

func (s *resultSlice) Result() anthropic.Result { return s.items[s.pos-1] }
func (s *resultSlice) Err() error               { return nil }
func (s *resultSlice) Close() error             { return nil }

// --- Perplexity Mock ---

type mockPerplexityClient struct {
	mock.Mock
}

func (m *mockPerplexityClient) Chat(ctx context.Context, req perplexity.ChatRequest) (*perplexity.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ChatResponse), args.Error(1)
}

func textResponse(text string) *anthropic.Response {
	return &anthropic.Response{
		Text:  text,
		Usage: anthropic.Usage{InputTokens: 100, OutputTokens: 20},
	}
}
