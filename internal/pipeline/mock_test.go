package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/startup-research/internal/llm"
	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/search"
)

// --- Generator Mocks ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

type mockBatchGenerator struct {
	mockGenerator
}

func (m *mockBatchGenerator) GenerateBatch(ctx context.Context, prompts []string, opts llm.Options) ([]string, error) {
	args := m.Called(ctx, prompts, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// promptHas matches prompts containing every fragment.
func promptHas(fragments ...string) any {
	return mock.MatchedBy(func(p string) bool {
		for _, f := range fragments {
			if !strings.Contains(p, f) {
				return false
			}
		}
		return true
	})
}

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

// --- Sequencer collaborators ---

type mockSynthesizer struct {
	mock.Mock
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, st model.PipelineState) (Synthesis, error) {
	args := m.Called(ctx, st)
	return args.Get(0).(Synthesis), args.Error(1)
}

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) Validate(ctx context.Context, summary string, retryCount int) (model.Judgment, error) {
	args := m.Called(ctx, summary, retryCount)
	return args.Get(0).(model.Judgment), args.Error(1)
}

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) Aggregate(ctx context.Context, reports []string) (*FinalReport, error) {
	args := m.Called(ctx, reports)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FinalReport), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) CreateRun(ctx context.Context, companies []string) (*model.Run, error) {
	args := m.Called(ctx, companies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockRecorder) SaveOutcome(ctx context.Context, runID string, outcome model.CompanyOutcome) error {
	return m.Called(ctx, runID, outcome).Error(0)
}

func (m *mockRecorder) CompleteRun(ctx context.Context, runID, finalReport, reportPath string) error {
	return m.Called(ctx, runID, finalReport, reportPath).Error(0)
}

func (m *mockRecorder) FailRun(ctx context.Context, runID string, cause error) error {
	return m.Called(ctx, runID, cause).Error(0)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Write(text string) (string, error) {
	args := m.Called(text)
	return args.String(0), args.Error(1)
}

// fakeStage writes "<name>:<company>" into its field and records the
// snapshots it was handed.
type fakeStage struct {
	name  string
	field model.Field
	err   error
	patch model.Patch

	mu   sync.Mutex
	seen []model.PipelineState
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Run(_ context.Context, st model.PipelineState) (model.Patch, error) {
	f.mu.Lock()
	f.seen = append(f.seen, st)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.patch != nil {
		return f.patch, nil
	}
	return model.Patch{f.field: f.name + ":" + st.CurrentCompany}, nil
}

func (f *fakeStage) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// fakePatents serves canned patent snippets and counts.
type fakePatents struct {
	snippets []string
	count    int
	queryErr error
	countErr error
	queries  []string
}

func (f *fakePatents) Query(_ context.Context, _ string, query string) ([]string, error) {
	f.queries = append(f.queries, query)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.snippets, nil
}

func (f *fakePatents) CountPatents(_ context.Context, _ string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

// titleSummarizer returns "<title> 요약." and records the snippets per title.
type titleSummarizer struct {
	mu    sync.Mutex
	calls map[string][]string
}

func (s *titleSummarizer) Summarize(_ context.Context, title string, snippets []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string][]string)
	}
	s.calls[title] = snippets
	if len(snippets) == 0 {
		return model.PlaceholderSummary, nil
	}
	return title + " 요약.", nil
}
