package patent

import (
	"context"

	"github.com/stretchr/testify/mock"
	"google.golang.org/genai"

	"github.com/sells-group/startup-research/internal/model"
)

type mockEmbedAPI struct {
	mock.Mock
}

func (m *mockEmbedAPI) EmbedContent(ctx context.Context, mdl string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	args := m.Called(ctx, mdl, contents, cfg)
	resp, _ := args.Get(0).(*genai.EmbedContentResponse)
	return resp, args.Error(1)
}

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	args := m.Called(ctx, texts, task)
	vecs, _ := args.Get(0).([][]float32)
	return vecs, args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

type mockChunkStore struct {
	mock.Mock
}

func (m *mockChunkStore) UpsertPatentChunks(ctx context.Context, chunks []model.PatentChunk) (int64, error) {
	args := m.Called(ctx, chunks)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockChunkStore) SearchPatentChunks(ctx context.Context, company string, query []float32, k int) ([]model.ScoredChunk, error) {
	args := m.Called(ctx, company, query, k)
	hits, _ := args.Get(0).([]model.ScoredChunk)
	return hits, args.Error(1)
}
