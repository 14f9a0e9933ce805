package patent

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/startup-research/internal/config"
)

// Task types understood by the embedding model.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

const (
	defaultEmbedModel = "gemini-embedding-001"
	maxEmbedBatch     = 100
)

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string, task string) ([][]float32, error)
}

// embedAPI is the method of *genai.Models used here.
type embedAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GenAIEmbedder generates embeddings with the Gemini embedding API.
type GenAIEmbedder struct {
	api   embedAPI
	model string
}

// NewGenAIEmbedder creates a Gemini client from config.
func NewGenAIEmbedder(ctx context.Context, cfg config.GenAIConfig) (*GenAIEmbedder, error) {
	if cfg.Key == "" {
		return nil, eris.New("patent: genai key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "patent: create genai client")
	}
	return newGenAIEmbedder(client.Models, cfg.Model), nil
}

func newGenAIEmbedder(api embedAPI, model string) *GenAIEmbedder {
	if model == "" {
		model = defaultEmbedModel
	}
	return &GenAIEmbedder{api: api, model: model}
}

// Embed embeds texts in batches of at most 100, preserving order.
func (e *GenAIEmbedder) Embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))
		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}

		resp, err := e.api.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: task})
		if err != nil {
			return nil, eris.Wrapf(err, "patent: embed %d texts", len(contents))
		}
		if resp == nil || len(resp.Embeddings) != len(contents) {
			got := 0
			if resp != nil {
				got = len(resp.Embeddings)
			}
			return nil, eris.Errorf("patent: expected %d embeddings, got %d", len(contents), got)
		}
		for _, emb := range resp.Embeddings {
			out = append(out, emb.Values)
		}
	}
	return out, nil
}
