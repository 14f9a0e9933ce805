package patent

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/ocr"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 50

// ChunkStore is the part of the store the index reads and writes.
type ChunkStore interface {
	UpsertPatentChunks(ctx context.Context, chunks []model.PatentChunk) (int64, error)
	SearchPatentChunks(ctx context.Context, company string, query []float32, k int) ([]model.ScoredChunk, error)
}

// IndexResult summarizes one company's indexing pass.
type IndexResult struct {
	Company string `json:"company"`
	Files   int    `json:"files"`
	Chunks  int64  `json:"chunks"`
	Markers int    `json:"markers"`
}

// Index owns patent ingestion and retrieval for every company under dataDir.
// Patents for company C live in dataDir/C/*.pdf.
type Index struct {
	dataDir    string
	chunkChars int
	topK       int
	ext        ocr.Extractor
	emb        Embedder
	st         ChunkStore
}

// NewIndex creates an Index. Zero chunkChars or topK select the defaults.
func NewIndex(dataDir string, chunkChars, topK int, ext ocr.Extractor, emb Embedder, st ChunkStore) *Index {
	if chunkChars <= 0 {
		chunkChars = DefaultChunkChars
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Index{dataDir: dataDir, chunkChars: chunkChars, topK: topK, ext: ext, emb: emb, st: st}
}

// Files lists a company's patent PDFs in name order.
func (x *Index) Files(company string) ([]string, error) {
	dir := filepath.Join(x.dataDir, company)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "patent: read dir %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// IndexCompany extracts, chunks, embeds and stores every patent PDF of a company.
func (x *Index) IndexCompany(ctx context.Context, company string) (IndexResult, error) {
	res := IndexResult{Company: company}
	files, err := x.Files(company)
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		return res, eris.Errorf("patent: no pdf files for %s", company)
	}

	for _, path := range files {
		text, err := x.ext.ExtractText(ctx, path)
		if err != nil {
			return res, err
		}
		res.Files++
		res.Markers += CountMarkers(text)

		pieces := Chunk(text, x.chunkChars)
		if len(pieces) == 0 {
			zap.L().Warn("patent: no text extracted", zap.String("company", company), zap.String("file", path))
			continue
		}
		vecs, err := x.emb.Embed(ctx, pieces, TaskDocument)
		if err != nil {
			return res, err
		}
		if len(vecs) != len(pieces) {
			return res, eris.Errorf("patent: %d embeddings for %d chunks of %s", len(vecs), len(pieces), path)
		}

		source := filepath.Base(path)
		chunks := make([]model.PatentChunk, len(pieces))
		for i, p := range pieces {
			chunks[i] = model.PatentChunk{
				Company:    company,
				Source:     source,
				ChunkIndex: i,
				Content:    p,
				Embedding:  vecs[i],
			}
		}
		n, err := x.st.UpsertPatentChunks(ctx, chunks)
		if err != nil {
			return res, err
		}
		res.Chunks += n

		zap.L().Info("patent: indexed file",
			zap.String("company", company),
			zap.String("file", source),
			zap.Int("chunks", len(chunks)),
		)
	}
	return res, nil
}

// Query returns the text of the chunks closest to query, restricted to company.
func (x *Index) Query(ctx context.Context, company, query string) ([]string, error) {
	vecs, err := x.emb.Embed(ctx, []string{query}, TaskQuery)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, eris.New("patent: empty query embedding")
	}
	hits, err := x.st.SearchPatentChunks(ctx, company, vecs[0], x.topK)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Content
	}
	return out, nil
}

// OverviewQuery is the retrieval query for a company's overall patent picture.
func OverviewQuery(company string) string {
	return company + " 기술 OR 특허"
}

// CountPatents counts "특허 N:" markers in the company's first patent PDF.
func (x *Index) CountPatents(ctx context.Context, company string) (int, error) {
	files, err := x.Files(company)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, eris.Errorf("patent: no pdf files for %s", company)
	}
	text, err := x.ext.ExtractText(ctx, files[0])
	if err != nil {
		return 0, err
	}
	return CountMarkers(text), nil
}
