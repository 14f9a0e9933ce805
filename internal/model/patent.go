package model

// PatentChunk is one embedded slice of a patent document.
type PatentChunk struct {
	ID         string    `json:"id"`
	Company    string    `json:"company"`
	Source     string    `json:"source"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

// ScoredChunk is a PatentChunk ranked by similarity to a query.
type ScoredChunk struct {
	PatentChunk
	Score float64 `json:"score"`
}
