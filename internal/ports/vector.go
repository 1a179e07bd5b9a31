package ports

import (
	"context"
)

type VectorIndexOptions struct {
	ChunkSize    int `json:"chunk_size,omitempty"`
	ChunkOverlap int `json:"chunk_overlap,omitempty"`
}

type VectorIndexInfo struct {
	Name           string `json:"name"`
	ChunkCount     int    `json:"chunk_count"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	Dimensions     int    `json:"dimensions"`
}

type VectorMatch struct {
	Chunk string  `json:"chunk"`
	Score float64 `json:"score"`
	Index int     `json:"index"`
}

// VectorStore chunks, embeds and persists searchable indexes. It must be
// safe for concurrent access across executions.
type VectorStore interface {
	CreateIndex(ctx context.Context, name string, data []string, embeddingModel string, opts VectorIndexOptions) (*VectorIndexInfo, error)
	Search(ctx context.Context, name, query string, k int) ([]VectorMatch, error)
}
