package vector

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/goccy/go-json"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

const indexPrefix = "vector:index:"

// Embedder turns texts into vectors. The model name is whatever the
// workflow's vector node declared; implementations may ignore it.
type Embedder func(ctx context.Context, model string, texts []string) ([][]float64, error)

type storedIndex struct {
	Name           string      `json:"name"`
	EmbeddingModel string      `json:"embedding_model,omitempty"`
	Chunks         []string    `json:"chunks"`
	Vectors        [][]float64 `json:"vectors"`
}

// Store chunks documents, embeds the chunks and serves cosine-similarity
// searches. Indexes are persisted in badger under vector:index:<name> and
// cached in memory after first use.
type Store struct {
	db     *badger.DB
	cfg    domain.VectorConfig
	embed  Embedder
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*storedIndex
}

func NewStore(db *badger.DB, cfg domain.VectorConfig, embed Embedder, logger *slog.Logger) *Store {
	if embed == nil {
		embed = HashEmbedder(256)
	}
	return &Store{
		db:     db,
		cfg:    cfg,
		embed:  embed,
		logger: logger.With("component", "vector-store"),
		cache:  make(map[string]*storedIndex),
	}
}

func (s *Store) CreateIndex(ctx context.Context, name string, data []string, embeddingModel string, opts ports.VectorIndexOptions) (*ports.VectorIndexInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("index name is required: %w", domain.ErrInvalidConfig)
	}

	size := opts.ChunkSize
	if size <= 0 {
		size = s.cfg.ChunkSize
	}
	overlap := opts.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = s.cfg.ChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}

	var chunks []string
	for _, doc := range data {
		chunks = append(chunks, chunk(doc, size, overlap)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("index %q has no content to embed: %w", name, domain.ErrInvalidConfig)
	}

	vectors, err := s.embed(ctx, embeddingModel, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed index %q: %w", name, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	idx := &storedIndex{
		Name:           name,
		EmbeddingModel: embeddingModel,
		Chunks:         chunks,
		Vectors:        vectors,
	}
	if err := s.persist(idx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[name] = idx
	s.mu.Unlock()

	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	s.logger.Debug("vector index created",
		"index", name,
		"chunks", len(chunks),
		"dimensions", dims,
	)
	return &ports.VectorIndexInfo{
		Name:           name,
		ChunkCount:     len(chunks),
		EmbeddingModel: embeddingModel,
		Dimensions:     dims,
	}, nil
}

func (s *Store) Search(ctx context.Context, name, query string, k int) ([]ports.VectorMatch, error) {
	idx, err := s.load(name)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.cfg.DefaultTopK
	}

	queryVectors, err := s.embed(ctx, idx.EmbeddingModel, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query against %q: %w", name, err)
	}
	queryVector := queryVectors[0]

	matches := make([]ports.VectorMatch, 0, len(idx.Chunks))
	for i, vec := range idx.Vectors {
		matches = append(matches, ports.VectorMatch{
			Chunk: idx.Chunks[i],
			Score: cosine(queryVector, vec),
			Index: i,
		})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) load(name string) (*storedIndex, error) {
	s.mu.RLock()
	idx, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(indexPrefix + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("vector index %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	idx = &storedIndex{}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("decode vector index %q: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = idx
	s.mu.Unlock()
	return idx, nil
}

func (s *Store) persist(idx *storedIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal vector index %q: %w", idx.Name, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(indexPrefix+idx.Name), data)
	})
	if err != nil {
		return fmt.Errorf("store vector index %q: %w", idx.Name, err)
	}
	return nil
}

// chunk splits text into rune windows of the given size with the given
// overlap. Whitespace-only windows are dropped.
func chunk(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// HashEmbedder is a deterministic token-hash embedding with the given
// dimensionality. It gives stable, model-free similarity for local use and
// tests; production hosts plug a real embedder in.
func HashEmbedder(dimensions int) Embedder {
	return func(ctx context.Context, model string, texts []string) ([][]float64, error) {
		vectors := make([][]float64, len(texts))
		for i, text := range texts {
			vec := make([]float64, dimensions)
			for _, token := range strings.Fields(strings.ToLower(text)) {
				h := fnv.New32a()
				h.Write([]byte(token))
				vec[int(h.Sum32())%dimensions]++
			}
			vectors[i] = vec
		}
		return vectors, nil
	}
}
