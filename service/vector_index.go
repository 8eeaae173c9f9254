package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"legalcheck-backend/llm"
	"legalcheck-backend/models"
	"legalcheck-backend/repository"
)

// VectorIndex is the similarity-search collaborator of the retriever.
type VectorIndex interface {
	Search(ctx context.Context, text string, k int) ([]models.RetrievedPassage, error)
	Add(ctx context.Context, passages []models.RetrievedPassage) error
}

// ChunkStore is the persistence half of PgVectorIndex.
type ChunkStore interface {
	Search(ctx context.Context, embedding []float32, k int) ([]models.RetrievedPassage, error)
	Add(ctx context.Context, chunks []repository.StatuteChunk) (int, error)
}

// PgVectorIndex embeds text and stores it in the pgvector-backed chunk table.
type PgVectorIndex struct {
	embedder llm.Embedder
	chunks   ChunkStore
}

// NewPgVectorIndex creates a vector index over chunks.
func NewPgVectorIndex(embedder llm.Embedder, chunks ChunkStore) *PgVectorIndex {
	return &PgVectorIndex{embedder: embedder, chunks: chunks}
}

var _ VectorIndex = (*PgVectorIndex)(nil)

func (p *PgVectorIndex) Search(ctx context.Context, text string, k int) ([]models.RetrievedPassage, error) {
	emb, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return p.chunks.Search(ctx, emb, k)
}

// Add embeds and appends passages. Passages of the same revision are
// numbered in slice order.
func (p *PgVectorIndex) Add(ctx context.Context, passages []models.RetrievedPassage) error {
	if len(passages) == 0 {
		return nil
	}
	texts := make([]string, len(passages))
	for i, ps := range passages {
		texts[i] = ps.Content
	}
	embs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed passages: %w", err)
	}
	if len(embs) != len(passages) {
		return fmt.Errorf("embedder returned %d vectors for %d passages", len(embs), len(passages))
	}

	next := map[int64]int{}
	chunks := make([]repository.StatuteChunk, len(passages))
	for i, ps := range passages {
		idx := i
		if ps.RevisionID != nil {
			idx = next[*ps.RevisionID]
			next[*ps.RevisionID]++
		}
		chunks[i] = repository.StatuteChunk{
			RevisionID:  ps.RevisionID,
			ChunkIndex:  idx,
			SourceLabel: ps.SourceLabel,
			Content:     ps.Content,
			Metadata:    ps.RawMetadata,
			Embedding:   embs[i],
		}
	}
	_, err = p.chunks.Add(ctx, chunks)
	return err
}

// MemoryIndex is an in-process VectorIndex ranking by cosine similarity.
// Writes are serialized against reads.
type MemoryIndex struct {
	embedder llm.Embedder

	mu      sync.RWMutex
	entries []memoryEntry
}

type memoryEntry struct {
	passage models.RetrievedPassage
	vector  []float32
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(embedder llm.Embedder) *MemoryIndex {
	return &MemoryIndex{embedder: embedder}
}

var _ VectorIndex = (*MemoryIndex)(nil)

func (m *MemoryIndex) Search(ctx context.Context, text string, k int) ([]models.RetrievedPassage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return nil, ErrIndexUninitialized
	}
	q, err := m.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	q = llm.Normalize(q)

	ranked := make([]models.RetrievedPassage, len(m.entries))
	for i, e := range m.entries {
		p := e.passage
		p.Distance = 1 - dot(q, e.vector)
		ranked[i] = p
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Distance < ranked[j].Distance })
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked, nil
}

func (m *MemoryIndex) Add(ctx context.Context, passages []models.RetrievedPassage) error {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}
	embs, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed passages: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range passages {
		m.entries = append(m.entries, memoryEntry{passage: p, vector: llm.Normalize(embs[i])})
	}
	return nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
