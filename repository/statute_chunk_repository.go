package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"legalcheck-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatuteChunkRepository stores embedded statute passages for pgvector search
type StatuteChunkRepository struct {
	db  *pgxpool.Pool
	dim int
}

// NewStatuteChunkRepository creates a new statute chunk repository
func NewStatuteChunkRepository(db *pgxpool.Pool, dim int) *StatuteChunkRepository {
	return &StatuteChunkRepository{db: db, dim: dim}
}

// StatuteChunk is one embedded passage to be written to the index.
type StatuteChunk struct {
	RevisionID  *int64
	ChunkIndex  int
	SourceLabel string
	Content     string
	Metadata    map[string]any
	Embedding   []float32
}

// formatVector formats an embedding vector as a pgvector literal
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', 6, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// Search returns the k passages closest to embedding by cosine distance.
// Equal distances are ordered by chunk id so results are stable for a fixed
// index state. An absent or empty index yields ErrIndexUninitialized.
func (r *StatuteChunkRepository) Search(ctx context.Context, embedding []float32, k int) ([]models.RetrievedPassage, error) {
	if r.dim > 0 && len(embedding) != r.dim {
		return nil, fmt.Errorf("embedding must be %d dimensions, got %d", r.dim, len(embedding))
	}

	rows, err := r.db.Query(ctx, `
		SELECT revision_id, source_label, content, metadata, embedding <=> $1::vector AS distance
		FROM statute_chunks
		ORDER BY embedding <=> $1::vector, id
		LIMIT $2`, formatVector(embedding), k)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, ErrIndexUninitialized
		}
		return nil, fmt.Errorf("failed to query statute chunks: %w", err)
	}
	defer rows.Close()

	var passages []models.RetrievedPassage
	for rows.Next() {
		var p models.RetrievedPassage
		if err := rows.Scan(&p.RevisionID, &p.SourceLabel, &p.Content, &p.RawMetadata, &p.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan statute chunk: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statute chunks: %w", err)
	}

	if len(passages) == 0 {
		return nil, ErrIndexUninitialized
	}
	return passages, nil
}

// Add appends chunks to the index. Chunks already stored for the same
// (revision, chunk index) are skipped, so redelivered jobs are harmless.
func (r *StatuteChunkRepository) Add(ctx context.Context, chunks []StatuteChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, c := range chunks {
		if r.dim > 0 && len(c.Embedding) != r.dim {
			return 0, fmt.Errorf("chunk %d: embedding must be %d dimensions, got %d", c.ChunkIndex, r.dim, len(c.Embedding))
		}
		meta := c.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		batch.Queue(`
			INSERT INTO statute_chunks (revision_id, chunk_index, source_label, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6::vector)
			ON CONFLICT (revision_id, chunk_index) WHERE revision_id IS NOT NULL DO NOTHING`,
			c.RevisionID, c.ChunkIndex, c.SourceLabel, c.Content, meta, formatVector(c.Embedding))
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for i := range chunks {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// Count returns the number of indexed chunks
func (r *StatuteChunkRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM statute_chunks`).Scan(&n)
	if isUndefinedTable(err) {
		return 0, ErrIndexUninitialized
	}
	return n, err
}
