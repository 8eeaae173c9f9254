package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables the backend needs. It is idempotent.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool, embeddingDim int) error {
	if embeddingDim <= 0 {
		embeddingDim = 768
	}
	if _, err := db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	for i, stmt := range schemaStatements(embeddingDim) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i, err)
		}
	}
	return nil
}

func schemaStatements(dim int) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			is_bookmarked BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, updated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			role VARCHAR(16) NOT NULL CHECK (role IN ('user', 'assistant')),
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, id)`,
		`CREATE TABLE IF NOT EXISTS laws (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS law_articles (
			id BIGSERIAL PRIMARY KEY,
			law_id BIGINT NOT NULL REFERENCES laws(id) ON DELETE CASCADE,
			article_number VARCHAR(64) NOT NULL,
			title VARCHAR(255) NOT NULL DEFAULT '',
			UNIQUE (law_id, article_number)
		)`,
		`CREATE TABLE IF NOT EXISTS law_article_revisions (
			id BIGSERIAL PRIMARY KEY,
			article_id BIGINT NOT NULL REFERENCES law_articles(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			effective_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS statute_chunks (
			id BIGSERIAL PRIMARY KEY,
			revision_id BIGINT REFERENCES law_article_revisions(id) ON DELETE SET NULL,
			chunk_index INTEGER NOT NULL DEFAULT 0,
			source_label TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dim),
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_statute_chunks_revision_chunk
			ON statute_chunks(revision_id, chunk_index) WHERE revision_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_statute_chunks_embedding
			ON statute_chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE TABLE IF NOT EXISTS claim_checks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			session_id UUID REFERENCES chat_sessions(id) ON DELETE SET NULL,
			claim_text TEXT NOT NULL,
			verdict VARCHAR(16) NOT NULL,
			explanation JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS claim_revisions (
			claim_id UUID NOT NULL REFERENCES claim_checks(id) ON DELETE CASCADE,
			revision_id BIGINT NOT NULL REFERENCES law_article_revisions(id) ON DELETE CASCADE,
			PRIMARY KEY (claim_id, revision_id)
		)`,
		`CREATE TABLE IF NOT EXISTS explanation_caches (
			revision_id BIGINT PRIMARY KEY REFERENCES law_article_revisions(id) ON DELETE CASCADE,
			plain_summary TEXT NOT NULL,
			example_case TEXT NOT NULL,
			caution_note TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS index_jobs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			revision_id BIGINT NOT NULL REFERENCES law_article_revisions(id) ON DELETE CASCADE,
			fingerprint VARCHAR(64) NOT NULL UNIQUE,
			payload JSONB NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			attempts INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL DEFAULT 5,
			error_message TEXT,
			run_after TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			locked_until TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_index_jobs_ready ON index_jobs(status, run_after)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			session_id UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			message_id BIGINT NOT NULL REFERENCES chat_messages(id) ON DELETE CASCADE,
			mime_type VARCHAR(100) NOT NULL,
			size BIGINT NOT NULL,
			storage_path TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
}
