package repository

import (
	"context"
	"errors"

	"context-engine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type documentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(pool *pgxpool.Pool) domain.DocumentRepository {
	return &documentRepository{pool: pool}
}

func (r *documentRepository) getExecutor(ctx context.Context) interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
} {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *documentRepository) Upsert(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, title, tenant_id, product, version, language, url, updated_at, duration_seconds, summary, source_hash, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			tenant_id = EXCLUDED.tenant_id,
			product = EXCLUDED.product,
			version = EXCLUDED.version,
			language = EXCLUDED.language,
			url = EXCLUDED.url,
			updated_at = EXCLUDED.updated_at,
			duration_seconds = EXCLUDED.duration_seconds,
			summary = EXCLUDED.summary,
			source_hash = EXCLUDED.source_hash,
			embedding = EXCLUDED.embedding
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query,
		doc.ID, doc.Title, doc.TenantID, doc.Product, doc.Version, doc.Language,
		doc.URL, doc.UpdatedAt, doc.DurationSeconds, doc.Summary, doc.SourceHash, doc.Embedding)
	if err != nil {
		return &domain.StoreError{Op: "upsert_document", Err: err}
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, title, tenant_id, product, version, language, url, updated_at, duration_seconds, summary, source_hash
		FROM documents
		WHERE id = $1
	`
	row := r.getExecutor(ctx).QueryRow(ctx, query, id)

	var doc domain.Document
	err := row.Scan(&doc.ID, &doc.Title, &doc.TenantID, &doc.Product, &doc.Version,
		&doc.Language, &doc.URL, &doc.UpdatedAt, &doc.DurationSeconds, &doc.Summary, &doc.SourceHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get_document", Err: err}
	}
	return &doc, nil
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return &domain.StoreError{Op: "delete_document", Err: err}
	}
	return nil
}
