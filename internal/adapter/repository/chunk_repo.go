package repository

import (
	"context"
	"fmt"
	"strings"

	"context-engine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type chunkRepository struct {
	pool *pgxpool.Pool
}

// NewChunkRepository creates a new ChunkRepository backed by Postgres with
// pgvector.
func NewChunkRepository(pool *pgxpool.Pool) domain.ChunkRepository {
	return &chunkRepository{pool: pool}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *chunkRepository) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *chunkRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return &domain.StoreError{Op: "delete_chunks", Err: err}
	}
	return nil
}

func (r *chunkRepository) BulkInsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(chunks))
	for i, c := range chunks {
		rows[i] = []interface{}{
			c.DocumentID,
			c.ChunkIndex,
			c.Section,
			c.OrderIndex,
			c.Content,
			c.Speakers,
			c.StartUnit,
			c.EndUnit,
			c.Embedding,
			c.Title,
			c.URL,
			c.UpdatedAt,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"chunks"},
		[]string{"document_id", "chunk_index", "section", "order_index", "content", "speakers", "start_unit", "end_unit", "embedding", "title", "url", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return &domain.StoreError{Op: "bulk_insert_chunks", Err: err}
	}
	return nil
}

const chunkColumns = `document_id, chunk_index, section, order_index, content, speakers, start_unit, end_unit, title, url, updated_at`

// searchChunkColumns qualifies the chunk columns for queries that join the
// documents table to apply metadata filters.
const searchChunkColumns = `c.document_id, c.chunk_index, c.section, c.order_index, c.content, c.speakers, c.start_unit, c.end_unit, c.title, c.url, c.updated_at`

func (r *chunkRepository) GetByDocumentID(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	query := `
		SELECT ` + chunkColumns + `
		FROM chunks
		WHERE document_id = $1
		ORDER BY chunk_index ASC
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, documentID)
	if err != nil {
		return nil, &domain.StoreError{Op: "get_chunks", Err: err}
	}
	defer rows.Close()

	return scanChunks(rows, "get_chunks")
}

func (r *chunkRepository) DenseSearch(ctx context.Context, queryVector []float32, filters domain.SearchFilters, limit int) ([]domain.ScoredChunk, error) {
	args := []interface{}{pgvector.NewVector(queryVector)}
	where, args := buildFilterClause(filters, args)

	query := fmt.Sprintf(`
		SELECT `+searchChunkColumns+`,
		       1 - (c.embedding <=> $1) AS score
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		%s
		ORDER BY c.embedding <=> $1
		LIMIT %d
	`, where, limit)

	rows, err := r.getExecutor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: "dense_search", Err: err}
	}
	defer rows.Close()

	var hits []domain.ScoredChunk
	for rows.Next() {
		chunk, score, err := scanScoredChunk(rows)
		if err != nil {
			return nil, &domain.StoreError{Op: "dense_search", Err: err}
		}
		hits = append(hits, domain.ScoredChunk{Chunk: chunk}.WithDense(score))
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "dense_search", Err: err}
	}
	return hits, nil
}

func (r *chunkRepository) SparseSearch(ctx context.Context, query string, filters domain.SearchFilters, limit int) ([]domain.ScoredChunk, error) {
	args := []interface{}{query}
	where, args := buildFilterClause(filters, args)
	where += ` AND to_tsvector('simple', c.content) @@ websearch_to_tsquery('simple', $1)`

	sql := fmt.Sprintf(`
		SELECT `+searchChunkColumns+`,
		       ts_rank_cd(to_tsvector('simple', c.content), websearch_to_tsquery('simple', $1)) AS score
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		%s
		ORDER BY score DESC, c.document_id ASC, c.chunk_index ASC
		LIMIT %d
	`, where, limit)

	rows, err := r.getExecutor(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: "sparse_search", Err: err}
	}
	defer rows.Close()

	var hits []domain.ScoredChunk
	var maxScore float64
	var rawScores []float64
	for rows.Next() {
		chunk, score, err := scanScoredChunk(rows)
		if err != nil {
			return nil, &domain.StoreError{Op: "sparse_search", Err: err}
		}
		hits = append(hits, domain.ScoredChunk{Chunk: chunk})
		rawScores = append(rawScores, score)
		if score > maxScore {
			maxScore = score
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "sparse_search", Err: err}
	}

	// ts_rank_cd is unbounded; normalize by the batch maximum so fusion
	// sees both signals on a [0,1] scale.
	for i := range hits {
		normalized := rawScores[i]
		if maxScore > 0 {
			normalized = rawScores[i] / maxScore
		}
		hits[i] = hits[i].WithSparse(normalized)
	}
	return hits, nil
}

func (r *chunkRepository) Siblings(ctx context.Context, documentID, section string, orderIndexes []int) ([]domain.Chunk, error) {
	if len(orderIndexes) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + chunkColumns + `
		FROM chunks
		WHERE document_id = $1 AND section = $2 AND order_index = ANY($3)
		ORDER BY order_index ASC
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, documentID, section, orderIndexes)
	if err != nil {
		return nil, &domain.StoreError{Op: "siblings", Err: err}
	}
	defer rows.Close()

	return scanChunks(rows, "siblings")
}

func scanChunks(rows pgx.Rows, op string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		err := rows.Scan(&c.DocumentID, &c.ChunkIndex, &c.Section, &c.OrderIndex, &c.Content,
			&c.Speakers, &c.StartUnit, &c.EndUnit, &c.Title, &c.URL, &c.UpdatedAt)
		if err != nil {
			return nil, &domain.StoreError{Op: op, Err: err}
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: op, Err: err}
	}
	return chunks, nil
}

func scanScoredChunk(rows pgx.Rows) (domain.Chunk, float64, error) {
	var c domain.Chunk
	var score float64
	err := rows.Scan(&c.DocumentID, &c.ChunkIndex, &c.Section, &c.OrderIndex, &c.Content,
		&c.Speakers, &c.StartUnit, &c.EndUnit, &c.Title, &c.URL, &c.UpdatedAt, &score)
	return c, score, err
}

// buildFilterClause renders SearchFilters as an AND-combined WHERE clause.
// args already holds the leading query parameter(s); new placeholders
// continue the numbering.
func buildFilterClause(f domain.SearchFilters, args []interface{}) (string, []interface{}) {
	conds := []string{"TRUE"}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.TenantID != "" {
		add("d.tenant_id = $%d", f.TenantID)
	}
	if f.Product != "" {
		add("d.product = $%d", f.Product)
	}
	if f.Version != "" {
		add("d.version = $%d", f.Version)
	}
	if f.Language != "" {
		add("d.language = $%d", f.Language)
	}
	if f.From != nil {
		add("d.updated_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("d.updated_at <= $%d", *f.To)
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}
