package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"context-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ingestJobRepository struct {
	pool *pgxpool.Pool
}

// NewIngestJobRepository creates a new IngestJobRepository.
func NewIngestJobRepository(pool *pgxpool.Pool) domain.IngestJobRepository {
	return &ingestJobRepository{pool: pool}
}

func (r *ingestJobRepository) Enqueue(ctx context.Context, job *domain.IngestJob) error {
	payloadBytes, err := json.Marshal(job.Payload)
	if err != nil {
		return &domain.StoreError{Op: "enqueue_job", Err: err}
	}

	query := `
		INSERT INTO ingest_jobs (id, document_id, payload, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID, job.DocumentID, payloadBytes, job.Status, job.ErrorMessage, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return &domain.StoreError{Op: "enqueue_job", Err: err}
	}
	return nil
}

func (r *ingestJobRepository) AcquireNext(ctx context.Context) (*domain.IngestJob, error) {
	// Claim-and-return in one statement; SKIP LOCKED keeps concurrent
	// workers from picking the same job.
	query := `
		WITH next_job AS (
			SELECT id
			FROM ingest_jobs
			WHERE status = 'new'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE ingest_jobs
		SET status = 'processing', updated_at = $1
		FROM next_job
		WHERE ingest_jobs.id = next_job.id
		RETURNING ingest_jobs.id, ingest_jobs.document_id, ingest_jobs.payload, ingest_jobs.status, ingest_jobs.error_message, ingest_jobs.created_at, ingest_jobs.updated_at
	`

	job, err := scanJob(r.pool.QueryRow(ctx, query, time.Now()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "acquire_job", Err: err}
	}
	return job, nil
}

func (r *ingestJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	query := `
		UPDATE ingest_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.pool.Exec(ctx, query, status, errorMessage, time.Now(), id)
	if err != nil {
		return &domain.StoreError{Op: "update_job_status", Err: err}
	}
	return nil
}

func (r *ingestJobRepository) Get(ctx context.Context, id uuid.UUID) (*domain.IngestJob, error) {
	query := `
		SELECT id, document_id, payload, status, error_message, created_at, updated_at
		FROM ingest_jobs
		WHERE id = $1
	`
	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get_job", Err: err}
	}
	return job, nil
}

func scanJob(row pgx.Row) (*domain.IngestJob, error) {
	var job domain.IngestJob
	var payloadBytes []byte

	err := row.Scan(&job.ID, &job.DocumentID, &payloadBytes, &job.Status,
		&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(payloadBytes) > 0 {
		if err := json.Unmarshal(payloadBytes, &job.Payload); err != nil {
			return nil, err
		}
	}
	return &job, nil
}
