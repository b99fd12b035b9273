package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DocumentRepository defines the operations for managing document rows.
type DocumentRepository interface {
	// Upsert inserts or replaces the document row keyed by its stable ID.
	Upsert(ctx context.Context, doc *Document) error

	// Get retrieves a document row by ID. Returns nil, nil if not found.
	Get(ctx context.Context, id string) (*Document, error)

	// Delete removes the document row. Deleting a missing document is a
	// no-op.
	Delete(ctx context.Context, id string) error
}

// ChunkRepository defines the operations for managing and searching chunk
// rows.
type ChunkRepository interface {
	// DeleteByDocumentID removes all chunks for a document.
	DeleteByDocumentID(ctx context.Context, documentID string) error

	// BulkInsert inserts the given chunks.
	BulkInsert(ctx context.Context, chunks []Chunk) error

	// GetByDocumentID retrieves all chunks for a document, ordered by
	// chunk index.
	GetByDocumentID(ctx context.Context, documentID string) ([]Chunk, error)

	// DenseSearch performs vector-similarity search, returning up to limit
	// candidates with their dense score set.
	DenseSearch(ctx context.Context, queryVector []float32, filters SearchFilters, limit int) ([]ScoredChunk, error)

	// SparseSearch performs lexical full-text search, returning up to limit
	// candidates with their sparse score set, normalized to [0,1] by the
	// batch maximum.
	SparseSearch(ctx context.Context, query string, filters SearchFilters, limit int) ([]ScoredChunk, error)

	// Siblings retrieves chunks at the given order indexes within one
	// (document, section) pair. Missing indexes are silently skipped.
	Siblings(ctx context.Context, documentID, section string, orderIndexes []int) ([]Chunk, error)
}

// TransactionManager runs a function within a store transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// IngestJob is a queued ingestion request carrying a document payload.
type IngestJob struct {
	ID           uuid.UUID
	DocumentID   string
	Payload      *Document
	Status       string // "new", "processing", "completed", "failed"
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IngestJobRepository defines the operations for the ingest job queue.
type IngestJobRepository interface {
	// Enqueue inserts a new job.
	Enqueue(ctx context.Context, job *IngestJob) error

	// AcquireNext atomically claims the oldest new job, marking it
	// processing. Returns nil, nil when the queue is empty.
	AcquireNext(ctx context.Context) (*IngestJob, error)

	// UpdateStatus records the outcome of a claimed job.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error

	// Get retrieves a job by ID. Returns nil, nil if not found.
	Get(ctx context.Context, id uuid.UUID) (*IngestJob, error)
}
