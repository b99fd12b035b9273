package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"context-engine/internal/domain"

	"github.com/pgvector/pgvector-go"
)

// documentEmbedInputMaxChars caps the document-level embedding input to
// respect provider limits.
const documentEmbedInputMaxChars = 8000

// IndexDocumentUsecase is the ingestion pipeline. Upsert is idempotent:
// re-running it for the same document replaces prior state.
type IndexDocumentUsecase interface {
	Upsert(ctx context.Context, doc *domain.Document) error
	Delete(ctx context.Context, documentID string) error
}

type indexDocumentUsecase struct {
	docRepo   domain.DocumentRepository
	chunkRepo domain.ChunkRepository
	txManager domain.TransactionManager
	hasher    domain.SourceHashPolicy
	builder   *domain.ChunkBuilder
	embedder  domain.Embedder
	logger    *slog.Logger

	// docLocks serializes concurrent re-ingestion of the same document ID.
	// The delete-then-insert chunk replacement is transactional against
	// readers but not against a second writer of the same document.
	// Entries are reference-counted and removed once the last holder
	// releases, so the map does not grow with every ID ever ingested.
	mu       sync.Mutex
	docLocks map[string]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

// NewIndexDocumentUsecase creates a new IndexDocumentUsecase.
func NewIndexDocumentUsecase(
	docRepo domain.DocumentRepository,
	chunkRepo domain.ChunkRepository,
	txManager domain.TransactionManager,
	hasher domain.SourceHashPolicy,
	builder *domain.ChunkBuilder,
	embedder domain.Embedder,
	logger *slog.Logger,
) IndexDocumentUsecase {
	return &indexDocumentUsecase{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		txManager: txManager,
		hasher:    hasher,
		builder:   builder,
		embedder:  embedder,
		logger:    logger,
		docLocks:  make(map[string]*docLock),
	}
}

func (u *indexDocumentUsecase) lockDocument(id string) func() {
	u.mu.Lock()
	lock, ok := u.docLocks[id]
	if !ok {
		lock = &docLock{}
		u.docLocks[id] = lock
	}
	lock.refs++
	u.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		u.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(u.docLocks, id)
		}
		u.mu.Unlock()
	}
}

func (u *indexDocumentUsecase) Upsert(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("document id is empty")
	}

	unlock := u.lockDocument(doc.ID)
	defer unlock()

	start := time.Now()
	sourceHash := u.hasher.Compute(doc)

	err := u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := u.docRepo.Get(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}

		// Unchanged content produces an identical chunk set, so skip the
		// embedding calls and the rewrite entirely.
		if existing != nil && existing.SourceHash == sourceHash &&
			existing.Title == doc.Title && existing.URL == doc.URL {
			u.logger.Info("index_upsert_skipped_unchanged",
				slog.String("document_id", doc.ID))
			return nil
		}

		docResult, err := u.embedder.Embed(ctx, buildDocumentEmbedInput(doc), domain.EmbeddingModeDocument)
		if err != nil {
			return attachDocumentID(err, doc.ID)
		}
		embedding := pgvector.NewVector(docResult.Vector)
		doc.Embedding = &embedding
		doc.SourceHash = sourceHash

		if err := u.docRepo.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("failed to upsert document: %w", err)
		}

		strategy := domain.SelectStrategy(doc.DurationSeconds, len(doc.Chapters) > 0)
		chunks := u.builder.Build(doc, strategy)

		if err := u.chunkRepo.DeleteByDocumentID(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to delete old chunks: %w", err)
		}

		if len(chunks) > 0 {
			contents := make([]string, len(chunks))
			for i, c := range chunks {
				contents[i] = c.Content
			}
			results, err := u.embedder.EmbedBatch(ctx, contents, domain.EmbeddingModeDocument)
			if err != nil {
				return attachDocumentID(err, doc.ID)
			}
			if len(results) != len(chunks) {
				return attachDocumentID(fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(results)), doc.ID)
			}
			for i := range chunks {
				chunks[i].Embedding = pgvector.NewVector(results[i].Vector)
			}

			if err := u.chunkRepo.BulkInsert(ctx, chunks); err != nil {
				return fmt.Errorf("failed to insert chunks: %w", err)
			}
		}

		u.logger.Info("index_upsert_completed",
			slog.String("document_id", doc.ID),
			slog.String("strategy", string(strategy)),
			slog.Int("chunk_count", len(chunks)),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

func (u *indexDocumentUsecase) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document id is empty")
	}

	unlock := u.lockDocument(documentID)
	defer unlock()

	return u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if err := u.chunkRepo.DeleteByDocumentID(ctx, documentID); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		if err := u.docRepo.Delete(ctx, documentID); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		u.logger.Info("index_delete_completed", slog.String("document_id", documentID))
		return nil
	})
}

// buildDocumentEmbedInput concatenates title, summary and keywords, skipping
// absent fields, capped at the provider input limit.
func buildDocumentEmbedInput(doc *domain.Document) string {
	parts := make([]string, 0, 3)
	if doc.Title != "" {
		parts = append(parts, doc.Title)
	}
	if doc.Summary != "" {
		parts = append(parts, doc.Summary)
	}
	if len(doc.Keywords) > 0 {
		parts = append(parts, strings.Join(doc.Keywords, ", "))
	}
	input := strings.Join(parts, "\n")
	if len(input) <= documentEmbedInputMaxChars {
		return input
	}
	// Cut on rune boundaries so a multibyte sequence is never split.
	runes := []rune(input)
	if len(runes) <= documentEmbedInputMaxChars {
		return input
	}
	return string(runes[:documentEmbedInputMaxChars])
}

// attachDocumentID surfaces embedding failures with the document identifier
// attached, so the caller knows what to retry.
func attachDocumentID(err error, documentID string) error {
	var embErr *domain.EmbeddingError
	if errors.As(err, &embErr) {
		return &domain.EmbeddingError{DocumentID: documentID, Err: embErr.Err}
	}
	return &domain.EmbeddingError{DocumentID: documentID, Err: err}
}
