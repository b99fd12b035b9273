package domain

import (
	"strconv"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Document represents a source unit such as a call transcript or a
// knowledge-base page. It is owned by the ingestion pipeline: created and
// updated only through Upsert, never mutated by retrieval.
type Document struct {
	ID        string
	Title     string
	TenantID  string
	Product   string
	Version   string
	Language  string
	URL       string
	UpdatedAt time.Time

	// DurationSeconds is the size proxy used for chunking strategy
	// selection. For text documents callers derive it from character count.
	DurationSeconds float64

	Summary  string
	Keywords []string
	Chapters []Chapter
	Units    []Unit

	// SourceHash is the content hash of the last indexed version.
	SourceHash string

	// Embedding is the whole-document embedding, used for document-level
	// matches when chunking is skipped. Nil until indexed.
	Embedding *pgvector.Vector
}

// Chapter is an externally supplied topic boundary within a document.
// StartUnit/EndUnit are indexes into Units; EndUnit is exclusive. A chapter
// with StartUnit < 0 carries no explicit range, only a title/gist.
type Chapter struct {
	Title     string
	Gist      string
	StartUnit int
	EndUnit   int
}

// HasRange reports whether the chapter carries explicit unit boundaries.
func (c Chapter) HasRange() bool {
	return c.StartUnit >= 0 && c.EndUnit > c.StartUnit
}

// Unit is a single sentence-level utterance within a document.
type Unit struct {
	Speaker string
	Text    string
}

// Chunk is a contiguous span of a document's content. Chunks are fully
// replaced (delete-then-insert) on each re-ingestion of their document, so
// (DocumentID, ChunkIndex) is only stable within one indexed version.
type Chunk struct {
	DocumentID string
	ChunkIndex int

	// Section is a chapter title or a synthetic discussion-segment label.
	// OrderIndex values are contiguous non-negative integers within one
	// (DocumentID, Section) pair; neighbor expansion depends on this.
	Section    string
	OrderIndex int

	Content   string
	Speakers  []string
	StartUnit int
	EndUnit   int

	Embedding pgvector.Vector

	// Denormalized document fields for fast context rendering.
	Title     string
	URL       string
	UpdatedAt time.Time
}

// Key returns the chunk identifier used for deduplication across pipeline
// stages.
func (c Chunk) Key() string {
	return c.DocumentID + "#" + strconv.Itoa(c.ChunkIndex)
}

// SearchFilters restricts dense and sparse search identically. A zero field
// means no constraint; set fields are combined with AND semantics.
type SearchFilters struct {
	TenantID string
	Product  string
	Version  string
	Language string
	From     *time.Time
	To       *time.Time
}

// ScoredChunk is a chunk plus the scores accumulated as it passes through
// the retrieval pipeline. A chunk pulled in only via neighbor expansion
// carries no scores at all.
type ScoredChunk struct {
	Chunk Chunk

	Dense  *float64
	Sparse *float64
	Fused  *float64
	Rerank *float64
}

// Citation describes one chunk admitted to the final context, for source
// display alongside the rendered text.
type Citation struct {
	DocumentID string
	ChunkIndex int
	Title      string
	URL        string
	Section    string
	UpdatedAt  time.Time
	Tag        string
}

// RetrievalContext is the retrieval pipeline's output: the admitted chunks
// in narrative order, a parallel citation list, and the rendered text block
// handed to the downstream prompt. Constructed fresh per query, never
// persisted.
type RetrievalContext struct {
	Chunks      []ScoredChunk
	Sources     []Citation
	ContextText string
}

func floatPtr(v float64) *float64 {
	return &v
}

// WithDense returns the chunk with its dense score set.
func (s ScoredChunk) WithDense(v float64) ScoredChunk {
	s.Dense = floatPtr(v)
	return s
}

// WithSparse returns the chunk with its sparse score set.
func (s ScoredChunk) WithSparse(v float64) ScoredChunk {
	s.Sparse = floatPtr(v)
	return s
}
