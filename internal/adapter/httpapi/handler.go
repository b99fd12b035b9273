package httpapi

import (
	"errors"
	"net/http"
	"time"

	"context-engine/internal/domain"
	"context-engine/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Handler exposes the ingestion and retrieval pipelines over HTTP.
type Handler struct {
	retrieveUsecase usecase.RetrieveContextUsecase
	indexUsecase    usecase.IndexDocumentUsecase
	jobRepo         domain.IngestJobRepository
}

func NewHandler(
	retrieveUsecase usecase.RetrieveContextUsecase,
	indexUsecase usecase.IndexDocumentUsecase,
	jobRepo domain.IngestJobRepository,
) *Handler {
	return &Handler{
		retrieveUsecase: retrieveUsecase,
		indexUsecase:    indexUsecase,
		jobRepo:         jobRepo,
	}
}

// RegisterRoutes attaches the API routes to the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	e.POST("/v1/retrieve", h.Retrieve)
	e.POST("/v1/documents", h.UpsertDocument)
	e.DELETE("/v1/documents/:id", h.DeleteDocument)
	e.POST("/v1/ingest-jobs", h.EnqueueIngestJob)
	e.GET("/v1/ingest-jobs/:id", h.GetIngestJob)
}

type retrieveRequest struct {
	Query   string          `json:"query"`
	Filters *filtersPayload `json:"filters,omitempty"`
}

type filtersPayload struct {
	TenantID string     `json:"tenant_id,omitempty"`
	Product  string     `json:"product,omitempty"`
	Version  string     `json:"version,omitempty"`
	Language string     `json:"language,omitempty"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}

type citationPayload struct {
	Tag        string    `json:"tag"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Title      string    `json:"title"`
	URL        string    `json:"url,omitempty"`
	Section    string    `json:"section"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type retrieveResponse struct {
	ContextText string            `json:"context_text"`
	Sources     []citationPayload `json:"sources"`
}

// Retrieve runs the full retrieval pipeline for a query.
// (POST /v1/retrieve)
func (h *Handler) Retrieve(ctx echo.Context) error {
	var req retrieveRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing query"})
	}

	rc, err := h.retrieveUsecase.Retrieve(ctx.Request().Context(), req.Query, toDomainFilters(req.Filters))
	if err != nil {
		return errorResponse(ctx, err)
	}

	sources := make([]citationPayload, 0, len(rc.Sources))
	for _, cite := range rc.Sources {
		sources = append(sources, citationPayload{
			Tag:        cite.Tag,
			DocumentID: cite.DocumentID,
			ChunkIndex: cite.ChunkIndex,
			Title:      cite.Title,
			URL:        cite.URL,
			Section:    cite.Section,
			UpdatedAt:  cite.UpdatedAt,
		})
	}

	return ctx.JSON(http.StatusOK, retrieveResponse{
		ContextText: rc.ContextText,
		Sources:     sources,
	})
}

type chapterPayload struct {
	Title     string `json:"title"`
	Gist      string `json:"gist,omitempty"`
	StartUnit *int   `json:"start_unit,omitempty"`
	EndUnit   *int   `json:"end_unit,omitempty"`
}

type unitPayload struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

type documentRequest struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	TenantID        string           `json:"tenant_id,omitempty"`
	Product         string           `json:"product,omitempty"`
	Version         string           `json:"version,omitempty"`
	Language        string           `json:"language,omitempty"`
	URL             string           `json:"url,omitempty"`
	UpdatedAt       *time.Time       `json:"updated_at,omitempty"`
	DurationSeconds float64          `json:"duration_seconds"`
	Summary         string           `json:"summary,omitempty"`
	Keywords        []string         `json:"keywords,omitempty"`
	Chapters        []chapterPayload `json:"chapters,omitempty"`
	Units           []unitPayload    `json:"units"`
}

// UpsertDocument indexes a document synchronously.
// (POST /v1/documents)
func (h *Handler) UpsertDocument(ctx echo.Context) error {
	var req documentRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	doc, err := toDomainDocument(&req)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.indexUsecase.Upsert(ctx.Request().Context(), doc); err != nil {
		return errorResponse(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"document_id": doc.ID,
		"status":      "indexed",
	})
}

// DeleteDocument removes a document and its chunks from the index.
// (DELETE /v1/documents/:id)
func (h *Handler) DeleteDocument(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing document id"})
	}

	if err := h.indexUsecase.Delete(ctx.Request().Context(), id); err != nil {
		return errorResponse(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"document_id": id,
		"status":      "deleted",
	})
}

// EnqueueIngestJob queues a document for asynchronous indexing.
// (POST /v1/ingest-jobs)
func (h *Handler) EnqueueIngestJob(ctx echo.Context) error {
	var req documentRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	doc, err := toDomainDocument(&req)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	job := &domain.IngestJob{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		Payload:    doc,
		Status:     "new",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := h.jobRepo.Enqueue(ctx.Request().Context(), job); err != nil {
		return errorResponse(ctx, err)
	}

	return ctx.JSON(http.StatusAccepted, map[string]string{
		"job_id": job.ID.String(),
		"status": "queued",
	})
}

type jobResponse struct {
	JobID        string    `json:"job_id"`
	DocumentID   string    `json:"document_id"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetIngestJob reports the status of a queued ingestion job.
// (GET /v1/ingest-jobs/:id)
func (h *Handler) GetIngestJob(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid job id"})
	}

	job, err := h.jobRepo.Get(ctx.Request().Context(), id)
	if err != nil {
		return errorResponse(ctx, err)
	}
	if job == nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	return ctx.JSON(http.StatusOK, jobResponse{
		JobID:        job.ID.String(),
		DocumentID:   job.DocumentID,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	})
}

// Health reports liveness.
// (GET /healthz)
func (h *Handler) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func toDomainFilters(p *filtersPayload) domain.SearchFilters {
	if p == nil {
		return domain.SearchFilters{}
	}
	return domain.SearchFilters{
		TenantID: p.TenantID,
		Product:  p.Product,
		Version:  p.Version,
		Language: p.Language,
		From:     p.From,
		To:       p.To,
	}
}

func toDomainDocument(req *documentRequest) (*domain.Document, error) {
	if req.ID == "" {
		return nil, errors.New("missing document id")
	}
	if req.Title == "" {
		return nil, errors.New("missing title")
	}

	updatedAt := time.Now()
	if req.UpdatedAt != nil {
		updatedAt = *req.UpdatedAt
	}

	chapters := make([]domain.Chapter, 0, len(req.Chapters))
	for _, ch := range req.Chapters {
		start, end := -1, -1
		if ch.StartUnit != nil {
			start = *ch.StartUnit
		}
		if ch.EndUnit != nil {
			end = *ch.EndUnit
		}
		chapters = append(chapters, domain.Chapter{
			Title:     ch.Title,
			Gist:      ch.Gist,
			StartUnit: start,
			EndUnit:   end,
		})
	}

	units := make([]domain.Unit, 0, len(req.Units))
	for _, u := range req.Units {
		units = append(units, domain.Unit{Speaker: u.Speaker, Text: u.Text})
	}

	return &domain.Document{
		ID:              req.ID,
		Title:           req.Title,
		TenantID:        req.TenantID,
		Product:         req.Product,
		Version:         req.Version,
		Language:        req.Language,
		URL:             req.URL,
		UpdatedAt:       updatedAt,
		DurationSeconds: req.DurationSeconds,
		Summary:         req.Summary,
		Keywords:        req.Keywords,
		Chapters:        chapters,
		Units:           units,
	}, nil
}

// errorResponse maps domain error types to HTTP status codes. Provider
// failures surface as 502 so callers can distinguish them from store issues.
func errorResponse(ctx echo.Context, err error) error {
	var embErr *domain.EmbeddingError
	var rerankErr *domain.RerankError
	var storeErr *domain.StoreError

	switch {
	case errors.As(err, &embErr), errors.As(err, &rerankErr):
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	case errors.As(err, &storeErr):
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
