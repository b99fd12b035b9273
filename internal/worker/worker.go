package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"context-engine/internal/domain"
	"context-engine/internal/usecase"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	jobTimeout          = 60 * time.Second
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// JobWorker polls the ingest job queue and runs each job through the
// ingestion pipeline. Failures back off exponentially so a broken
// embedding provider does not turn into a hot loop.
type JobWorker struct {
	jobRepo      domain.IngestJobRepository
	indexUsecase usecase.IndexDocumentUsecase
	logger       *slog.Logger
	stopChan     chan struct{}
	backoff      time.Duration
}

func NewJobWorker(
	jobRepo domain.IngestJobRepository,
	indexUsecase usecase.IndexDocumentUsecase,
	logger *slog.Logger,
) *JobWorker {
	return &JobWorker{
		jobRepo:      jobRepo,
		indexUsecase: indexUsecase,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("ingest_worker_started")
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("ingest_worker_stopping")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(defaultPollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNext(ctx)
	if err != nil {
		w.logger.Error("ingest_job_acquire_failed", "error", err)
		return
	}
	if job == nil {
		return // queue is empty
	}

	w.logger.Info("ingest_job_processing",
		"job_id", job.ID, "document_id", job.DocumentID)

	processErr := w.processIngestJob(ctx, job)

	status := "completed"
	var errMsg *string
	if processErr != nil {
		status = "failed"
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("ingest_worker_backing_off",
			"job_id", job.ID, "backoff", w.backoff, "error", processErr)
	} else {
		w.backoff = 0
		w.logger.Info("ingest_job_completed", "job_id", job.ID)
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.Error("ingest_job_status_update_failed", "job_id", job.ID, "error", err)
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *JobWorker) processIngestJob(ctx context.Context, job *domain.IngestJob) error {
	if job.Payload == nil {
		return fmt.Errorf("job %s has no document payload", job.ID)
	}
	if job.Payload.ID == "" {
		job.Payload.ID = job.DocumentID
	}
	return w.indexUsecase.Upsert(ctx, job.Payload)
}
