package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	"github.com/noah-isme/teacher-reports-api/internal/repository"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
	"github.com/noah-isme/teacher-reports-api/pkg/jobs"
	"github.com/noah-isme/teacher-reports-api/pkg/storage"
)

const reportJobType = "report.generate"

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type auditAppender interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

// ReportService manages asynchronous report generation: queuing, worker
// processing, signed downloads and retention cleanup.
type ReportService struct {
	repo    reportJobStore
	exports *ExportService
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	queue   *jobs.Queue
	audit   auditAppender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewReportService constructs a report service. The queue is attached later
// via SetQueue because the queue handler needs the service itself.
func NewReportService(
	repo reportJobStore,
	exports *ExportService,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	audit auditAppender,
	metrics *MetricsService,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:    repo,
		exports: exports,
		store:   store,
		signer:  signer,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
	}
}

// SetQueue wires the worker queue once it has been constructed.
func (s *ReportService) SetQueue(queue *jobs.Queue) {
	s.queue = queue
}

// CreateJob validates the request, persists a queued job row and hands it to
// the worker pool.
func (s *ReportService) CreateJob(ctx context.Context, userID string, req dto.ReportRequest) (*models.ReportJob, error) {
	switch req.Kind {
	case models.ReportKindWorkbook, models.ReportKindBundle, models.ReportKindNarrative:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report kind %q", req.Kind))
	}
	switch req.Format {
	case models.ReportFormatCSV, models.ReportFormatXLSX, models.ReportFormatJSON,
		models.ReportFormatZip, models.ReportFormatPDF, "":
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report format %q", req.Format))
	}
	if _, _, err := s.exports.analytics.ParsePeriod(req.Period); err != nil {
		return nil, err
	}

	job := &models.ReportJob{
		Kind:      req.Kind,
		Status:    models.ReportStatusQueued,
		CreatedBy: userID,
		Params: models.ReportJobParams{
			Period: req.Period,
			Status: req.Status,
			Format: req.Format,
		},
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	if err := s.enqueue(*job); err != nil {
		return nil, err
	}
	s.metrics.ReportJobStarted()
	return job, nil
}

// GetStatus returns the current job state.
func (s *ReportService) GetStatus(ctx context.Context, id string) (dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ReportStatusResponse{}, err
	}
	return dto.ReportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		ResultURL: job.ResultURL,
		Error:     job.ErrorMessage,
	}, nil
}

// Handle is the queue worker entry point for one job.
func (s *ReportService) Handle(ctx context.Context, job jobs.Job) error {
	row, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if row.Status == models.ReportStatusFinished || row.Status == models.ReportStatusFailed {
		return nil
	}

	processing := models.ReportStatusProcessing
	if err := s.repo.Update(ctx, row.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return err
	}

	filename, data, err := s.exports.Generate(ctx, *row)
	if err != nil {
		s.markFailed(ctx, row.ID, err, s.finalAttempt(job.Attempt))
		return err
	}
	relPath := fmt.Sprintf("%s/%s", row.ID, filename)
	if _, err := s.store.Save(relPath, data); err != nil {
		s.markFailed(ctx, row.ID, err, s.finalAttempt(job.Attempt))
		return err
	}

	token, _, err := s.signer.Generate(row.ID, relPath)
	if err != nil {
		s.markFailed(ctx, row.ID, err, s.finalAttempt(job.Attempt))
		return err
	}
	resultURL := fmt.Sprintf("/reports/%s/download?token=%s", row.ID, token)

	finished := models.ReportStatusFinished
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, row.ID, repository.UpdateReportJobParams{
		Status:     &finished,
		FilePath:   &relPath,
		ResultURL:  &resultURL,
		FinishedAt: &now,
	}); err != nil {
		return err
	}
	s.metrics.ReportJobFinished()

	if s.audit != nil {
		comment := fmt.Sprintf("kind=%s period=%s format=%s", row.Kind, row.Params.Period, row.Params.Format)
		if err := s.audit.Append(ctx, &models.AuditEntry{
			Actor:   row.CreatedBy,
			Action:  models.AuditActionExportGenerated,
			Comment: &comment,
		}); err != nil {
			s.logger.Warn("failed to audit export", zap.String("job_id", row.ID), zap.Error(err))
		}
	}
	s.logger.Info("report job finished", zap.String("job_id", row.ID), zap.String("file", relPath))
	return nil
}

// ResolveDownload validates a signed token against the requested job and
// opens the stored artifact.
func (s *ReportService) ResolveDownload(ctx context.Context, id, token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInvalidToken.Code,
			appErrors.ErrInvalidToken.Status, "download link is invalid or expired")
	}
	if jobID != id {
		return nil, "", appErrors.Clone(appErrors.ErrInvalidToken, "download token does not match this report")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != models.ReportStatusFinished || job.FilePath == nil || *job.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report artifact is no longer available")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report artifact is no longer available")
	}
	return file, relPath, nil
}

// RecoverPendingJobs re-enqueues rows left QUEUED by a previous process.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	rows, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return
	}
	for _, row := range rows {
		if err := s.enqueue(row); err != nil {
			s.logger.Warn("failed to requeue report job", zap.String("job_id", row.ID), zap.Error(err))
			continue
		}
		s.metrics.ReportJobStarted()
	}
	if len(rows) > 0 {
		s.logger.Info("recovered queued report jobs", zap.Int("count", len(rows)))
	}
}

// StartCleanup periodically removes expired artifacts and their files.
func (s *ReportService) StartCleanup(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupOnce(ctx, retention)
			}
		}
	}()
}

func (s *ReportService) cleanupOnce(ctx context.Context, retention time.Duration) {
	cutoff := time.Now().UTC().Add(-retention)
	rows, err := s.repo.ListFinishedBefore(ctx, cutoff, 50)
	if err != nil {
		s.logger.Warn("report cleanup listing failed", zap.Error(err))
		return
	}
	for _, row := range rows {
		if row.FilePath != nil {
			if err := s.store.Delete(*row.FilePath); err != nil {
				s.logger.Warn("failed to delete report artifact", zap.String("job_id", row.ID), zap.Error(err))
				continue
			}
		}
		empty := ""
		if err := s.repo.Update(ctx, row.ID, repository.UpdateReportJobParams{
			FilePath:  &empty,
			ResultURL: &empty,
		}); err != nil {
			s.logger.Warn("failed to clear report row", zap.String("job_id", row.ID), zap.Error(err))
		}
	}
	if deleted, err := s.store.CleanupOlderThan(retention); err != nil {
		s.logger.Warn("storage cleanup failed", zap.Error(err))
	} else if len(deleted) > 0 {
		s.logger.Info("removed expired export files", zap.Int("count", len(deleted)))
	}
}

func (s *ReportService) enqueue(row models.ReportJob) error {
	if s.queue == nil {
		return fmt.Errorf("report queue is not attached")
	}
	return s.queue.Enqueue(jobs.Job{ID: row.ID, Type: reportJobType})
}

// finalAttempt reports whether the given queue attempt is the last one the
// worker pool will run for a job.
func (s *ReportService) finalAttempt(attempt int) bool {
	if s.queue == nil {
		return true
	}
	return attempt >= s.queue.MaxRetries()
}

// markFailed records the failure cause. Only the final attempt moves the row
// to FAILED and settles the active-jobs gauge; earlier attempts keep the row
// PROCESSING so status polling does not flap while retries are pending.
func (s *ReportService) markFailed(ctx context.Context, id string, cause error, final bool) {
	message := cause.Error()
	params := repository.UpdateReportJobParams{ErrorMessage: &message}
	if final {
		failed := models.ReportStatusFailed
		now := time.Now().UTC()
		params.Status = &failed
		params.FinishedAt = &now
	}
	if err := s.repo.Update(ctx, id, params); err != nil {
		s.logger.Warn("failed to mark report job failed", zap.String("job_id", id), zap.Error(err))
	}
	if final {
		s.metrics.ReportJobFinished()
	}
}
