package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	"github.com/noah-isme/teacher-reports-api/internal/repository"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
	"github.com/noah-isme/teacher-reports-api/pkg/jobs"
	"github.com/noah-isme/teacher-reports-api/pkg/storage"
)

type fakeReportStore struct {
	rows map[string]*models.ReportJob
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{rows: map[string]*models.ReportJob{}}
}

func (f *fakeReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	clone := *job
	f.rows[job.ID] = &clone
	return nil
}

func (f *fakeReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if row, ok := f.rows[id]; ok {
		clone := *row
		return &clone, nil
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	row, ok := f.rows[id]
	if !ok {
		return appErrors.ErrNotFound
	}
	if params.Status != nil {
		row.Status = *params.Status
	}
	if params.FilePath != nil {
		row.FilePath = params.FilePath
	}
	if params.ResultURL != nil {
		row.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		row.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		row.FinishedAt = params.FinishedAt
	}
	return nil
}

func (f *fakeReportStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	queued := []models.ReportJob{}
	for _, row := range f.rows {
		if row.Status == models.ReportStatusQueued {
			queued = append(queued, *row)
		}
	}
	return queued, nil
}

func (f *fakeReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	finished := []models.ReportJob{}
	for _, row := range f.rows {
		if row.Status == models.ReportStatusFinished && row.FinishedAt != nil && row.FinishedAt.Before(cutoff) {
			finished = append(finished, *row)
		}
	}
	return finished, nil
}

func newReportFixture(t *testing.T) (*ReportService, *fakeReportStore) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	exports := newExportService(exportFixture())
	repo := newFakeReportStore()
	svc := NewReportService(repo, exports, store, signer, &fakeAudit{}, nil, nil)
	return svc, repo
}

func TestCreateJobValidatesKind(t *testing.T) {
	svc, _ := newReportFixture(t)

	_, err := svc.CreateJob(context.Background(), "admin", dto.ReportRequest{
		Kind:   "poster",
		Period: "year_2024",
		Format: models.ReportFormatCSV,
	})

	assert.Error(t, err)
}

func TestCreateJobValidatesPeriod(t *testing.T) {
	svc, _ := newReportFixture(t)

	_, err := svc.CreateJob(context.Background(), "admin", dto.ReportRequest{
		Kind:   models.ReportKindWorkbook,
		Period: "decade_2020",
		Format: models.ReportFormatCSV,
	})

	assert.Error(t, err)
}

func TestCreateJobEnqueues(t *testing.T) {
	svc, repo := newReportFixture(t)
	queue := jobs.NewQueue("reports", func(ctx context.Context, job jobs.Job) error { return nil }, jobs.QueueConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()
	svc.SetQueue(queue)

	job, err := svc.CreateJob(context.Background(), "admin@uni.edu", dto.ReportRequest{
		Kind:   models.ReportKindWorkbook,
		Period: "year_2024",
		Format: models.ReportFormatCSV,
	})

	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	row, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@uni.edu", row.CreatedBy)
}

func TestHandleFinishesJobAndSignsDownload(t *testing.T) {
	svc, repo := newReportFixture(t)
	require.NoError(t, repo.Create(context.Background(), &models.ReportJob{
		ID:        "job-1",
		Kind:      models.ReportKindWorkbook,
		CreatedBy: "admin@uni.edu",
		Params:    models.ReportJobParams{Period: "year_2024", Format: models.ReportFormatCSV},
	}))

	err := svc.Handle(context.Background(), jobs.Job{ID: "job-1"})

	require.NoError(t, err)
	row, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, row.Status)
	require.NotNil(t, row.ResultURL)
	require.True(t, strings.HasPrefix(*row.ResultURL, "/reports/job-1/download?token="))
	require.NotNil(t, row.FinishedAt)

	token := strings.TrimPrefix(*row.ResultURL, "/reports/job-1/download?token=")
	file, name, err := svc.ResolveDownload(context.Background(), "job-1", token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	assert.Contains(t, name, "workbook_year_2024_")
}

func TestHandleMarksFailedOnBadParams(t *testing.T) {
	svc, repo := newReportFixture(t)
	require.NoError(t, repo.Create(context.Background(), &models.ReportJob{
		ID:     "job-1",
		Kind:   models.ReportKindWorkbook,
		Params: models.ReportJobParams{Period: "decade_2020", Format: models.ReportFormatCSV},
	}))

	err := svc.Handle(context.Background(), jobs.Job{ID: "job-1"})

	require.Error(t, err)
	row, getErr := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, models.ReportStatusFailed, row.Status)
	require.NotNil(t, row.ErrorMessage)
}

func newMeteredReportFixture(t *testing.T) (*ReportService, *fakeReportStore, *MetricsService) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	metrics := NewMetricsService()
	repo := newFakeReportStore()
	svc := NewReportService(repo, newExportService(exportFixture()), store, signer, &fakeAudit{}, metrics, nil)
	return svc, repo, metrics
}

func TestFailingJobSettlesActiveGauge(t *testing.T) {
	svc, repo, metrics := newMeteredReportFixture(t)
	queue := jobs.NewQueue("reports", func(context.Context, jobs.Job) error { return nil }, jobs.QueueConfig{MaxRetries: 2})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()
	svc.SetQueue(queue)

	job, err := svc.CreateJob(context.Background(), "admin@uni.edu", dto.ReportRequest{
		Kind:   models.ReportKindWorkbook,
		Period: "year_2024",
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.reportJobsActive))

	// Break the stored params so every worker attempt fails.
	repo.rows[job.ID].Params.Period = "decade_2020"

	require.Error(t, svc.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 0}))
	row, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, row.Status)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.reportJobsActive))

	require.Error(t, svc.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1}))
	require.Error(t, svc.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 2}))

	row, err = repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, row.Status)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.reportJobsActive))
}

func TestHandleSkipsTerminallyFailedRow(t *testing.T) {
	svc, repo, metrics := newMeteredReportFixture(t)
	msg := "export failed"
	require.NoError(t, repo.Create(context.Background(), &models.ReportJob{
		ID:           "job-1",
		Kind:         models.ReportKindWorkbook,
		Status:       models.ReportStatusFailed,
		ErrorMessage: &msg,
		Params:       models.ReportJobParams{Period: "year_2024", Format: models.ReportFormatCSV},
	}))

	require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "job-1"}))

	row, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, row.Status)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.reportJobsActive))
}

func TestRecoverPendingJobsRestoresGauge(t *testing.T) {
	svc, repo, metrics := newMeteredReportFixture(t)
	queue := jobs.NewQueue("reports", func(context.Context, jobs.Job) error { return nil }, jobs.QueueConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()
	svc.SetQueue(queue)

	for _, id := range []string{"job-1", "job-2"} {
		require.NoError(t, repo.Create(context.Background(), &models.ReportJob{
			ID:     id,
			Kind:   models.ReportKindWorkbook,
			Params: models.ReportJobParams{Period: "year_2024", Format: models.ReportFormatCSV},
		}))
	}

	svc.RecoverPendingJobs(context.Background())

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.reportJobsActive))
}

func TestResolveDownloadRejectsGarbageToken(t *testing.T) {
	svc, _ := newReportFixture(t)

	_, _, err := svc.ResolveDownload(context.Background(), "job-1", "not-a-token")

	assert.Error(t, err)
}
