package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
)

type fakeSubmissionStore struct {
	existing   map[string]bool
	created    *models.Submission
	activities models.ActivitySet
	byID       map[string]*models.Submission
	byToken    map[string]*models.Submission
	reviews    []string
	reviewErr  error
	tokens     map[string]string
	corrected  bool
	versions   []models.SubmissionVersion
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{
		existing: map[string]bool{},
		byID:     map[string]*models.Submission{},
		byToken:  map[string]*models.Submission{},
		tokens:   map[string]string{},
	}
}

func (f *fakeSubmissionStore) ExistsActiveByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return f.existing[email], nil
}

func (f *fakeSubmissionStore) CreateWithActivities(ctx context.Context, sub *models.Submission, activities models.ActivitySet) error {
	sub.ID = "sub-1"
	sub.Status = models.StatusPending
	sub.Version = 1
	sub.ActiveVersion = true
	f.created = sub
	f.activities = activities
	f.byID[sub.ID] = sub
	return nil
}

func (f *fakeSubmissionStore) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if sub, ok := f.byID[id]; ok {
		return sub, nil
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeSubmissionStore) FindByCorrectionToken(ctx context.Context, token string) (*models.Submission, error) {
	if sub, ok := f.byToken[token]; ok {
		return sub, nil
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeSubmissionStore) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	subs := make([]models.Submission, 0, len(f.byID))
	for _, sub := range f.byID {
		subs = append(subs, *sub)
	}
	return subs, len(subs), nil
}

func (f *fakeSubmissionStore) Review(ctx context.Context, id string, status models.SubmissionStatus, reviewer string, comment *string) error {
	if f.reviewErr != nil {
		return f.reviewErr
	}
	sub, ok := f.byID[id]
	if !ok {
		return appErrors.ErrNotFound
	}
	now := time.Now().UTC()
	sub.Status = status
	sub.ReviewedAt = &now
	sub.ReviewedBy = &reviewer
	sub.ReviewComment = comment
	f.reviews = append(f.reviews, string(status))
	return nil
}

func (f *fakeSubmissionStore) SetCorrectionToken(ctx context.Context, id, token string) error {
	f.tokens[id] = token
	if sub, ok := f.byID[id]; ok {
		f.byToken[token] = sub
	}
	return nil
}

func (f *fakeSubmissionStore) ApplyCorrection(ctx context.Context, current *models.Submission, currentActivities models.ActivitySet, updated *models.Submission, activities models.ActivitySet) error {
	f.corrected = true
	current.FullName = updated.FullName
	current.InstitutionalEmail = updated.InstitutionalEmail
	current.Status = models.StatusPending
	current.Version++
	current.ReviewedAt = nil
	f.activities = activities
	return nil
}

func (f *fakeSubmissionStore) ListVersions(ctx context.Context, submissionID string) ([]models.SubmissionVersion, error) {
	return f.versions, nil
}

type fakeActivityStore struct {
	set models.ActivitySet
}

func (f *fakeActivityStore) GetSet(ctx context.Context, submissionID string) (models.ActivitySet, error) {
	return f.set, nil
}

type fakeWhitelist struct {
	authorized map[string]bool
}

func (f *fakeWhitelist) IsAuthorized(ctx context.Context, email string) (bool, error) {
	return f.authorized[email], nil
}

type fakeAudit struct {
	entries []models.AuditEntry
}

func (f *fakeAudit) Append(ctx context.Context, entry *models.AuditEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func intakeRequest() dto.CreateSubmissionRequest {
	return dto.CreateSubmissionRequest{
		FullName:           "Dra. Ana Torres",
		InstitutionalEmail: "ana.torres@uni.edu",
		AcademicYear:       2024,
		Term:               "Q2",
		Courses: []dto.CourseRequest{{
			Name:     "Álgebra Lineal",
			TaughtAt: "2024-04-10",
			Hours:    "40",
		}},
	}
}

func newSubmissionFixture(enforced bool) (*SubmissionService, *fakeSubmissionStore, *fakeAudit) {
	store := newFakeSubmissionStore()
	audit := &fakeAudit{}
	whitelist := &fakeWhitelist{authorized: map[string]bool{"ana.torres@uni.edu": true}}
	analytics := newAnalyticsService(&fakeSubmissionSource{}, &fakeAggregator{})
	svc := NewSubmissionService(store, &fakeActivityStore{}, whitelist, NewFormValidator(),
		audit, analytics, nil, nil, enforced, time.Hour)
	return svc, store, audit
}

func TestCreateSubmission(t *testing.T) {
	svc, store, audit := newSubmissionFixture(true)

	resp, err := svc.Create(context.Background(), intakeRequest(), "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, resp.Submission.Status)
	assert.Equal(t, "Dra. Ana Torres", resp.Submission.FullName)
	require.Len(t, store.activities.Courses, 1)
	assert.Equal(t, 40, store.activities.Courses[0].Hours)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionSubmissionCreated, audit.entries[0].Action)
	assert.Equal(t, "10.0.0.1", audit.entries[0].IPAddress)
}

func TestCreateSubmissionRejectsUnauthorized(t *testing.T) {
	svc, _, _ := newSubmissionFixture(true)
	req := intakeRequest()
	req.InstitutionalEmail = "intruso@uni.edu"

	_, err := svc.Create(context.Background(), req, "")

	assert.ErrorIs(t, err, appErrors.ErrNotAuthorized)
}

func TestCreateSubmissionSkipsWhitelistWhenDisabled(t *testing.T) {
	svc, _, _ := newSubmissionFixture(false)
	req := intakeRequest()
	req.InstitutionalEmail = "intruso@uni.edu"

	_, err := svc.Create(context.Background(), req, "")

	require.NoError(t, err)
}

func TestCreateSubmissionRejectsDuplicateEmail(t *testing.T) {
	svc, store, _ := newSubmissionFixture(true)
	store.existing["ana.torres@uni.edu"] = true

	_, err := svc.Create(context.Background(), intakeRequest(), "")

	assert.ErrorIs(t, err, appErrors.ErrDuplicateEmail)
}

func TestCreateSubmissionFieldErrors(t *testing.T) {
	svc, _, _ := newSubmissionFixture(true)
	req := intakeRequest()
	req.InstitutionalEmail = "no-es-un-correo"
	req.Courses[0].Hours = "-5"

	_, err := svc.Create(context.Background(), req, "")

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	fields := make([]string, 0, len(ve.Fields))
	for _, fe := range ve.Fields {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "institutional_email")
	assert.Contains(t, fields, "courses[0].hours")
}

func TestApproveSubmission(t *testing.T) {
	svc, store, audit := newSubmissionFixture(true)
	store.byID["sub-1"] = &models.Submission{ID: "sub-1", Status: models.StatusPending}

	sub, err := svc.Approve(context.Background(), "sub-1", "admin@uni.edu", dto.ReviewRequest{Comment: "ok"}, "10.0.0.2")

	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, sub.Status)
	require.NotNil(t, sub.ReviewedAt)
	require.NotNil(t, sub.ReviewedBy)
	assert.Equal(t, "admin@uni.edu", *sub.ReviewedBy)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionSubmissionApproved, audit.entries[0].Action)
}

func TestApprovePropagatesInvalidTransition(t *testing.T) {
	svc, store, _ := newSubmissionFixture(true)
	store.byID["sub-1"] = &models.Submission{ID: "sub-1", Status: models.StatusApproved}
	store.reviewErr = appErrors.ErrInvalidTransition

	_, err := svc.Approve(context.Background(), "sub-1", "admin@uni.edu", dto.ReviewRequest{}, "")

	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestRejectIssuesCorrectionToken(t *testing.T) {
	svc, store, _ := newSubmissionFixture(true)
	store.byID["sub-1"] = &models.Submission{ID: "sub-1", Status: models.StatusPending}

	sub, token, err := svc.Reject(context.Background(), "sub-1", "admin@uni.edu", dto.ReviewRequest{Comment: "faltan horas"}, "")

	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, sub.Status)
	assert.NotEmpty(t, token)
	assert.Equal(t, token, store.tokens["sub-1"])
}

func TestCorrectResubmitsAndBumpsVersion(t *testing.T) {
	svc, store, audit := newSubmissionFixture(true)
	store.byID["sub-1"] = &models.Submission{ID: "sub-1", Status: models.StatusPending, Version: 1}

	_, token, err := svc.Reject(context.Background(), "sub-1", "admin@uni.edu", dto.ReviewRequest{}, "")
	require.NoError(t, err)

	req := intakeRequest()
	resp, err := svc.Correct(context.Background(), token, req, "10.0.0.3")

	require.NoError(t, err)
	assert.True(t, store.corrected)
	assert.Equal(t, models.StatusPending, resp.Submission.Status)
	assert.Equal(t, 2, resp.Submission.Version)
	actions := make([]string, 0, len(audit.entries))
	for _, entry := range audit.entries {
		actions = append(actions, entry.Action)
	}
	assert.Contains(t, actions, models.AuditActionSubmissionCorrected)
}

func TestCorrectionTokenExpires(t *testing.T) {
	svc, store, _ := newSubmissionFixture(true)
	reviewedAt := time.Now().Add(-2 * time.Hour)
	store.byID["sub-1"] = &models.Submission{ID: "sub-1", Status: models.StatusRejected, ReviewedAt: &reviewedAt}
	store.byToken["tok-1"] = store.byID["sub-1"]

	_, err := svc.GetByCorrectionToken(context.Background(), "tok-1")

	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestCorrectionTokenRequiresRejectedStatus(t *testing.T) {
	svc, store, _ := newSubmissionFixture(true)
	store.byID["sub-1"] = &models.Submission{ID: "sub-1", Status: models.StatusPending}
	store.byToken["tok-1"] = store.byID["sub-1"]

	_, err := svc.GetByCorrectionToken(context.Background(), "tok-1")

	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}
