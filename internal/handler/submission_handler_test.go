package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	"github.com/noah-isme/teacher-reports-api/internal/service"
)

type stubSubmissionStore struct {
	created *models.Submission
	exists  bool
}

func (s *stubSubmissionStore) ExistsActiveByEmail(context.Context, string, string) (bool, error) {
	return s.exists, nil
}

func (s *stubSubmissionStore) CreateWithActivities(_ context.Context, sub *models.Submission, _ models.ActivitySet) error {
	if sub.ID == "" {
		sub.ID = "sub-1"
	}
	s.created = sub
	return nil
}

func (s *stubSubmissionStore) FindByID(context.Context, string) (*models.Submission, error) {
	return s.created, nil
}

func (s *stubSubmissionStore) FindByCorrectionToken(context.Context, string) (*models.Submission, error) {
	return s.created, nil
}

func (s *stubSubmissionStore) List(context.Context, models.SubmissionFilter) ([]models.Submission, int, error) {
	return nil, 0, nil
}

func (s *stubSubmissionStore) Review(context.Context, string, models.SubmissionStatus, string, *string) error {
	return nil
}

func (s *stubSubmissionStore) SetCorrectionToken(context.Context, string, string) error {
	return nil
}

func (s *stubSubmissionStore) ApplyCorrection(context.Context, *models.Submission, models.ActivitySet, *models.Submission, models.ActivitySet) error {
	return nil
}

func (s *stubSubmissionStore) ListVersions(context.Context, string) ([]models.SubmissionVersion, error) {
	return nil, nil
}

type stubActivityStore struct{}

func (stubActivityStore) GetSet(context.Context, string) (models.ActivitySet, error) {
	return models.ActivitySet{}, nil
}

type stubAuthorizer struct{ ok bool }

func (s stubAuthorizer) IsAuthorized(context.Context, string) (bool, error) { return s.ok, nil }

type stubAudit struct{}

func (stubAudit) Append(context.Context, *models.AuditEntry) error { return nil }

func newSubmissionHandler(store *stubSubmissionStore) *SubmissionHandler {
	svc := service.NewSubmissionService(
		store, stubActivityStore{}, stubAuthorizer{ok: true},
		service.NewFormValidator(), stubAudit{}, nil, nil, nil, false, 0,
	)
	return NewSubmissionHandler(svc)
}

func intakeBody() map[string]interface{} {
	return map[string]interface{}{
		"full_name":           "Dra. Ana Torres",
		"institutional_email": "ana.torres@uni.edu",
		"academic_year":       2024,
		"term":                "Q2",
		"courses": []map[string]string{
			{"name": "Álgebra Lineal", "taught_at": "2024-04-10", "hours": "40"},
		},
	}
}

func postJSON(t *testing.T, h gin.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h(c)
	return rec
}

func TestSubmissionCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &stubSubmissionStore{}
	handler := newSubmissionHandler(store)

	rec := postJSON(t, handler.Create, "/submissions", intakeBody())

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, store.created)
	assert.Equal(t, models.StatusPending, store.created.Status)

	var envelope struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "ana.torres@uni.edu", envelope.Data.Submission.InstitutionalEmail)
}

func TestSubmissionCreateMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSubmissionHandler(&stubSubmissionStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/submissions", bytes.NewBufferString("{"))
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionCreateFieldErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSubmissionHandler(&stubSubmissionStore{})

	payload := intakeBody()
	payload["institutional_email"] = "not-an-email"
	payload["courses"] = []map[string]string{
		{"name": "Álgebra Lineal", "taught_at": "2024-04-10", "hours": "0"},
	}
	rec := postJSON(t, handler.Create, "/submissions", payload)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		Data dto.ValidationErrors `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	fields := make([]string, 0, len(envelope.Data.Errors))
	for _, fe := range envelope.Data.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "institutional_email")
	assert.Contains(t, fields, "courses[0].hours")
}

func TestSubmissionCreateDuplicateEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSubmissionHandler(&stubSubmissionStore{exists: true})

	rec := postJSON(t, handler.Create, "/submissions", intakeBody())

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmissionListRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSubmissionHandler(&stubSubmissionStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/submissions?status=bogus", nil)
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
