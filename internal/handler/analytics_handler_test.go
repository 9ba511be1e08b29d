package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	"github.com/noah-isme/teacher-reports-api/internal/service"
)

type stubAnalyticsSource struct {
	subs []models.Submission
}

func (s stubAnalyticsSource) ListActive(context.Context) ([]models.Submission, error) {
	return s.subs, nil
}

type stubAggregator struct{}

func (stubAggregator) CategoryDetail(context.Context, int, int) (models.CategoryDetail, error) {
	return models.CategoryDetail{}, nil
}

func newAnalyticsHandler(subs []models.Submission) *AnalyticsHandler {
	svc := service.NewAnalyticsService(
		stubAnalyticsSource{subs: subs}, stubAggregator{},
		service.NewCleaningService(nil, nil),
		service.NewDuplicateService(0, nil, nil),
		nil, 0, nil, nil,
	)
	return NewAnalyticsHandler(svc)
}

func TestAnalyticsMetricsDefaultsToCurrentYear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAnalyticsHandler([]models.Submission{{
		ID:                 "sub-1",
		FullName:           "Dra. Ana Torres",
		InstitutionalEmail: "ana.torres@uni.edu",
		AcademicYear:       time.Now().UTC().Year(),
		Term:               models.TermQ1,
		Status:             models.StatusApproved,
		SubmittedAt:        time.Now().UTC(),
	}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/analytics/metrics", nil)
	handler.Metrics(c)

	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data dto.MetricsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.Metrics.TotalSubmissions)
	assert.Len(t, envelope.Data.Metrics.ByMonth, 12)
}

func TestAnalyticsMetricsRejectsBadPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAnalyticsHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/analytics/metrics?period=decade_2020", nil)
	handler.Metrics(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsDuplicatesEmptyDataset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAnalyticsHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/analytics/duplicates", nil)
	handler.Duplicates(c)

	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data dto.DuplicateReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Zero(t, envelope.Data.DuplicateCount)
	assert.Empty(t, envelope.Data.Groups)
}
