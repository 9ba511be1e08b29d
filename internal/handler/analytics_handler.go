package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/middleware"
	"github.com/noah-isme/teacher-reports-api/internal/service"
	"github.com/noah-isme/teacher-reports-api/pkg/response"
)

// AnalyticsHandler exposes the metrics pipeline over HTTP.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs a new AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Metrics godoc
// @Summary Period metrics over approved submissions
// @Tags Analytics
// @Produce json
// @Param period query string false "Period selector (year_YYYY, quarter_YYYY_N, current_year, current_quarter)"
// @Success 200 {object} response.Envelope
// @Router /analytics/metrics [get]
func (h *AnalyticsHandler) Metrics(c *gin.Context) {
	period := c.DefaultQuery("period", "current_year")
	metrics, err := h.analytics.Metrics(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MetricsResponse{Metrics: metrics}, nil, middleware.ExtractMeta(c))
}

// Duplicates godoc
// @Summary Duplicate groups across all active submissions
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/duplicates [get]
func (h *AnalyticsHandler) Duplicates(c *gin.Context) {
	report, err := h.analytics.Duplicates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Statistics godoc
// @Summary Derived statistics over the full dataset
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/statistics [get]
func (h *AnalyticsHandler) Statistics(c *gin.Context) {
	stats, err := h.analytics.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StatisticsResponse{Statistics: stats}, nil, middleware.ExtractMeta(c))
}
