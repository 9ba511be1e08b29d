package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-reports-api/internal/service"
	"github.com/noah-isme/teacher-reports-api/pkg/response"
)

// ExportHandler serves synchronous exports. Heavier formats go through
// the report job queue instead.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs a new ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// CSV godoc
// @Summary Export submissions for a period as CSV
// @Tags Reports
// @Produce text/csv
// @Param period query string false "Period selector"
// @Param status query string false "Filter by status"
// @Success 200 {file} binary
// @Router /exports/csv [get]
func (h *ExportHandler) CSV(c *gin.Context) {
	period := c.DefaultQuery("period", "current_year")
	data, err := h.exports.CSV(c.Request.Context(), period, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	name := fmt.Sprintf("envios_%s.csv", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// JSON godoc
// @Summary Export period metrics as a JSON document
// @Tags Reports
// @Produce json
// @Param period query string false "Period selector"
// @Success 200 {object} dto.MetricsResponse
// @Router /exports/json [get]
func (h *ExportHandler) JSON(c *gin.Context) {
	period := c.DefaultQuery("period", "current_year")
	data, err := h.exports.JSONDocument(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
