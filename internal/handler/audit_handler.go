package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-reports-api/internal/models"
	"github.com/noah-isme/teacher-reports-api/internal/service"
	"github.com/noah-isme/teacher-reports-api/pkg/response"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs a new AuditHandler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit entries
// @Tags Audit
// @Produce json
// @Param submission_id query string false "Filter by submission"
// @Param action query string false "Filter by action"
// @Param actor query string false "Filter by actor"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditFilter{
		SubmissionID: strings.TrimSpace(c.Query("submission_id")),
		Action:       strings.TrimSpace(c.Query("action")),
		Actor:        strings.TrimSpace(c.Query("actor")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	entries, total, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}
