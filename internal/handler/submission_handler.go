package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	"github.com/noah-isme/teacher-reports-api/internal/service"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
	"github.com/noah-isme/teacher-reports-api/pkg/response"
)

// SubmissionHandler wires the intake and review services to HTTP routes.
type SubmissionHandler struct {
	submissions *service.SubmissionService
}

// NewSubmissionHandler constructs a new SubmissionHandler.
func NewSubmissionHandler(submissions *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// Create godoc
// @Summary Submit a teacher activity report
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubmissionRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} dto.ValidationErrors
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req dto.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	result, err := h.submissions.Create(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List submissions for review
// @Tags Submissions
// @Produce json
// @Param status query string false "Filter by status (pending/approved/rejected)"
// @Param year query int false "Filter by academic year"
// @Param term query string false "Filter by term (Q1-Q4)"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	filter := models.SubmissionFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Email:      strings.TrimSpace(c.Query("email")),
		ActiveOnly: true,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	if status := c.Query("status"); status != "" {
		parsed := models.SubmissionStatus(strings.ToUpper(status))
		switch parsed {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
			filter.Status = &parsed
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status filter"))
			return
		}
	}
	if year := c.Query("year"); year != "" {
		parsed, err := strconv.Atoi(year)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be numeric"))
			return
		}
		filter.AcademicYear = &parsed
	}
	if term := c.Query("term"); term != "" {
		parsed := models.Term(strings.ToUpper(term))
		filter.Term = &parsed
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	items, total, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get one submission with its activities
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	result, err := h.submissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Approve godoc
// @Summary Approve a pending submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ReviewRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/approve [post]
func (h *SubmissionHandler) Approve(c *gin.Context) {
	var req dto.ReviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
			return
		}
	}
	sub, err := h.submissions.Approve(c.Request.Context(), c.Param("id"), actorFromContext(c), req, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Reject godoc
// @Summary Reject a pending submission and issue a correction token
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ReviewRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/reject [post]
func (h *SubmissionHandler) Reject(c *gin.Context) {
	var req dto.ReviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
			return
		}
	}
	sub, token, err := h.submissions.Reject(c.Request.Context(), c.Param("id"), actorFromContext(c), req, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"submission":       sub,
		"correction_token": token,
	}, nil)
}

// Versions godoc
// @Summary List the version history of a submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/versions [get]
func (h *SubmissionHandler) Versions(c *gin.Context) {
	versions, err := h.submissions.Versions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// GetCorrection godoc
// @Summary Fetch a rejected submission by its correction token
// @Tags Corrections
// @Produce json
// @Param token path string true "Correction token"
// @Success 200 {object} response.Envelope
// @Router /submissions/corrections/{token} [get]
func (h *SubmissionHandler) GetCorrection(c *gin.Context) {
	result, err := h.submissions.GetByCorrectionToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SubmitCorrection godoc
// @Summary Resubmit a corrected report using a correction token
// @Tags Corrections
// @Accept json
// @Produce json
// @Param token path string true "Correction token"
// @Param payload body dto.CreateSubmissionRequest true "Corrected report payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} dto.ValidationErrors
// @Router /submissions/corrections/{token} [post]
func (h *SubmissionHandler) SubmitCorrection(c *gin.Context) {
	var req dto.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	result, err := h.submissions.Correct(c.Request.Context(), c.Param("token"), req, c.ClientIP())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// writeError surfaces field-level validation failures as a structured list
// instead of a single error message.
func (h *SubmissionHandler) writeError(c *gin.Context, err error) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusBadRequest, response.Envelope{
			Error: appErrors.Clone(appErrors.ErrValidation, validation.Error()),
			Data:  dto.ValidationErrors{Errors: validation.Fields},
		})
		return
	}
	response.Error(c, err)
}
