package dto

import "github.com/noah-isme/teacher-reports-api/internal/models"

// ReportRequest captures POST /reports payload.
type ReportRequest struct {
	Kind   models.ReportKind   `json:"kind" binding:"required"`
	Period string              `json:"period" binding:"required"`
	Status string              `json:"status"`
	Format models.ReportFormat `json:"format" binding:"required"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
