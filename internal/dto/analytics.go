package dto

import "github.com/noah-isme/teacher-reports-api/internal/models"

// MetricsResponse wraps period metrics for the analytics endpoint.
type MetricsResponse struct {
	Metrics models.PeriodMetrics `json:"metrics"`
}

// DuplicateGroupEntry lists the members of one duplicate group.
type DuplicateGroupEntry struct {
	Group   int                  `json:"group"`
	Members []models.CleanRecord `json:"members"`
}

// DuplicateReport summarises the duplicate scan over all submissions.
type DuplicateReport struct {
	TotalRecords   int                   `json:"total_records"`
	DuplicateCount int                   `json:"duplicate_count"`
	Groups         []DuplicateGroupEntry `json:"groups"`
}

// StatisticsResponse wraps derived statistics.
type StatisticsResponse struct {
	Statistics models.Statistics `json:"statistics"`
}
