package models

import "time"

// CleanRecord is one normalized row produced by the cleaning stage and
// consumed by duplicate detection and metrics aggregation.
type CleanRecord struct {
	SubmissionID   string           `json:"submission_id"`
	FullName       string           `json:"full_name"`
	Email          string           `json:"email"`
	Status         SubmissionStatus `json:"status"`
	Term           Term             `json:"term"`
	AcademicYear   int              `json:"academic_year"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	Year           int              `json:"year"`
	Quarter        int              `json:"quarter"`
	Month          int              `json:"month"`
	IsDuplicate    bool             `json:"is_duplicate"`
	DuplicateGroup *int             `json:"duplicate_group,omitempty"`
}

// MonthCount pairs a Spanish month name with a submission count.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// CourseMetrics aggregates course activity for a period.
type CourseMetrics struct {
	Total      int      `json:"total"`
	TotalHours int      `json:"total_hours"`
	Names      []string `json:"names"`
}

// PublicationMetrics aggregates publication activity for a period.
type PublicationMetrics struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Titles   []string       `json:"titles"`
}

// EventMetrics aggregates event participation for a period.
type EventMetrics struct {
	Total  int            `json:"total"`
	ByRole map[string]int `json:"by_role"`
	Names  []string       `json:"names"`
}

// KindMetrics aggregates a category that only breaks down by kind.
type KindMetrics struct {
	Total  int            `json:"total"`
	ByKind map[string]int `json:"by_kind"`
}

// CertificationMetrics aggregates certifications for a period.
type CertificationMetrics struct {
	Total int      `json:"total"`
	Valid int      `json:"valid"`
	Names []string `json:"names"`
}

// CategoryDetail groups per-category aggregates fetched from persistence.
type CategoryDetail struct {
	Courses        CourseMetrics        `json:"courses"`
	Publications   PublicationMetrics   `json:"publications"`
	Events         EventMetrics         `json:"events"`
	Designs        int                  `json:"curriculum_designs"`
	Mobilities     KindMetrics          `json:"mobilities"`
	Recognitions   KindMetrics          `json:"recognitions"`
	Certifications CertificationMetrics `json:"certifications"`
}

// PeriodMetrics is the aggregate output for a requested period, restricted
// to approved submissions.
type PeriodMetrics struct {
	Period           string         `json:"period"`
	Year             int            `json:"year"`
	Quarter          int            `json:"quarter,omitempty"`
	TotalSubmissions int            `json:"total_submissions"`
	ByMonth          []MonthCount   `json:"by_month"`
	DuplicateCount   int            `json:"duplicate_count"`
	Detail           CategoryDetail `json:"detail"`
}

// GeneralStats summarises the whole cleaned dataset.
type GeneralStats struct {
	TotalSubmissions int        `json:"total_submissions"`
	UniqueEmails     int        `json:"unique_emails"`
	FirstSubmission  *time.Time `json:"first_submission,omitempty"`
	LastSubmission   *time.Time `json:"last_submission,omitempty"`
}

// TemporalStats breaks submissions down over time.
type TemporalStats struct {
	ByYear    map[int]int    `json:"by_year"`
	ByMonth   []MonthCount   `json:"by_month"`
	ByQuarter map[string]int `json:"by_quarter"`
}

// ContentStats analyses the text fields of the dataset.
type ContentStats struct {
	EmailDomains  map[string]int `json:"email_domains"`
	AvgNameLength float64        `json:"avg_name_length"`
	TitleCounts   map[string]int `json:"title_counts"`
}

// TrendStats contains naive growth and seasonality heuristics.
type TrendStats struct {
	GrowthRatePercent float64  `json:"growth_rate_percent"`
	HighSeasonMonths  []string `json:"high_season_months"`
	LowSeasonMonths   []string `json:"low_season_months"`
	AnnualProjection  int      `json:"annual_projection"`
}

// QualityStats reports field completeness and duplicate share.
type QualityStats struct {
	Completeness     map[string]float64 `json:"completeness_percent"`
	DuplicatePercent float64            `json:"duplicate_percent"`
}

// Statistics bundles the independently computed derived statistics.
type Statistics struct {
	General  GeneralStats  `json:"general"`
	Temporal TemporalStats `json:"temporal"`
	Content  ContentStats  `json:"content"`
	Trends   TrendStats    `json:"trends"`
	Quality  QualityStats  `json:"quality"`
}

// DashboardSummary is the cached admin dashboard payload.
type DashboardSummary struct {
	TotalSubmissions  int            `json:"total_submissions"`
	ByStatus          map[string]int `json:"by_status"`
	PendingReview     int            `json:"pending_review"`
	ActiveInstructors int            `json:"active_instructors"`
	ActivityTotals    map[string]int `json:"activity_totals"`
	RecentSubmissions []Submission   `json:"recent_submissions"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
