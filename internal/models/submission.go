package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SubmissionStatus captures the review lifecycle of a submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "PENDING"
	StatusApproved SubmissionStatus = "APPROVED"
	StatusRejected SubmissionStatus = "REJECTED"
)

// Term enumerates the four academic terms of a year.
type Term string

const (
	TermQ1 Term = "Q1"
	TermQ2 Term = "Q2"
	TermQ3 Term = "Q3"
	TermQ4 Term = "Q4"
)

// ValidTerm reports whether the value is one of the four terms.
func ValidTerm(t Term) bool {
	switch t {
	case TermQ1, TermQ2, TermQ3, TermQ4:
		return true
	}
	return false
}

// Submission is one instructor's academic-activity report for a period.
// Corrections create new versions; only one version per lineage is active.
type Submission struct {
	ID                 string           `db:"id" json:"id"`
	FullName           string           `db:"full_name" json:"full_name"`
	InstitutionalEmail string           `db:"institutional_email" json:"institutional_email"`
	AcademicYear       int              `db:"academic_year" json:"academic_year"`
	Term               Term             `db:"term" json:"term"`
	Status             SubmissionStatus `db:"status" json:"status"`
	SubmittedAt        time.Time        `db:"submitted_at" json:"submitted_at"`
	ReviewedAt         *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy         *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewComment      *string          `db:"review_comment" json:"review_comment,omitempty"`
	OriginalID         *string          `db:"original_id" json:"original_id,omitempty"`
	Version            int              `db:"version" json:"version"`
	CorrectionToken    *string          `db:"correction_token" json:"-"`
	ActiveVersion      bool             `db:"active_version" json:"active_version"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// LineageID returns the root id shared by all versions of a submission.
func (s Submission) LineageID() string {
	if s.OriginalID != nil && *s.OriginalID != "" {
		return *s.OriginalID
	}
	return s.ID
}

// SubmissionFilter captures list filtering criteria.
type SubmissionFilter struct {
	Status       *SubmissionStatus
	AcademicYear *int
	Term         *Term
	Email        string
	Search       string
	ActiveOnly   bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// SubmissionVersion is an immutable snapshot archived by the correction flow.
type SubmissionVersion struct {
	ID           string          `db:"id" json:"id"`
	SubmissionID string          `db:"submission_id" json:"submission_id"`
	Version      int             `db:"version" json:"version"`
	Snapshot     VersionSnapshot `db:"snapshot" json:"snapshot"`
	ArchivedAt   time.Time       `db:"archived_at" json:"archived_at"`
}

// VersionSnapshot stores the full submission payload as JSONB.
type VersionSnapshot struct {
	Submission Submission  `json:"submission"`
	Activities ActivitySet `json:"activities"`
}

// Value marshals the snapshot to JSON for persistence.
func (s VersionSnapshot) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal version snapshot: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the snapshot struct.
func (s *VersionSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = VersionSnapshot{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for VersionSnapshot", value)
	}
	if len(data) == 0 {
		*s = VersionSnapshot{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal version snapshot: %w", err)
	}
	return nil
}
