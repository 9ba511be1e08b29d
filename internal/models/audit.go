package models

import "time"

// AuditAction constants represent actions recorded in the audit trail.
const (
	AuditActionSubmissionCreated   = "SUBMISSION_CREATED"
	AuditActionSubmissionApproved  = "SUBMISSION_APPROVED"
	AuditActionSubmissionRejected  = "SUBMISSION_REJECTED"
	AuditActionSubmissionCorrected = "SUBMISSION_CORRECTED"
	AuditActionExportGenerated     = "EXPORT_GENERATED"
	AuditActionInstructorAdded     = "INSTRUCTOR_ADDED"
	AuditActionInstructorUpdated   = "INSTRUCTOR_UPDATED"
	AuditActionInstructorRemoved   = "INSTRUCTOR_REMOVED"
	AuditActionReportDownloaded    = "REPORT_DOWNLOADED"
	AuditActionLogin               = "LOGIN"
)

// AuditEntry is an append-only record of an action on a submission or the
// surrounding administration surface.
type AuditEntry struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID *string   `db:"submission_id" json:"submission_id,omitempty"`
	Actor        string    `db:"actor" json:"actor"`
	Action       string    `db:"action" json:"action"`
	Comment      *string   `db:"comment" json:"comment,omitempty"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
}

// AuditFilter captures filtering criteria for listing audit entries.
type AuditFilter struct {
	SubmissionID string
	Action       string
	Actor        string
	Page         int
	PageSize     int
}
