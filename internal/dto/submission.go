package dto

import "github.com/noah-isme/teacher-reports-api/internal/models"

// CourseRequest is one reported course in an intake payload. Dates arrive as
// strings and are parsed by the form validator.
type CourseRequest struct {
	Name     string `json:"name" binding:"required"`
	TaughtAt string `json:"taught_at" binding:"required"`
	Hours    string `json:"hours" binding:"required"`
}

// PublicationRequest is one reported publication.
type PublicationRequest struct {
	Authors string `json:"authors" binding:"required"`
	Title   string `json:"title" binding:"required"`
	Venue   string `json:"venue" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// EventRequest is one reported academic event.
type EventRequest struct {
	Name   string `json:"name" binding:"required"`
	HeldAt string `json:"held_at" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// DesignRequest is one reported curriculum design.
type DesignRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// MobilityRequest is one reported mobility experience.
type MobilityRequest struct {
	Description string `json:"description" binding:"required"`
	Kind        string `json:"kind" binding:"required"`
	OccurredAt  string `json:"occurred_at" binding:"required"`
}

// RecognitionRequest is one reported recognition.
type RecognitionRequest struct {
	Name      string `json:"name" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
	GrantedAt string `json:"granted_at" binding:"required"`
}

// CertificationRequest is one reported certification.
type CertificationRequest struct {
	Name       string `json:"name" binding:"required"`
	ObtainedAt string `json:"obtained_at" binding:"required"`
	ExpiresAt  string `json:"expires_at"`
}

// CreateSubmissionRequest is the public intake payload.
type CreateSubmissionRequest struct {
	FullName           string                 `json:"full_name" binding:"required"`
	InstitutionalEmail string                 `json:"institutional_email" binding:"required"`
	AcademicYear       int                    `json:"academic_year" binding:"required"`
	Term               string                 `json:"term" binding:"required"`
	Courses            []CourseRequest        `json:"courses"`
	Publications       []PublicationRequest   `json:"publications"`
	Events             []EventRequest         `json:"events"`
	Designs            []DesignRequest        `json:"curriculum_designs"`
	Mobilities         []MobilityRequest      `json:"mobilities"`
	Recognitions       []RecognitionRequest   `json:"recognitions"`
	Certifications     []CertificationRequest `json:"certifications"`
}

// ReviewRequest carries the optional comment on approve/reject actions.
type ReviewRequest struct {
	Comment string `json:"comment"`
}

// SubmissionResponse combines a submission with its activity records.
type SubmissionResponse struct {
	Submission models.Submission  `json:"submission"`
	Activities models.ActivitySet `json:"activities"`
}

// FieldError describes one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the field-level error list returned on invalid intake.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}
