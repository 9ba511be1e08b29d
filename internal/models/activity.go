package models

import "time"

// PublicationStatus tracks where a publication stands in its editorial flow.
type PublicationStatus string

const (
	PublicationAccepted  PublicationStatus = "ACCEPTED"
	PublicationInReview  PublicationStatus = "IN_REVIEW"
	PublicationPublished PublicationStatus = "PUBLISHED"
	PublicationRejected  PublicationStatus = "REJECTED"
)

// EventRole describes how the instructor participated in an event.
type EventRole string

const (
	EventOrganizer EventRole = "ORGANIZER"
	EventAttendee  EventRole = "ATTENDEE"
	EventSpeaker   EventRole = "SPEAKER"
)

// MobilityKind distinguishes national from international mobility.
type MobilityKind string

const (
	MobilityNational      MobilityKind = "NATIONAL"
	MobilityInternational MobilityKind = "INTERNATIONAL"
)

// RecognitionKind classifies recognitions.
type RecognitionKind string

const (
	RecognitionDegree      RecognitionKind = "DEGREE"
	RecognitionAward       RecognitionKind = "AWARD"
	RecognitionDistinction RecognitionKind = "DISTINCTION"
)

// Course is a training course taught or taken during the period.
type Course struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	Name         string    `db:"name" json:"name"`
	TaughtAt     time.Time `db:"taught_at" json:"taught_at"`
	Hours        int       `db:"hours" json:"hours"`
}

// Publication is an academic publication reported for the period.
type Publication struct {
	ID           string            `db:"id" json:"id"`
	SubmissionID string            `db:"submission_id" json:"submission_id"`
	Authors      string            `db:"authors" json:"authors"`
	Title        string            `db:"title" json:"title"`
	Venue        string            `db:"venue" json:"venue"`
	Status       PublicationStatus `db:"status" json:"status"`
}

// Event is an academic event the instructor took part in.
type Event struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	Name         string    `db:"name" json:"name"`
	HeldAt       time.Time `db:"held_at" json:"held_at"`
	Role         EventRole `db:"role" json:"role"`
}

// CurriculumDesign is curriculum or instructional design work.
type CurriculumDesign struct {
	ID           string `db:"id" json:"id"`
	SubmissionID string `db:"submission_id" json:"submission_id"`
	Name         string `db:"name" json:"name"`
	Description  string `db:"description" json:"description"`
}

// Mobility is an academic mobility experience.
type Mobility struct {
	ID           string       `db:"id" json:"id"`
	SubmissionID string       `db:"submission_id" json:"submission_id"`
	Description  string       `db:"description" json:"description"`
	Kind         MobilityKind `db:"kind" json:"kind"`
	OccurredAt   time.Time    `db:"occurred_at" json:"occurred_at"`
}

// Recognition is a degree, award or distinction received.
type Recognition struct {
	ID           string          `db:"id" json:"id"`
	SubmissionID string          `db:"submission_id" json:"submission_id"`
	Name         string          `db:"name" json:"name"`
	Kind         RecognitionKind `db:"kind" json:"kind"`
	GrantedAt    time.Time       `db:"granted_at" json:"granted_at"`
}

// Certification is a professional certification with optional expiry.
type Certification struct {
	ID           string     `db:"id" json:"id"`
	SubmissionID string     `db:"submission_id" json:"submission_id"`
	Name         string     `db:"name" json:"name"`
	ObtainedAt   time.Time  `db:"obtained_at" json:"obtained_at"`
	ExpiresAt    *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	Valid        bool       `db:"valid" json:"valid"`
}

// ActivitySet groups the child records of one submission.
type ActivitySet struct {
	Courses        []Course           `json:"courses"`
	Publications   []Publication      `json:"publications"`
	Events         []Event            `json:"events"`
	Designs        []CurriculumDesign `json:"curriculum_designs"`
	Mobilities     []Mobility         `json:"mobilities"`
	Recognitions   []Recognition      `json:"recognitions"`
	Certifications []Certification    `json:"certifications"`
}

// Count returns the total number of activity records in the set.
func (a ActivitySet) Count() int {
	return len(a.Courses) + len(a.Publications) + len(a.Events) + len(a.Designs) +
		len(a.Mobilities) + len(a.Recognitions) + len(a.Certifications)
}
