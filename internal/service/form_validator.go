package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	namePattern  = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑüÜ][a-zA-ZáéíóúÁÉÍÓÚñÑüÜ .'-]{1,254}$`)
)

// Date formats accepted on intake, tried in order.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

const (
	minHours = 1
	maxHours = 1000
	minYear  = 1900
	maxYear  = 2100
)

// FormValidator converts raw intake payloads into typed records, collecting
// field-level errors. All checks run before anything is persisted.
type FormValidator struct{}

// NewFormValidator constructs a validator.
func NewFormValidator() *FormValidator {
	return &FormValidator{}
}

// ValidateEmail reports whether the value is a well-formed institutional email.
func (v *FormValidator) ValidateEmail(raw string) bool {
	return emailPattern.MatchString(strings.TrimSpace(raw))
}

// ValidateName reports whether the value is an acceptable person name.
func (v *FormValidator) ValidateName(raw string) bool {
	return namePattern.MatchString(strings.TrimSpace(raw))
}

// ValidateHours parses an hour-count string, enforcing the 1..1000 range.
func (v *FormValidator) ValidateHours(raw string) (int, error) {
	hours, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("hours must be a whole number")
	}
	if hours < minHours || hours > maxHours {
		return 0, fmt.Errorf("hours must be between %d and %d", minHours, maxHours)
	}
	return hours, nil
}

// ParseDate parses a date in one of the accepted layouts and checks the
// year is plausible.
func (v *FormValidator) ParseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		if parsed.Year() < minYear || parsed.Year() > maxYear {
			return time.Time{}, fmt.Errorf("date year out of range")
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date format")
}

// Validate converts the intake payload into a submission plus activity set.
// On failure the returned field errors describe every invalid field.
func (v *FormValidator) Validate(req dto.CreateSubmissionRequest) (*models.Submission, models.ActivitySet, []dto.FieldError) {
	var fieldErrors []dto.FieldError
	addError := func(field, message string) {
		fieldErrors = append(fieldErrors, dto.FieldError{Field: field, Message: message})
	}

	name := strings.TrimSpace(req.FullName)
	if !v.ValidateName(name) {
		addError("full_name", "name must be 2 to 255 letters, spaces, dots or hyphens")
	}
	email := strings.TrimSpace(req.InstitutionalEmail)
	if !v.ValidateEmail(email) {
		addError("institutional_email", "institutional email is malformed")
	}
	if req.AcademicYear < minYear || req.AcademicYear > maxYear {
		addError("academic_year", "academic year out of range")
	}
	term := models.Term(strings.ToUpper(strings.TrimSpace(req.Term)))
	if !models.ValidTerm(term) {
		addError("term", "term must be one of Q1, Q2, Q3, Q4")
	}

	var set models.ActivitySet

	for i, course := range req.Courses {
		field := fmt.Sprintf("courses[%d]", i)
		taughtAt, err := v.ParseDate(course.TaughtAt)
		if err != nil {
			addError(field+".taught_at", err.Error())
		}
		hours, err := v.ValidateHours(course.Hours)
		if err != nil {
			addError(field+".hours", err.Error())
		}
		set.Courses = append(set.Courses, models.Course{
			Name:     strings.TrimSpace(course.Name),
			TaughtAt: taughtAt,
			Hours:    hours,
		})
	}

	for i, pub := range req.Publications {
		field := fmt.Sprintf("publications[%d]", i)
		status := models.PublicationStatus(strings.ToUpper(strings.TrimSpace(pub.Status)))
		switch status {
		case models.PublicationAccepted, models.PublicationInReview, models.PublicationPublished, models.PublicationRejected:
		default:
			addError(field+".status", "unknown publication status")
		}
		set.Publications = append(set.Publications, models.Publication{
			Authors: strings.TrimSpace(pub.Authors),
			Title:   strings.TrimSpace(pub.Title),
			Venue:   strings.TrimSpace(pub.Venue),
			Status:  status,
		})
	}

	for i, event := range req.Events {
		field := fmt.Sprintf("events[%d]", i)
		heldAt, err := v.ParseDate(event.HeldAt)
		if err != nil {
			addError(field+".held_at", err.Error())
		}
		role := models.EventRole(strings.ToUpper(strings.TrimSpace(event.Role)))
		switch role {
		case models.EventOrganizer, models.EventAttendee, models.EventSpeaker:
		default:
			addError(field+".role", "unknown event role")
		}
		set.Events = append(set.Events, models.Event{
			Name:   strings.TrimSpace(event.Name),
			HeldAt: heldAt,
			Role:   role,
		})
	}

	for _, design := range req.Designs {
		set.Designs = append(set.Designs, models.CurriculumDesign{
			Name:        strings.TrimSpace(design.Name),
			Description: strings.TrimSpace(design.Description),
		})
	}

	for i, mobility := range req.Mobilities {
		field := fmt.Sprintf("mobilities[%d]", i)
		occurredAt, err := v.ParseDate(mobility.OccurredAt)
		if err != nil {
			addError(field+".occurred_at", err.Error())
		}
		kind := models.MobilityKind(strings.ToUpper(strings.TrimSpace(mobility.Kind)))
		switch kind {
		case models.MobilityNational, models.MobilityInternational:
		default:
			addError(field+".kind", "unknown mobility kind")
		}
		set.Mobilities = append(set.Mobilities, models.Mobility{
			Description: strings.TrimSpace(mobility.Description),
			Kind:        kind,
			OccurredAt:  occurredAt,
		})
	}

	for i, recognition := range req.Recognitions {
		field := fmt.Sprintf("recognitions[%d]", i)
		grantedAt, err := v.ParseDate(recognition.GrantedAt)
		if err != nil {
			addError(field+".granted_at", err.Error())
		}
		kind := models.RecognitionKind(strings.ToUpper(strings.TrimSpace(recognition.Kind)))
		switch kind {
		case models.RecognitionDegree, models.RecognitionAward, models.RecognitionDistinction:
		default:
			addError(field+".kind", "unknown recognition kind")
		}
		set.Recognitions = append(set.Recognitions, models.Recognition{
			Name:      strings.TrimSpace(recognition.Name),
			Kind:      kind,
			GrantedAt: grantedAt,
		})
	}

	for i, cert := range req.Certifications {
		field := fmt.Sprintf("certifications[%d]", i)
		obtainedAt, err := v.ParseDate(cert.ObtainedAt)
		if err != nil {
			addError(field+".obtained_at", err.Error())
		}
		record := models.Certification{
			Name:       strings.TrimSpace(cert.Name),
			ObtainedAt: obtainedAt,
			Valid:      true,
		}
		if strings.TrimSpace(cert.ExpiresAt) != "" {
			expiresAt, err := v.ParseDate(cert.ExpiresAt)
			if err != nil {
				addError(field+".expires_at", err.Error())
			} else {
				record.ExpiresAt = &expiresAt
				record.Valid = expiresAt.After(time.Now())
			}
		}
		set.Certifications = append(set.Certifications, record)
	}

	if len(fieldErrors) > 0 {
		return nil, models.ActivitySet{}, fieldErrors
	}

	sub := &models.Submission{
		FullName:           name,
		InstitutionalEmail: email,
		AcademicYear:       req.AcademicYear,
		Term:               term,
	}
	return sub, set, nil
}
