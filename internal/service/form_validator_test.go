package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
)

func TestValidateEmail(t *testing.T) {
	v := NewFormValidator()

	valid := []string{
		"ana.torres@uni.edu",
		"a_b+c%d@sub.dominio.mx",
		"ANA@UNI.EDU",
	}
	for _, email := range valid {
		assert.True(t, v.ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"sin-arroba.uni.edu",
		"ana@",
		"@uni.edu",
		"ana@uni",
		"ana torres@uni.edu",
		"ana@uni.e",
	}
	for _, email := range invalid {
		assert.False(t, v.ValidateEmail(email), email)
	}
}

func TestValidateHours(t *testing.T) {
	v := NewFormValidator()

	hours, err := v.ValidateHours("40")
	require.NoError(t, err)
	assert.Equal(t, 40, hours)

	_, err = v.ValidateHours("0")
	assert.Error(t, err)
	_, err = v.ValidateHours("-5")
	assert.Error(t, err)
	_, err = v.ValidateHours("1001")
	assert.Error(t, err)
	_, err = v.ValidateHours("cuarenta")
	assert.Error(t, err)
}

func TestParseDateFormats(t *testing.T) {
	v := NewFormValidator()

	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-03-15", "15/03/2024", "15-03-2024"} {
		parsed, err := v.ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, parsed, raw)
	}

	_, err := v.ParseDate("15.03.2024")
	assert.Error(t, err)
	_, err = v.ParseDate("1850-01-01")
	assert.Error(t, err)
	_, err = v.ParseDate("2150-01-01")
	assert.Error(t, err)
}

func TestValidateName(t *testing.T) {
	v := NewFormValidator()

	assert.True(t, v.ValidateName("Dra. Ana Torres"))
	assert.True(t, v.ValidateName("José Ñuño"))
	assert.False(t, v.ValidateName("A"))
	assert.False(t, v.ValidateName(""))
	assert.False(t, v.ValidateName("1234"))
}

func TestValidateBuildsSubmission(t *testing.T) {
	v := NewFormValidator()

	req := dto.CreateSubmissionRequest{
		FullName:           "  Dra. Ana Torres ",
		InstitutionalEmail: "ana.torres@uni.edu",
		AcademicYear:       2024,
		Term:               "q2",
		Courses: []dto.CourseRequest{{
			Name:     "Álgebra Lineal",
			TaughtAt: "10/04/2024",
			Hours:    "40",
		}},
		Publications: []dto.PublicationRequest{{
			Authors: "Torres, A.",
			Title:   "Sobre matrices dispersas",
			Venue:   "Revista de Matemáticas",
			Status:  "published",
		}},
		Certifications: []dto.CertificationRequest{{
			Name:       "Certificación Docente",
			ObtainedAt: "2023-06-01",
			ExpiresAt:  "2030-06-01",
		}},
	}

	sub, set, fieldErrors := v.Validate(req)

	require.Empty(t, fieldErrors)
	assert.Equal(t, "Dra. Ana Torres", sub.FullName)
	assert.Equal(t, models.TermQ2, sub.Term)
	require.Len(t, set.Courses, 1)
	assert.Equal(t, 40, set.Courses[0].Hours)
	require.Len(t, set.Publications, 1)
	assert.Equal(t, models.PublicationPublished, set.Publications[0].Status)
	require.Len(t, set.Certifications, 1)
	assert.True(t, set.Certifications[0].Valid)
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	v := NewFormValidator()

	req := dto.CreateSubmissionRequest{
		FullName:           "X",
		InstitutionalEmail: "no-es-correo",
		AcademicYear:       1500,
		Term:               "Q9",
		Courses: []dto.CourseRequest{{
			Name:     "Curso",
			TaughtAt: "ayer",
			Hours:    "0",
		}},
		Events: []dto.EventRequest{{
			Name:   "Congreso",
			HeldAt: "2024-05-01",
			Role:   "mascota",
		}},
	}

	_, _, fieldErrors := v.Validate(req)

	fields := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "institutional_email")
	assert.Contains(t, fields, "academic_year")
	assert.Contains(t, fields, "term")
	assert.Contains(t, fields, "courses[0].taught_at")
	assert.Contains(t, fields, "courses[0].hours")
	assert.Contains(t, fields, "events[0].role")
}

func TestExpiredCertificationMarkedInvalid(t *testing.T) {
	v := NewFormValidator()

	req := dto.CreateSubmissionRequest{
		FullName:           "Dra. Ana Torres",
		InstitutionalEmail: "ana@uni.edu",
		AcademicYear:       2024,
		Term:               "Q1",
		Certifications: []dto.CertificationRequest{{
			Name:       "Certificación Vencida",
			ObtainedAt: "2015-06-01",
			ExpiresAt:  "2018-06-01",
		}},
	}

	_, set, fieldErrors := v.Validate(req)

	require.Empty(t, fieldErrors)
	require.Len(t, set.Certifications, 1)
	assert.False(t, set.Certifications[0].Valid)
}
