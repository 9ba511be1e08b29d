package service

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-reports-api/internal/models"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	dotRun        = regexp.MustCompile(`\.{2,}`)
	atRun         = regexp.MustCompile(`@{2,}`)
)

// Academic title abbreviations preserved with their canonical casing.
var titleAbbreviations = map[string]string{
	"dr.":   "Dr.",
	"dra.":  "Dra.",
	"mtro.": "Mtro.",
	"mtra.": "Mtra.",
	"ing.":  "Ing.",
	"lic.":  "Lic.",
	"dr":    "Dr.",
	"dra":   "Dra.",
	"mtro":  "Mtro.",
	"mtra":  "Mtra.",
}

// CleaningService normalizes raw submissions into clean records for the
// pipeline. Individual bad rows degrade to zero values instead of failing
// the batch.
type CleaningService struct {
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCleaningService constructs a cleaning service.
func NewCleaningService(metrics *MetricsService, logger *zap.Logger) *CleaningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleaningService{metrics: metrics, logger: logger}
}

// Clean converts submissions into normalized records, deriving calendar
// fields from the submission timestamp.
func (s *CleaningService) Clean(subs []models.Submission) []models.CleanRecord {
	start := time.Now()
	records := make([]models.CleanRecord, 0, len(subs))
	for _, sub := range subs {
		record := models.CleanRecord{
			SubmissionID: sub.ID,
			FullName:     NormalizeName(sub.FullName),
			Email:        NormalizeEmail(sub.InstitutionalEmail),
			Status:       sub.Status,
			Term:         sub.Term,
			AcademicYear: sub.AcademicYear,
			SubmittedAt:  sub.SubmittedAt,
		}
		if !sub.SubmittedAt.IsZero() {
			record.Year = sub.SubmittedAt.Year()
			record.Month = int(sub.SubmittedAt.Month())
			record.Quarter = (record.Month-1)/3 + 1
		}
		records = append(records, record)
	}
	if s.metrics != nil {
		s.metrics.ObservePipelineStage("cleaning", time.Since(start))
	}
	return records
}

// NormalizeName trims, collapses whitespace and title-cases a person name
// while preserving academic title abbreviations.
func NormalizeName(raw string) string {
	trimmed := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")
	if trimmed == "" {
		return ""
	}
	words := strings.Split(trimmed, " ")
	for i, word := range words {
		lower := strings.ToLower(word)
		if canonical, ok := titleAbbreviations[lower]; ok {
			words[i] = canonical
			continue
		}
		words[i] = capitalize(lower)
	}
	return strings.Join(words, " ")
}

// NormalizeEmail lowercases and collapses repeated dots and @ signs.
func NormalizeEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	email = dotRun.ReplaceAllString(email, ".")
	email = atRun.ReplaceAllString(email, "@")
	return email
}

func capitalize(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
