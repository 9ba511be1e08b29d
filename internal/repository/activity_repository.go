package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-reports-api/internal/models"
)

// ActivityRepository reads the activity children of submissions.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// GetSet loads all activity records belonging to one submission.
func (r *ActivityRepository) GetSet(ctx context.Context, submissionID string) (models.ActivitySet, error) {
	var set models.ActivitySet

	if err := r.db.SelectContext(ctx, &set.Courses,
		"SELECT id, submission_id, name, taught_at, hours FROM courses WHERE submission_id = $1 ORDER BY taught_at ASC", submissionID); err != nil {
		return set, fmt.Errorf("load courses: %w", err)
	}
	if err := r.db.SelectContext(ctx, &set.Publications,
		"SELECT id, submission_id, authors, title, venue, status FROM publications WHERE submission_id = $1 ORDER BY title ASC", submissionID); err != nil {
		return set, fmt.Errorf("load publications: %w", err)
	}
	if err := r.db.SelectContext(ctx, &set.Events,
		"SELECT id, submission_id, name, held_at, role FROM events WHERE submission_id = $1 ORDER BY held_at ASC", submissionID); err != nil {
		return set, fmt.Errorf("load events: %w", err)
	}
	if err := r.db.SelectContext(ctx, &set.Designs,
		"SELECT id, submission_id, name, description FROM curriculum_designs WHERE submission_id = $1 ORDER BY name ASC", submissionID); err != nil {
		return set, fmt.Errorf("load curriculum designs: %w", err)
	}
	if err := r.db.SelectContext(ctx, &set.Mobilities,
		"SELECT id, submission_id, description, kind, occurred_at FROM mobilities WHERE submission_id = $1 ORDER BY occurred_at ASC", submissionID); err != nil {
		return set, fmt.Errorf("load mobilities: %w", err)
	}
	if err := r.db.SelectContext(ctx, &set.Recognitions,
		"SELECT id, submission_id, name, kind, granted_at FROM recognitions WHERE submission_id = $1 ORDER BY granted_at ASC", submissionID); err != nil {
		return set, fmt.Errorf("load recognitions: %w", err)
	}
	if err := r.db.SelectContext(ctx, &set.Certifications,
		"SELECT id, submission_id, name, obtained_at, expires_at, valid FROM certifications WHERE submission_id = $1 ORDER BY obtained_at ASC", submissionID); err != nil {
		return set, fmt.Errorf("load certifications: %w", err)
	}
	return set, nil
}

// CountByCategory returns activity totals across all active submissions,
// used by the dashboard.
func (r *ActivityRepository) CountByCategory(ctx context.Context) (map[string]int, error) {
	const query = `SELECT 'courses' AS category, COUNT(*) AS total FROM courses c JOIN submissions s ON s.id = c.submission_id AND s.active_version = TRUE
UNION ALL SELECT 'publications', COUNT(*) FROM publications p JOIN submissions s ON s.id = p.submission_id AND s.active_version = TRUE
UNION ALL SELECT 'events', COUNT(*) FROM events e JOIN submissions s ON s.id = e.submission_id AND s.active_version = TRUE
UNION ALL SELECT 'curriculum_designs', COUNT(*) FROM curriculum_designs d JOIN submissions s ON s.id = d.submission_id AND s.active_version = TRUE
UNION ALL SELECT 'mobilities', COUNT(*) FROM mobilities m JOIN submissions s ON s.id = m.submission_id AND s.active_version = TRUE
UNION ALL SELECT 'recognitions', COUNT(*) FROM recognitions rec JOIN submissions s ON s.id = rec.submission_id AND s.active_version = TRUE
UNION ALL SELECT 'certifications', COUNT(*) FROM certifications ct JOIN submissions s ON s.id = ct.submission_id AND s.active_version = TRUE`

	rows := []struct {
		Category string `db:"category"`
		Total    int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count activities by category: %w", err)
	}
	totals := make(map[string]int, len(rows))
	for _, row := range rows {
		totals[row.Category] = row.Total
	}
	return totals, nil
}
