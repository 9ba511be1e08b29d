package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-reports-api/internal/models"
)

// AnalyticsRepository computes per-category aggregates for the metrics
// pipeline. All queries are restricted to approved active submissions of
// the requested period; quarter 0 means the whole year.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs an AnalyticsRepository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func periodClause(quarter int) string {
	base := `JOIN submissions s ON s.id = %s.submission_id
AND s.active_version = TRUE AND s.status = 'APPROVED'
AND EXTRACT(YEAR FROM s.submitted_at) = $1`
	if quarter > 0 {
		base += " AND EXTRACT(QUARTER FROM s.submitted_at) = $2"
	}
	return base
}

func periodArgs(year, quarter int) []interface{} {
	if quarter > 0 {
		return []interface{}{year, quarter}
	}
	return []interface{}{year}
}

// CategoryDetail aggregates every activity category for the period.
func (r *AnalyticsRepository) CategoryDetail(ctx context.Context, year, quarter int) (models.CategoryDetail, error) {
	detail := models.CategoryDetail{
		Publications:   models.PublicationMetrics{ByStatus: map[string]int{}},
		Events:         models.EventMetrics{ByRole: map[string]int{}},
		Mobilities:     models.KindMetrics{ByKind: map[string]int{}},
		Recognitions:   models.KindMetrics{ByKind: map[string]int{}},
		Certifications: models.CertificationMetrics{},
	}
	args := periodArgs(year, quarter)
	join := periodClause(quarter)

	courseJoin := fmt.Sprintf(join, "c")
	courseQuery := fmt.Sprintf("SELECT COUNT(*) AS total, COALESCE(SUM(c.hours), 0) AS total_hours FROM courses c %s", courseJoin)
	var courseAgg struct {
		Total      int `db:"total"`
		TotalHours int `db:"total_hours"`
	}
	if err := r.db.GetContext(ctx, &courseAgg, courseQuery, args...); err != nil {
		return detail, fmt.Errorf("aggregate courses: %w", err)
	}
	detail.Courses.Total = courseAgg.Total
	detail.Courses.TotalHours = courseAgg.TotalHours
	if err := r.db.SelectContext(ctx, &detail.Courses.Names,
		fmt.Sprintf("SELECT c.name FROM courses c %s ORDER BY c.name ASC", courseJoin), args...); err != nil {
		return detail, fmt.Errorf("list course names: %w", err)
	}

	pubJoin := fmt.Sprintf(join, "p")
	if err := r.db.GetContext(ctx, &detail.Publications.Total,
		fmt.Sprintf("SELECT COUNT(*) FROM publications p %s", pubJoin), args...); err != nil {
		return detail, fmt.Errorf("count publications: %w", err)
	}
	statusRows := []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &statusRows,
		fmt.Sprintf("SELECT p.status, COUNT(*) AS total FROM publications p %s GROUP BY p.status", pubJoin), args...); err != nil {
		return detail, fmt.Errorf("group publications by status: %w", err)
	}
	for _, row := range statusRows {
		detail.Publications.ByStatus[row.Status] = row.Total
	}
	if err := r.db.SelectContext(ctx, &detail.Publications.Titles,
		fmt.Sprintf("SELECT p.title FROM publications p %s ORDER BY p.title ASC", pubJoin), args...); err != nil {
		return detail, fmt.Errorf("list publication titles: %w", err)
	}

	eventJoin := fmt.Sprintf(join, "e")
	if err := r.db.GetContext(ctx, &detail.Events.Total,
		fmt.Sprintf("SELECT COUNT(*) FROM events e %s", eventJoin), args...); err != nil {
		return detail, fmt.Errorf("count events: %w", err)
	}
	roleRows := []struct {
		Role  string `db:"role"`
		Total int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &roleRows,
		fmt.Sprintf("SELECT e.role, COUNT(*) AS total FROM events e %s GROUP BY e.role", eventJoin), args...); err != nil {
		return detail, fmt.Errorf("group events by role: %w", err)
	}
	for _, row := range roleRows {
		detail.Events.ByRole[row.Role] = row.Total
	}
	if err := r.db.SelectContext(ctx, &detail.Events.Names,
		fmt.Sprintf("SELECT e.name FROM events e %s ORDER BY e.name ASC", eventJoin), args...); err != nil {
		return detail, fmt.Errorf("list event names: %w", err)
	}

	designJoin := fmt.Sprintf(join, "d")
	if err := r.db.GetContext(ctx, &detail.Designs,
		fmt.Sprintf("SELECT COUNT(*) FROM curriculum_designs d %s", designJoin), args...); err != nil {
		return detail, fmt.Errorf("count curriculum designs: %w", err)
	}

	mobilityJoin := fmt.Sprintf(join, "m")
	if err := r.db.GetContext(ctx, &detail.Mobilities.Total,
		fmt.Sprintf("SELECT COUNT(*) FROM mobilities m %s", mobilityJoin), args...); err != nil {
		return detail, fmt.Errorf("count mobilities: %w", err)
	}
	kindRows := []struct {
		Kind  string `db:"kind"`
		Total int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &kindRows,
		fmt.Sprintf("SELECT m.kind, COUNT(*) AS total FROM mobilities m %s GROUP BY m.kind", mobilityJoin), args...); err != nil {
		return detail, fmt.Errorf("group mobilities by kind: %w", err)
	}
	for _, row := range kindRows {
		detail.Mobilities.ByKind[row.Kind] = row.Total
	}

	recognitionJoin := fmt.Sprintf(join, "rec")
	if err := r.db.GetContext(ctx, &detail.Recognitions.Total,
		fmt.Sprintf("SELECT COUNT(*) FROM recognitions rec %s", recognitionJoin), args...); err != nil {
		return detail, fmt.Errorf("count recognitions: %w", err)
	}
	recKindRows := []struct {
		Kind  string `db:"kind"`
		Total int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &recKindRows,
		fmt.Sprintf("SELECT rec.kind, COUNT(*) AS total FROM recognitions rec %s GROUP BY rec.kind", recognitionJoin), args...); err != nil {
		return detail, fmt.Errorf("group recognitions by kind: %w", err)
	}
	for _, row := range recKindRows {
		detail.Recognitions.ByKind[row.Kind] = row.Total
	}

	certJoin := fmt.Sprintf(join, "ct")
	certQuery := fmt.Sprintf("SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN ct.valid THEN 1 ELSE 0 END), 0) AS valid FROM certifications ct %s", certJoin)
	var certAgg struct {
		Total int `db:"total"`
		Valid int `db:"valid"`
	}
	if err := r.db.GetContext(ctx, &certAgg, certQuery, args...); err != nil {
		return detail, fmt.Errorf("aggregate certifications: %w", err)
	}
	detail.Certifications.Total = certAgg.Total
	detail.Certifications.Valid = certAgg.Valid
	if err := r.db.SelectContext(ctx, &detail.Certifications.Names,
		fmt.Sprintf("SELECT ct.name FROM certifications ct %s ORDER BY ct.name ASC", certJoin), args...); err != nil {
		return detail, fmt.Errorf("list certification names: %w", err)
	}

	return detail, nil
}

// CountByStatus returns active submission totals per review status.
func (r *AnalyticsRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows := []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}{}
	const query = `SELECT status, COUNT(*) AS total FROM submissions WHERE active_version = TRUE GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count submissions by status: %w", err)
	}
	totals := make(map[string]int, len(rows))
	for _, row := range rows {
		totals[row.Status] = row.Total
	}
	return totals, nil
}

// RecentSubmissions returns the newest active submissions for the dashboard.
func (r *AnalyticsRepository) RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE active_version = TRUE ORDER BY submitted_at DESC LIMIT %d",
		submissionColumns, limit)
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("list recent submissions: %w", err)
	}
	return subs, nil
}
