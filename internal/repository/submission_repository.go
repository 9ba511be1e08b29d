package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-reports-api/internal/models"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
)

const submissionColumns = `id, full_name, institutional_email, academic_year, term, status, submitted_at,
reviewed_at, reviewed_by, review_comment, original_id, version, correction_token, active_version, created_at, updated_at`

// SubmissionRepository manages persistence for submissions and their
// activity children. Child inserts share the submission's transaction so a
// failed activity write rolls back the whole form.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// ExistsActiveByEmail reports whether an active submission exists for the
// email, optionally excluding one lineage (used by the correction flow).
func (r *SubmissionRepository) ExistsActiveByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	query := "SELECT 1 FROM submissions WHERE LOWER(institutional_email) = LOWER($1) AND active_version = TRUE"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active email: %w", err)
	}
	return true, nil
}

// CreateWithActivities inserts the submission and all child records in one
// transaction.
func (r *SubmissionRepository) CreateWithActivities(ctx context.Context, sub *models.Submission, activities models.ActivitySet) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = now
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.Status == "" {
		sub.Status = models.StatusPending
	}
	if sub.Version == 0 {
		sub.Version = 1
	}
	sub.ActiveVersion = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO submissions (` + submissionColumns + `)
VALUES (:id, :full_name, :institutional_email, :academic_year, :term, :status, :submitted_at,
:reviewed_at, :reviewed_by, :review_comment, :original_id, :version, :correction_token, :active_version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, sub); err != nil {
		return translate(fmt.Errorf("create submission: %w", err), "")
	}

	if err := insertActivities(ctx, tx, sub.ID, activities); err != nil {
		return translate(err, "")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submission tx: %w", err)
	}
	return nil
}

// FindByID fetches a submission by its identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submissions WHERE id = $1"
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, translate(err, "submission not found")
	}
	return &sub, nil
}

// FindByCorrectionToken fetches the active submission carrying the token.
func (r *SubmissionRepository) FindByCorrectionToken(ctx context.Context, token string) (*models.Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submissions WHERE correction_token = $1 AND active_version = TRUE"
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, token); err != nil {
		return nil, translate(err, "submission not found for token")
	}
	return &sub, nil
}

// List returns submissions matching the provided filters plus a total count.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.ActiveOnly {
		conditions = append(conditions, "active_version = TRUE")
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.AcademicYear != nil {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, *filter.AcademicYear)
	}
	if filter.Term != nil {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, *filter.Term)
	}
	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(institutional_email) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Email)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(institutional_email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := strings.Join(conditions, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"submitted_at":  "submitted_at",
		"full_name":     "full_name",
		"academic_year": "academic_year",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "submitted_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM submissions WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		submissionColumns, where, column, order, size, offset)

	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM submissions WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return subs, total, nil
}

// ListActive returns every active-version submission for the pipeline.
func (r *SubmissionRepository) ListActive(ctx context.Context) ([]models.Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submissions WHERE active_version = TRUE ORDER BY submitted_at ASC"
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("list active submissions: %w", err)
	}
	return subs, nil
}

// Review transitions a pending submission to approved or rejected. The
// guard on status makes a double review lose the race instead of
// overwriting the first decision.
func (r *SubmissionRepository) Review(ctx context.Context, id string, status models.SubmissionStatus, reviewer string, comment *string) error {
	const query = `UPDATE submissions SET status = $1, reviewed_at = $2, reviewed_by = $3, review_comment = $4, updated_at = $2
WHERE id = $5 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), reviewer, comment, id, models.StatusPending)
	if err != nil {
		return translate(fmt.Errorf("review submission: %w", err), "")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("review submission rows: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrInvalidTransition
	}
	return nil
}

// SetCorrectionToken stores the token a rejected submitter uses to correct.
func (r *SubmissionRepository) SetCorrectionToken(ctx context.Context, id, token string) error {
	const query = `UPDATE submissions SET correction_token = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, token, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set correction token: %w", err)
	}
	return nil
}

// ApplyCorrection archives the current payload, replaces the submission's
// data and children, bumps the version and resets the status to pending.
// Everything happens inside one transaction.
func (r *SubmissionRepository) ApplyCorrection(ctx context.Context, current *models.Submission, currentActivities models.ActivitySet, updated *models.Submission, activities models.ActivitySet) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin correction tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	version := models.SubmissionVersion{
		ID:           uuid.NewString(),
		SubmissionID: current.ID,
		Version:      current.Version,
		Snapshot:     models.VersionSnapshot{Submission: *current, Activities: currentActivities},
		ArchivedAt:   time.Now().UTC(),
	}
	const archiveQuery = `INSERT INTO submission_versions (id, submission_id, version, snapshot, archived_at)
VALUES (:id, :submission_id, :version, :snapshot, :archived_at)`
	if _, err := tx.NamedExecContext(ctx, archiveQuery, version); err != nil {
		return translate(fmt.Errorf("archive submission version: %w", err), "")
	}

	now := time.Now().UTC()
	const updateQuery = `UPDATE submissions SET full_name = $1, institutional_email = $2, academic_year = $3, term = $4,
status = $5, submitted_at = $6, reviewed_at = NULL, reviewed_by = NULL, review_comment = NULL,
version = $7, correction_token = NULL, updated_at = $6 WHERE id = $8`
	if _, err := tx.ExecContext(ctx, updateQuery,
		updated.FullName, updated.InstitutionalEmail, updated.AcademicYear, updated.Term,
		models.StatusPending, now, current.Version+1, current.ID); err != nil {
		return translate(fmt.Errorf("update corrected submission: %w", err), "")
	}

	if err := deleteActivities(ctx, tx, current.ID); err != nil {
		return translate(err, "")
	}
	if err := insertActivities(ctx, tx, current.ID, activities); err != nil {
		return translate(err, "")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit correction tx: %w", err)
	}
	return nil
}

// ListVersions returns the archived snapshots for a submission lineage.
func (r *SubmissionRepository) ListVersions(ctx context.Context, submissionID string) ([]models.SubmissionVersion, error) {
	const query = `SELECT id, submission_id, version, snapshot, archived_at FROM submission_versions
WHERE submission_id = $1 ORDER BY version ASC`
	var versions []models.SubmissionVersion
	if err := r.db.SelectContext(ctx, &versions, query, submissionID); err != nil {
		return nil, fmt.Errorf("list submission versions: %w", err)
	}
	return versions, nil
}

func insertActivities(ctx context.Context, tx *sqlx.Tx, submissionID string, set models.ActivitySet) error {
	for i := range set.Courses {
		c := &set.Courses[i]
		c.ID = uuid.NewString()
		c.SubmissionID = submissionID
		const q = `INSERT INTO courses (id, submission_id, name, taught_at, hours)
VALUES (:id, :submission_id, :name, :taught_at, :hours)`
		if _, err := tx.NamedExecContext(ctx, q, c); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
	}
	for i := range set.Publications {
		p := &set.Publications[i]
		p.ID = uuid.NewString()
		p.SubmissionID = submissionID
		const q = `INSERT INTO publications (id, submission_id, authors, title, venue, status)
VALUES (:id, :submission_id, :authors, :title, :venue, :status)`
		if _, err := tx.NamedExecContext(ctx, q, p); err != nil {
			return fmt.Errorf("create publication: %w", err)
		}
	}
	for i := range set.Events {
		e := &set.Events[i]
		e.ID = uuid.NewString()
		e.SubmissionID = submissionID
		const q = `INSERT INTO events (id, submission_id, name, held_at, role)
VALUES (:id, :submission_id, :name, :held_at, :role)`
		if _, err := tx.NamedExecContext(ctx, q, e); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
	}
	for i := range set.Designs {
		d := &set.Designs[i]
		d.ID = uuid.NewString()
		d.SubmissionID = submissionID
		const q = `INSERT INTO curriculum_designs (id, submission_id, name, description)
VALUES (:id, :submission_id, :name, :description)`
		if _, err := tx.NamedExecContext(ctx, q, d); err != nil {
			return fmt.Errorf("create curriculum design: %w", err)
		}
	}
	for i := range set.Mobilities {
		m := &set.Mobilities[i]
		m.ID = uuid.NewString()
		m.SubmissionID = submissionID
		const q = `INSERT INTO mobilities (id, submission_id, description, kind, occurred_at)
VALUES (:id, :submission_id, :description, :kind, :occurred_at)`
		if _, err := tx.NamedExecContext(ctx, q, m); err != nil {
			return fmt.Errorf("create mobility: %w", err)
		}
	}
	for i := range set.Recognitions {
		rec := &set.Recognitions[i]
		rec.ID = uuid.NewString()
		rec.SubmissionID = submissionID
		const q = `INSERT INTO recognitions (id, submission_id, name, kind, granted_at)
VALUES (:id, :submission_id, :name, :kind, :granted_at)`
		if _, err := tx.NamedExecContext(ctx, q, rec); err != nil {
			return fmt.Errorf("create recognition: %w", err)
		}
	}
	for i := range set.Certifications {
		cert := &set.Certifications[i]
		cert.ID = uuid.NewString()
		cert.SubmissionID = submissionID
		const q = `INSERT INTO certifications (id, submission_id, name, obtained_at, expires_at, valid)
VALUES (:id, :submission_id, :name, :obtained_at, :expires_at, :valid)`
		if _, err := tx.NamedExecContext(ctx, q, cert); err != nil {
			return fmt.Errorf("create certification: %w", err)
		}
	}
	return nil
}

func deleteActivities(ctx context.Context, tx *sqlx.Tx, submissionID string) error {
	tables := []string{"courses", "publications", "events", "curriculum_designs", "mobilities", "recognitions", "certifications"}
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s WHERE submission_id = $1", table)
		if _, err := tx.ExecContext(ctx, query, submissionID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}
