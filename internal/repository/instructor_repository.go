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
)

// InstructorRepository manages the authorized-instructor whitelist.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// IsAuthorized reports whether an active whitelist entry exists for the email.
func (r *InstructorRepository) IsAuthorized(ctx context.Context, email string) (bool, error) {
	const query = `SELECT 1 FROM authorized_instructors WHERE LOWER(email) = LOWER($1) AND active = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check instructor authorization: %w", err)
	}
	return true, nil
}

// Create inserts a whitelist entry.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.AuthorizedInstructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = now
	}
	instructor.UpdatedAt = now
	const query = `INSERT INTO authorized_instructors (id, full_name, email, active, created_at, updated_at)
VALUES (:id, :full_name, :email, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return translate(fmt.Errorf("create instructor: %w", err), "")
	}
	return nil
}

// FindByID fetches a whitelist entry.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.AuthorizedInstructor, error) {
	const query = `SELECT id, full_name, email, active, created_at, updated_at FROM authorized_instructors WHERE id = $1`
	var instructor models.AuthorizedInstructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, translate(err, "instructor not found")
	}
	return &instructor, nil
}

// List returns whitelist entries matching the filter plus a total count.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.AuthorizedInstructor, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, full_name, email, active, created_at, updated_at
FROM authorized_instructors WHERE %s ORDER BY full_name ASC LIMIT %d OFFSET %d`, where, size, offset)

	var instructors []models.AuthorizedInstructor
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list instructors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM authorized_instructors WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count instructors: %w", err)
	}
	return instructors, total, nil
}

// UpdateInstructorParams defines the mutable whitelist fields.
type UpdateInstructorParams struct {
	FullName *string
	Active   *bool
}

// Update persists the provided changes for a whitelist entry.
func (r *InstructorRepository) Update(ctx context.Context, id string, params UpdateInstructorParams) error {
	set := []string{}
	args := []interface{}{}

	if params.FullName != nil {
		set = append(set, fmt.Sprintf("full_name = $%d", len(args)+1))
		args = append(args, *params.FullName)
	}
	if params.Active != nil {
		set = append(set, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *params.Active)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())

	query := fmt.Sprintf("UPDATE authorized_instructors SET %s WHERE id = $%d", strings.Join(set, ", "), len(args)+1)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(fmt.Errorf("update instructor: %w", err), "")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update instructor rows: %w", err)
	}
	if affected == 0 {
		return translate(sql.ErrNoRows, "instructor not found")
	}
	return nil
}

// Delete removes a whitelist entry.
func (r *InstructorRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM authorized_instructors WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete instructor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete instructor rows: %w", err)
	}
	if affected == 0 {
		return translate(sql.ErrNoRows, "instructor not found")
	}
	return nil
}

// CountActive returns the number of active whitelist entries.
func (r *InstructorRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM authorized_instructors WHERE active = TRUE"); err != nil {
		return 0, fmt.Errorf("count active instructors: %w", err)
	}
	return total, nil
}
