package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-reports-api/internal/models"
)

// AuditRepository appends and lists audit trail entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts an audit entry. Entries are never updated or deleted.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_entries (id, submission_id, actor, action, comment, ip_address, recorded_at)
VALUES (:id, :submission_id, :actor, :action, :comment, :ip_address, :recorded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns audit entries matching the filter, newest first.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.SubmissionID != "" {
		conditions = append(conditions, fmt.Sprintf("submission_id = $%d", len(args)+1))
		args = append(args, filter.SubmissionID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.Actor != "" {
		conditions = append(conditions, fmt.Sprintf("actor = $%d", len(args)+1))
		args = append(args, filter.Actor)
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, submission_id, actor, action, comment, ip_address, recorded_at
FROM audit_entries WHERE %s ORDER BY recorded_at DESC LIMIT %d OFFSET %d`, where, size, offset)

	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_entries WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}
	return entries, total, nil
}
