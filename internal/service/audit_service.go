package service

import (
	"context"

	"github.com/noah-isme/teacher-reports-api/internal/models"
)

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error)
}

// AuditService exposes the read side of the audit trail.
type AuditService struct {
	repo auditLister
}

// NewAuditService constructs an audit service.
func NewAuditService(repo auditLister) *AuditService {
	return &AuditService{repo: repo}
}

// List returns audit entries matching the filter plus a total count.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error) {
	return s.repo.List(ctx, filter)
}
