package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	"github.com/noah-isme/teacher-reports-api/internal/repository"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
)

type instructorStore interface {
	Create(ctx context.Context, instructor *models.AuthorizedInstructor) error
	FindByID(ctx context.Context, id string) (*models.AuthorizedInstructor, error)
	List(ctx context.Context, filter models.InstructorFilter) ([]models.AuthorizedInstructor, int, error)
	Update(ctx context.Context, id string, params repository.UpdateInstructorParams) error
	Delete(ctx context.Context, id string) error
}

// InstructorService manages the authorized-instructor whitelist.
type InstructorService struct {
	repo      instructorStore
	validator *FormValidator
	audit     auditAppender
	logger    *zap.Logger
}

// NewInstructorService constructs an instructor service.
func NewInstructorService(repo instructorStore, validator *FormValidator, audit auditAppender, logger *zap.Logger) *InstructorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, validator: validator, audit: audit, logger: logger}
}

// Create adds a whitelist entry.
func (s *InstructorService) Create(ctx context.Context, actor string, req dto.CreateInstructorRequest, ip string) (*models.AuthorizedInstructor, error) {
	name := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !s.validator.ValidateName(name) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor name is invalid")
	}
	if !s.validator.ValidateEmail(email) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor email is invalid")
	}

	instructor := &models.AuthorizedInstructor{
		FullName: name,
		Email:    email,
		Active:   true,
	}
	if err := s.repo.Create(ctx, instructor); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, models.AuditActionInstructorAdded, email, ip)
	return instructor, nil
}

// Get fetches a whitelist entry.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.AuthorizedInstructor, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns whitelist entries matching the filter plus a total count.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.AuthorizedInstructor, int, error) {
	return s.repo.List(ctx, filter)
}

// Update changes a whitelist entry's name or active flag.
func (s *InstructorService) Update(ctx context.Context, actor, id string, req dto.UpdateInstructorRequest, ip string) (*models.AuthorizedInstructor, error) {
	params := repository.UpdateInstructorParams{Active: req.Active}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if !s.validator.ValidateName(name) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "instructor name is invalid")
		}
		params.FullName = &name
	}
	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, err
	}
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, models.AuditActionInstructorUpdated, instructor.Email, ip)
	return instructor, nil
}

// Delete removes a whitelist entry.
func (s *InstructorService) Delete(ctx context.Context, actor, id, ip string) error {
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, models.AuditActionInstructorRemoved, instructor.Email, ip)
	return nil
}

func (s *InstructorService) recordAudit(ctx context.Context, actor, action, email, ip string) {
	if s.audit == nil {
		return
	}
	comment := "email=" + email
	if err := s.audit.Append(ctx, &models.AuditEntry{
		Actor:     actor,
		Action:    action,
		Comment:   &comment,
		IPAddress: ip,
	}); err != nil {
		s.logger.Warn("failed to audit instructor change", zap.String("action", action), zap.Error(err))
	}
}
