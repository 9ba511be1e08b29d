package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
)

type submissionStore interface {
	ExistsActiveByEmail(ctx context.Context, email, excludeID string) (bool, error)
	CreateWithActivities(ctx context.Context, sub *models.Submission, activities models.ActivitySet) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByCorrectionToken(ctx context.Context, token string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	Review(ctx context.Context, id string, status models.SubmissionStatus, reviewer string, comment *string) error
	SetCorrectionToken(ctx context.Context, id, token string) error
	ApplyCorrection(ctx context.Context, current *models.Submission, currentActivities models.ActivitySet, updated *models.Submission, activities models.ActivitySet) error
	ListVersions(ctx context.Context, submissionID string) ([]models.SubmissionVersion, error)
}

type activityStore interface {
	GetSet(ctx context.Context, submissionID string) (models.ActivitySet, error)
}

type instructorAuthorizer interface {
	IsAuthorized(ctx context.Context, email string) (bool, error)
}

// SubmissionService implements the intake and review lifecycle of
// submissions, including the token-based correction flow.
type SubmissionService struct {
	repo       submissionStore
	activities activityStore
	whitelist  instructorAuthorizer
	validator  *FormValidator
	audit      auditAppender
	analytics  *AnalyticsService
	metrics    *MetricsService
	logger     *zap.Logger

	whitelistEnforced bool
	correctionTTL     time.Duration
}

// NewSubmissionService constructs a submission service.
func NewSubmissionService(
	repo submissionStore,
	activities activityStore,
	whitelist instructorAuthorizer,
	validator *FormValidator,
	audit auditAppender,
	analytics *AnalyticsService,
	metrics *MetricsService,
	logger *zap.Logger,
	whitelistEnforced bool,
	correctionTTL time.Duration,
) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if correctionTTL <= 0 {
		correctionTTL = 7 * 24 * time.Hour
	}
	return &SubmissionService{
		repo:              repo,
		activities:        activities,
		whitelist:         whitelist,
		validator:         validator,
		audit:             audit,
		analytics:         analytics,
		metrics:           metrics,
		logger:            logger,
		whitelistEnforced: whitelistEnforced,
		correctionTTL:     correctionTTL,
	}
}

// Create validates and persists a public intake submission.
func (s *SubmissionService) Create(ctx context.Context, req dto.CreateSubmissionRequest, ip string) (*dto.SubmissionResponse, error) {
	sub, activities, fieldErrors := s.validator.Validate(req)
	if len(fieldErrors) > 0 {
		s.metrics.RecordSubmission("invalid")
		return nil, validationError(fieldErrors)
	}

	if s.whitelistEnforced {
		authorized, err := s.whitelist.IsAuthorized(ctx, sub.InstitutionalEmail)
		if err != nil {
			return nil, err
		}
		if !authorized {
			s.metrics.RecordSubmission("unauthorized")
			return nil, appErrors.ErrNotAuthorized
		}
	}

	exists, err := s.repo.ExistsActiveByEmail(ctx, sub.InstitutionalEmail, "")
	if err != nil {
		return nil, err
	}
	if exists {
		s.metrics.RecordSubmission("duplicate_email")
		return nil, appErrors.ErrDuplicateEmail
	}

	if err := s.repo.CreateWithActivities(ctx, sub, activities); err != nil {
		return nil, err
	}
	s.metrics.RecordSubmission("created")
	s.appendAudit(ctx, &sub.ID, sub.InstitutionalEmail, models.AuditActionSubmissionCreated, nil, ip)
	s.analytics.InvalidateCache(ctx)

	s.logger.Info("submission created",
		zap.String("submission_id", sub.ID),
		zap.String("email", sub.InstitutionalEmail))
	return &dto.SubmissionResponse{Submission: *sub, Activities: activities}, nil
}

// Get returns a submission with its activities.
func (s *SubmissionService) Get(ctx context.Context, id string) (*dto.SubmissionResponse, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	activities, err := s.activities.GetSet(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return &dto.SubmissionResponse{Submission: *sub, Activities: activities}, nil
}

// List returns submissions matching the filter plus a total count.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	return s.repo.List(ctx, filter)
}

// Approve marks a pending submission approved.
func (s *SubmissionService) Approve(ctx context.Context, id, reviewer string, req dto.ReviewRequest, ip string) (*models.Submission, error) {
	comment := optionalString(req.Comment)
	if err := s.repo.Review(ctx, id, models.StatusApproved, reviewer, comment); err != nil {
		return nil, err
	}
	s.metrics.RecordSubmission("approved")
	s.appendAudit(ctx, &id, reviewer, models.AuditActionSubmissionApproved, comment, ip)
	s.analytics.InvalidateCache(ctx)
	return s.repo.FindByID(ctx, id)
}

// Reject marks a pending submission rejected and issues a correction token
// the submitter can use to amend and resubmit.
func (s *SubmissionService) Reject(ctx context.Context, id, reviewer string, req dto.ReviewRequest, ip string) (*models.Submission, string, error) {
	comment := optionalString(req.Comment)
	if err := s.repo.Review(ctx, id, models.StatusRejected, reviewer, comment); err != nil {
		return nil, "", err
	}
	token := uuid.NewString()
	if err := s.repo.SetCorrectionToken(ctx, id, token); err != nil {
		return nil, "", err
	}
	s.metrics.RecordSubmission("rejected")
	s.appendAudit(ctx, &id, reviewer, models.AuditActionSubmissionRejected, comment, ip)
	s.analytics.InvalidateCache(ctx)

	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return sub, token, nil
}

// GetByCorrectionToken resolves a token so the submitter can prefill the
// correction form. Tokens expire after the configured TTL, counted from the
// rejection timestamp.
func (s *SubmissionService) GetByCorrectionToken(ctx context.Context, token string) (*dto.SubmissionResponse, error) {
	sub, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	activities, err := s.activities.GetSet(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return &dto.SubmissionResponse{Submission: *sub, Activities: activities}, nil
}

// Correct replaces a rejected submission's payload, archiving the previous
// version and putting the form back in the review queue.
func (s *SubmissionService) Correct(ctx context.Context, token string, req dto.CreateSubmissionRequest, ip string) (*dto.SubmissionResponse, error) {
	current, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	updated, activities, fieldErrors := s.validator.Validate(req)
	if len(fieldErrors) > 0 {
		return nil, validationError(fieldErrors)
	}

	// A correction may change the email, but not onto another active lineage.
	exists, err := s.repo.ExistsActiveByEmail(ctx, updated.InstitutionalEmail, current.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.ErrDuplicateEmail
	}
	if s.whitelistEnforced {
		authorized, err := s.whitelist.IsAuthorized(ctx, updated.InstitutionalEmail)
		if err != nil {
			return nil, err
		}
		if !authorized {
			return nil, appErrors.ErrNotAuthorized
		}
	}

	currentActivities, err := s.activities.GetSet(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ApplyCorrection(ctx, current, currentActivities, updated, activities); err != nil {
		return nil, err
	}
	s.metrics.RecordSubmission("corrected")
	s.appendAudit(ctx, &current.ID, updated.InstitutionalEmail, models.AuditActionSubmissionCorrected, nil, ip)
	s.analytics.InvalidateCache(ctx)

	return s.Get(ctx, current.ID)
}

// Versions lists the archived snapshots of a submission.
func (s *SubmissionService) Versions(ctx context.Context, id string) ([]models.SubmissionVersion, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, id)
}

func (s *SubmissionService) resolveToken(ctx context.Context, token string) (*models.Submission, error) {
	if token == "" {
		return nil, appErrors.ErrInvalidToken
	}
	sub, err := s.repo.FindByCorrectionToken(ctx, token)
	if err != nil {
		return nil, appErrors.ErrInvalidToken
	}
	if sub.Status != models.StatusRejected {
		return nil, appErrors.ErrInvalidToken
	}
	if sub.ReviewedAt != nil && time.Since(*sub.ReviewedAt) > s.correctionTTL {
		return nil, appErrors.ErrInvalidToken
	}
	return sub, nil
}

func (s *SubmissionService) appendAudit(ctx context.Context, submissionID *string, actor, action string, comment *string, ip string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, &models.AuditEntry{
		SubmissionID: submissionID,
		Actor:        actor,
		Action:       action,
		Comment:      comment,
		IPAddress:    ip,
	}); err != nil {
		s.logger.Warn("failed to append audit entry", zap.String("action", action), zap.Error(err))
	}
}

// ValidationError carries field-level detail for the HTTP layer.
type ValidationError struct {
	Fields []dto.FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed"
}

func validationError(fieldErrors []dto.FieldError) error {
	return &ValidationError{Fields: fieldErrors}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
