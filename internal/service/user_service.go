package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/teacher-reports-api/internal/models"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// CreateUserRequest adds an administrative account.
type CreateUserRequest struct {
	Email    string          `json:"email" binding:"required"`
	Password string          `json:"password" binding:"required,min=8"`
	FullName string          `json:"full_name" binding:"required"`
	Role     models.UserRole `json:"role" binding:"required"`
}

// UserService manages administrative accounts.
type UserService struct {
	repo      userStore
	validator *FormValidator
	logger    *zap.Logger
}

// NewUserService constructs a user service.
func NewUserService(repo userStore, validator *FormValidator, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validator, logger: logger}
}

// Create registers an administrative account with a hashed password.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !s.validator.ValidateEmail(email) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user email is invalid")
	}
	switch req.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("email", email), zap.String("role", string(req.Role)))
	return user, nil
}

// Get fetches an account by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns accounts matching the filter plus a total count.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return s.repo.List(ctx, filter)
}
