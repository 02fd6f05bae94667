package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/preenroll-api/internal/models"
	"github.com/campushq/preenroll-api/internal/repository"
	appErrors "github.com/campushq/preenroll-api/pkg/errors"
)

type userRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
}

type profileRepo interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfileDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error)
	List(ctx context.Context, filter models.StudentProfileFilter) ([]models.StudentProfileDetail, int, error)
	Create(ctx context.Context, profile *models.StudentProfile) error
	Update(ctx context.Context, profile *models.StudentProfile) error
}

// CreateUserRequest registers a new account. Student accounts carry an
// embedded profile.
type CreateUserRequest struct {
	Email    string               `json:"email" validate:"required,email"`
	Password string               `json:"password" validate:"required,min=6"`
	FullName string               `json:"full_name" validate:"required,max=255"`
	Role     models.UserRole      `json:"role" validate:"required,oneof=ADMIN TUTOR STUDENT"`
	Profile  *CreateProfilePayload `json:"profile" validate:"omitempty"`
}

// CreateProfilePayload carries student attributes for STUDENT accounts.
type CreateProfilePayload struct {
	StudentNumber string `json:"student_number" validate:"required,max=32"`
	Program       string `json:"program" validate:"required,max=128"`
	YearLevel     int    `json:"year_level" validate:"required,min=1,max=8"`
}

// UpdateUserRequest patches an account. Nil fields are untouched.
type UpdateUserRequest struct {
	FullName *string          `json:"full_name" validate:"omitempty,max=255"`
	Role     *models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN TUTOR STUDENT"`
	Active   *bool            `json:"active"`
}

// UpdateProfileRequest patches a student profile.
type UpdateProfileRequest struct {
	StudentNumber *string `json:"student_number" validate:"omitempty,max=32"`
	Program       *string `json:"program" validate:"omitempty,max=128"`
	YearLevel     *int    `json:"year_level" validate:"omitempty,min=1,max=8"`
}

// UserService manages accounts and student profiles.
type UserService struct {
	users     userRepo
	profiles  profileRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users userRepo, profiles profileRepo, v *validator.Validate, logger *zap.Logger) *UserService {
	if v == nil {
		v = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, profiles: profiles, validator: v, logger: logger}
}

// List returns users with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create registers a user. STUDENT accounts require a profile payload
// and get a student profile created alongside.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if req.Role == models.RoleStudent && req.Profile == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student accounts require a profile")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if req.Role == models.RoleStudent {
		profile := &models.StudentProfile{
			UserID:        user.ID,
			StudentNumber: req.Profile.StudentNumber,
			Program:       req.Profile.Program,
			YearLevel:     req.Profile.YearLevel,
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "student number already registered")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student profile")
		}
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Update patches an account.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Deactivate soft-disables an account.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.users.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	s.logger.Info("user deactivated", zap.String("user_id", id))
	return nil
}

// ListProfiles returns student profiles with pagination metadata.
func (s *UserService) ListProfiles(ctx context.Context, filter models.StudentProfileFilter) ([]models.StudentProfileDetail, *models.Pagination, error) {
	profiles, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return profiles, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetProfile returns a student profile by ID.
func (s *UserService) GetProfile(ctx context.Context, id string) (*models.StudentProfileDetail, error) {
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return profile, nil
}

// GetProfileForUser returns the profile owned by a user.
func (s *UserService) GetProfileForUser(ctx context.Context, userID string) (*models.StudentProfileDetail, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return profile, nil
}

// UpdateProfile patches a student profile.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*models.StudentProfileDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	detail, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := detail.StudentProfile
	if req.StudentNumber != nil {
		profile.StudentNumber = *req.StudentNumber
	}
	if req.Program != nil {
		profile.Program = *req.Program
	}
	if req.YearLevel != nil {
		profile.YearLevel = *req.YearLevel
	}
	if err := s.profiles.Update(ctx, &profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student number already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
	}
	detail.StudentProfile = profile
	return detail, nil
}
