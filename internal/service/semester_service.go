package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/preenroll-api/internal/models"
	"github.com/campushq/preenroll-api/internal/repository"
	appErrors "github.com/campushq/preenroll-api/pkg/errors"
)

type semesterRepo interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
	CountEnrollments(ctx context.Context, semesterID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// CreateSemesterRequest is the payload for creating a semester.
type CreateSemesterRequest struct {
	Name            string    `json:"name" validate:"required,max=100"`
	AcademicYear    string    `json:"academic_year" validate:"required,max=16"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
	EnrollmentStart time.Time `json:"enrollment_start" validate:"required"`
	EnrollmentEnd   time.Time `json:"enrollment_end" validate:"required"`
	IsActive        *bool     `json:"is_active"`
}

// UpdateSemesterRequest patches a semester. Nil fields are untouched.
type UpdateSemesterRequest struct {
	Name            *string    `json:"name" validate:"omitempty,max=100"`
	AcademicYear    *string    `json:"academic_year" validate:"omitempty,max=16"`
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	EnrollmentStart *time.Time `json:"enrollment_start"`
	EnrollmentEnd   *time.Time `json:"enrollment_end"`
	IsActive        *bool      `json:"is_active"`
}

// SemesterService manages academic terms and their enrollment windows.
type SemesterService struct {
	repo      semesterRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService constructs SemesterService.
func NewSemesterService(repo semesterRepo, v *validator.Validate, logger *zap.Logger) *SemesterService {
	if v == nil {
		v = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{repo: repo, validator: v, logger: logger}
}

// List returns semesters with pagination metadata.
func (s *SemesterService) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, *models.Pagination, error) {
	semesters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return semesters, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a semester by ID.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Create registers a new semester after checking window ordering.
func (s *SemesterService) Create(ctx context.Context, req CreateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := validateWindows(req.StartDate, req.EndDate, req.EnrollmentStart, req.EnrollmentEnd); err != nil {
		return nil, err
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	semester := &models.Semester{
		Name:            req.Name,
		AcademicYear:    req.AcademicYear,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		EnrollmentStart: req.EnrollmentStart,
		EnrollmentEnd:   req.EnrollmentEnd,
		IsActive:        isActive,
	}
	if err := s.repo.Create(ctx, semester); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "semester already exists for this academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}
	s.logger.Info("semester created", zap.String("semester_id", semester.ID), zap.String("name", semester.Name))
	return semester, nil
}

// Update patches an existing semester.
func (s *SemesterService) Update(ctx context.Context, id string, req UpdateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		semester.Name = *req.Name
	}
	if req.AcademicYear != nil {
		semester.AcademicYear = *req.AcademicYear
	}
	if req.StartDate != nil {
		semester.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		semester.EndDate = *req.EndDate
	}
	if req.EnrollmentStart != nil {
		semester.EnrollmentStart = *req.EnrollmentStart
	}
	if req.EnrollmentEnd != nil {
		semester.EnrollmentEnd = *req.EnrollmentEnd
	}
	if req.IsActive != nil {
		semester.IsActive = *req.IsActive
	}
	if err := validateWindows(semester.StartDate, semester.EndDate, semester.EnrollmentStart, semester.EnrollmentEnd); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	return semester, nil
}

// Delete removes a semester unless enrollments reference it.
func (s *SemesterService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrSemesterInUse, "")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return appErrors.Clone(appErrors.ErrSemesterInUse, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	s.logger.Info("semester deleted", zap.String("semester_id", id))
	return nil
}

func validateWindows(start, end, enrollStart, enrollEnd time.Time) error {
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	if !enrollStart.Before(enrollEnd) {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment_start must be before enrollment_end")
	}
	if enrollStart.After(start) {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment must open on or before the semester starts")
	}
	return nil
}
