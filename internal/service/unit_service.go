package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/preenroll-api/internal/models"
	"github.com/campushq/preenroll-api/internal/repository"
	appErrors "github.com/campushq/preenroll-api/pkg/errors"
)

type unitRepo interface {
	List(ctx context.Context, filter models.UnitFilter) ([]models.Unit, int, error)
	FindByID(ctx context.Context, id string) (*models.Unit, error)
	Create(ctx context.Context, unit *models.Unit) error
	Update(ctx context.Context, unit *models.Unit) error
	CountEnrollments(ctx context.Context, unitID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// CreateUnitRequest is the payload for creating a unit.
type CreateUnitRequest struct {
	Code    string `json:"code" validate:"required,max=16"`
	Title   string `json:"title" validate:"required,max=255"`
	Credits int    `json:"credits" validate:"required,min=1,max=60"`
	Active  *bool  `json:"active"`
}

// UpdateUnitRequest is the payload for updating a unit. Nil fields are
// left untouched.
type UpdateUnitRequest struct {
	Code    *string `json:"code" validate:"omitempty,max=16"`
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Credits *int    `json:"credits" validate:"omitempty,min=1,max=60"`
	Active  *bool   `json:"active"`
}

// UnitService manages the unit catalogue.
type UnitService struct {
	repo      unitRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUnitService constructs UnitService.
func NewUnitService(repo unitRepo, v *validator.Validate, logger *zap.Logger) *UnitService {
	if v == nil {
		v = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitService{repo: repo, validator: v, logger: logger}
}

// List returns units with pagination metadata.
func (s *UnitService) List(ctx context.Context, filter models.UnitFilter) ([]models.Unit, *models.Pagination, error) {
	units, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list units")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return units, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one unit by ID.
func (s *UnitService) Get(ctx context.Context, id string) (*models.Unit, error) {
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}
	return unit, nil
}

// Create registers a new unit.
func (s *UnitService) Create(ctx context.Context, req CreateUnitRequest) (*models.Unit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	unit := &models.Unit{Code: req.Code, Title: req.Title, Credits: req.Credits, Active: active}
	if err := s.repo.Create(ctx, unit); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "unit code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create unit")
	}
	s.logger.Info("unit created", zap.String("unit_id", unit.ID), zap.String("code", unit.Code))
	return unit, nil
}

// Update patches an existing unit.
func (s *UnitService) Update(ctx context.Context, id string, req UpdateUnitRequest) (*models.Unit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	unit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Code != nil {
		unit.Code = *req.Code
	}
	if req.Title != nil {
		unit.Title = *req.Title
	}
	if req.Credits != nil {
		unit.Credits = *req.Credits
	}
	if req.Active != nil {
		unit.Active = *req.Active
	}
	if err := s.repo.Update(ctx, unit); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "unit code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update unit")
	}
	return unit, nil
}

// Delete removes a unit unless enrollments reference it.
func (s *UnitService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrUnitInUse, "")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			// Enrollment raced in between the count and the delete.
			return appErrors.Clone(appErrors.ErrUnitInUse, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete unit")
	}
	s.logger.Info("unit deleted", zap.String("unit_id", id))
	return nil
}
