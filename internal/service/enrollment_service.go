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

type enrollmentRepo interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Exists(ctx context.Context, studentProfileID, unitID, semesterID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment, availabilityIDs []string) error
	ReplaceAvailabilities(ctx context.Context, enrollmentID string, availabilityIDs []string) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	Delete(ctx context.Context, id string) error
	ListByProfile(ctx context.Context, studentProfileID string) ([]models.EnrollmentDetail, error)
}

type unitReader interface {
	FindByID(ctx context.Context, id string) (*models.Unit, error)
}

type semesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type profileReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfileDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error)
}

type slotResolver interface {
	ResolveSlots(ctx context.Context, slots []ScheduleSlot) ([]string, error)
	ValidateAvailabilityIDs(ctx context.Context, ids []string) error
	AvailabilitiesForEnrollment(ctx context.Context, enrollmentID string) ([]models.AvailabilityDetail, error)
}

// Actor identifies the authenticated caller for ownership checks.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// EnrollRequest is the staff-facing enrollment payload, addressing the
// student profile directly. Callers send either pre-resolved
// availability IDs or raw day/time slots; slots win when both appear.
type EnrollRequest struct {
	StudentProfileID string         `json:"student_profile_id" validate:"required"`
	UnitID           string         `json:"unit_id" validate:"required"`
	SemesterID       string         `json:"semester_id" validate:"required"`
	Slots            []ScheduleSlot `json:"slots" validate:"omitempty,dive"`
	AvailabilityIDs  []string       `json:"availability_ids" validate:"omitempty,min=1"`
}

// EnrollSelfRequest is the student wizard payload. The profile is
// derived from the authenticated user.
type EnrollSelfRequest struct {
	UnitID     string         `json:"unit_id" validate:"required"`
	SemesterID string         `json:"semester_id" validate:"required"`
	Slots      []ScheduleSlot `json:"slots" validate:"required,min=1,dive"`
}

// UpdateAvailabilitiesRequest replaces the availability set of an
// existing enrollment.
type UpdateAvailabilitiesRequest struct {
	Slots           []ScheduleSlot `json:"slots" validate:"omitempty,dive"`
	AvailabilityIDs []string       `json:"availability_ids" validate:"omitempty,min=1"`
}

// EnrollmentService implements the pre-enrollment workflow.
type EnrollmentService struct {
	repo      enrollmentRepo
	units     unitReader
	semesters semesterReader
	profiles  profileReader
	schedule  slotResolver
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// WithMetrics attaches submission outcome instrumentation.
func (s *EnrollmentService) WithMetrics(m *MetricsService) *EnrollmentService {
	s.metrics = m
	return s
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepo, units unitReader, semesters semesterReader, profiles profileReader, schedule slotResolver, v *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if v == nil {
		v = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		units:     units,
		semesters: semesters,
		profiles:  profiles,
		schedule:  schedule,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

// Enroll registers a student into a unit on their behalf. The handler
// enforces the staff role, the service enforces the domain rules.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if len(req.Slots) == 0 && len(req.AvailabilityIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slots or availability_ids required")
	}
	if _, err := s.profiles.FindByID(ctx, req.StudentProfileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return s.enroll(ctx, req.StudentProfileID, req.UnitID, req.SemesterID, req.Slots, req.AvailabilityIDs)
}

// EnrollSelf registers the authenticated student into a unit using the
// wizard's raw day/time selections.
func (s *EnrollmentService) EnrollSelf(ctx context.Context, actor Actor, req EnrollSelfRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return s.enroll(ctx, profile.ID, req.UnitID, req.SemesterID, req.Slots, nil)
}

// enroll runs the shared submission pipeline: semester and window first,
// then unit, duplicate check, slot resolution, insert.
func (s *EnrollmentService) enroll(ctx context.Context, profileID, unitID, semesterID string, slots []ScheduleSlot, availabilityIDs []string) (*models.EnrollmentDetail, error) {
	semester, err := s.semesters.FindByID(ctx, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	if !semester.EnrollmentOpenAt(s.now().UTC()) {
		s.metrics.RecordEnrollment("window_closed")
		return nil, appErrors.Clone(appErrors.ErrEnrollmentClosed, "")
	}

	unit, err := s.units.FindByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}
	if !unit.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unit is not open for enrollment")
	}

	exists, err := s.repo.Exists(ctx, profileID, unitID, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		s.metrics.RecordEnrollment("duplicate")
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
	}

	if len(slots) > 0 {
		availabilityIDs, err = s.schedule.ResolveSlots(ctx, slots)
		if err != nil {
			return nil, err
		}
	} else if err := s.schedule.ValidateAvailabilityIDs(ctx, availabilityIDs); err != nil {
		return nil, err
	}
	if len(availabilityIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one schedule slot is required")
	}

	enrollment := &models.Enrollment{
		StudentProfileID: profileID,
		UnitID:           unitID,
		SemesterID:       semesterID,
		Status:           models.EnrollmentStatusActive,
	}
	if err := s.repo.Create(ctx, enrollment, availabilityIDs); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the race against a concurrent submission for the
			// same triple.
			s.metrics.RecordEnrollment("duplicate")
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.metrics.RecordEnrollment("created")
	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_profile_id", profileID),
		zap.String("unit_id", unitID),
		zap.String("semester_id", semesterID),
		zap.Int("availabilities", len(availabilityIDs)))

	return s.detail(ctx, enrollment.ID)
}

// List returns enrollments with pagination for staff views.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	details, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return details, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListMine returns the authenticated student's enrollments with their
// availability sets attached.
func (s *EnrollmentService) ListMine(ctx context.Context, actor Actor) ([]models.EnrollmentDetail, error) {
	profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	details, err := s.repo.ListByProfile(ctx, profile.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	for i := range details {
		availabilities, err := s.schedule.AvailabilitiesForEnrollment(ctx, details[i].ID)
		if err != nil {
			return nil, err
		}
		details[i].Availabilities = availabilities
	}
	return details, nil
}

// Get returns one enrollment. Students may only read their own.
func (s *EnrollmentService) Get(ctx context.Context, actor Actor, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, detail.StudentProfileID); err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateAvailabilities replaces the availability set of an enrollment.
// Either raw slots or explicit availability IDs may be supplied.
func (s *EnrollmentService) UpdateAvailabilities(ctx context.Context, actor Actor, id string, req UpdateAvailabilitiesRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if len(req.Slots) == 0 && len(req.AvailabilityIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slots or availability_ids required")
	}

	enrollment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, enrollment.StudentProfileID); err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment is not active")
	}
	if err := s.requireOpenWindow(ctx, actor, enrollment.SemesterID); err != nil {
		return nil, err
	}

	availabilityIDs := req.AvailabilityIDs
	if len(req.Slots) > 0 {
		availabilityIDs, err = s.schedule.ResolveSlots(ctx, req.Slots)
		if err != nil {
			return nil, err
		}
	} else if err := s.schedule.ValidateAvailabilityIDs(ctx, availabilityIDs); err != nil {
		return nil, err
	}
	if len(availabilityIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one schedule slot is required")
	}

	if err := s.repo.ReplaceAvailabilities(ctx, id, availabilityIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availabilities")
	}
	return s.detail(ctx, id)
}

// Cancel marks an enrollment cancelled. Students may only cancel their
// own, and only while the semester window is open.
func (s *EnrollmentService) Cancel(ctx context.Context, actor Actor, id string) error {
	enrollment, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, enrollment.StudentProfileID); err != nil {
		return err
	}
	if enrollment.Status == models.EnrollmentStatusCancelled {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment is already cancelled")
	}
	if err := s.requireOpenWindow(ctx, actor, enrollment.SemesterID); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusCancelled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}
	s.logger.Info("enrollment cancelled", zap.String("enrollment_id", id), zap.String("user_id", actor.UserID))
	return nil
}

// Delete hard-removes an enrollment and its availability links. Admin only.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}

func (s *EnrollmentService) find(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) detail(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	availabilities, err := s.schedule.AvailabilitiesForEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Availabilities = availabilities
	return detail, nil
}

// authorize permits staff unconditionally and students only when the
// enrollment belongs to their own profile.
func (s *EnrollmentService) authorize(ctx context.Context, actor Actor, studentProfileID string) error {
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleTutor {
		return nil
	}
	profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	if profile.ID != studentProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return nil
}

// requireOpenWindow blocks student mutations outside the enrollment
// window. Admins bypass the window.
func (s *EnrollmentService) requireOpenWindow(ctx context.Context, actor Actor, semesterID string) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	semester, err := s.semesters.FindByID(ctx, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	if !semester.EnrollmentOpenAt(s.now().UTC()) {
		return appErrors.Clone(appErrors.ErrEnrollmentClosed, "")
	}
	return nil
}
