package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campushq/preenroll-api/internal/models"
	appErrors "github.com/campushq/preenroll-api/pkg/errors"
)

type scheduleRepository interface {
	ListDays(ctx context.Context) ([]models.Day, error)
	FindDayByName(ctx context.Context, name string) (*models.Day, error)
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
	GetOrCreateTimeSlot(ctx context.Context, startTime, endTime string) (*models.TimeSlot, error)
	GetOrCreateAvailability(ctx context.Context, dayID, timeSlotID string) (*models.Availability, error)
	FindAvailabilityDetails(ctx context.Context, ids []string) ([]models.AvailabilityDetail, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AvailabilityDetail, error)
}

// ScheduleSlot is one raw "day + time range" selection from the
// enrollment wizard.
type ScheduleSlot struct {
	DayName  string `json:"day_name" validate:"required"`
	TimeSlot string `json:"time_slot" validate:"required"`
}

// ScheduleService resolves raw schedule selections into availability rows.
type ScheduleService struct {
	repo   scheduleRepository
	logger *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(repo scheduleRepository, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, logger: logger}
}

// ListDays returns the weekday reference rows.
func (s *ScheduleService) ListDays(ctx context.Context) ([]models.Day, error) {
	days, err := s.repo.ListDays(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list days")
	}
	return days, nil
}

// ListTimeSlots returns all known time slots.
func (s *ScheduleService) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	slots, err := s.repo.ListTimeSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	return slots, nil
}

// ResolveSlots turns raw day/time-range selections into availability IDs,
// creating time slots and pairings on first use. Duplicate selections in
// the input collapse to one availability.
func (s *ScheduleService) ResolveSlots(ctx context.Context, slots []ScheduleSlot) ([]string, error) {
	seen := make(map[string]struct{}, len(slots))
	ids := make([]string, 0, len(slots))

	for _, slot := range slots {
		day, err := s.repo.FindDayByName(ctx, slot.DayName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day name: "+slot.DayName)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day")
		}

		timeRange, err := ParseTimeRange(slot.TimeSlot)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimeRange.Code, appErrors.ErrInvalidTimeRange.Status, err.Error())
		}

		timeSlot, err := s.repo.GetOrCreateTimeSlot(ctx, timeRange.Start, timeRange.End)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve time slot")
		}

		availability, err := s.repo.GetOrCreateAvailability(ctx, day.ID, timeSlot.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve availability")
		}

		if _, ok := seen[availability.ID]; ok {
			continue
		}
		seen[availability.ID] = struct{}{}
		ids = append(ids, availability.ID)
	}

	return ids, nil
}

// ValidateAvailabilityIDs checks that every referenced availability exists.
func (s *ScheduleService) ValidateAvailabilityIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	details, err := s.repo.FindAvailabilityDetails(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate availabilities")
	}
	if len(details) != len(uniqueStrings(ids)) {
		return appErrors.Clone(appErrors.ErrValidation, "one or more availability ids do not exist")
	}
	return nil
}

// AvailabilitiesForEnrollment returns the availability set of an enrollment.
func (s *ScheduleService) AvailabilitiesForEnrollment(ctx context.Context, enrollmentID string) ([]models.AvailabilityDetail, error) {
	details, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availabilities")
	}
	return details, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
