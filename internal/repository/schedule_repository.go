package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/preenroll-api/internal/models"
)

// ScheduleRepository handles persistence of days, time slots and
// availability pairings.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListDays returns the weekday reference rows in display order.
func (r *ScheduleRepository) ListDays(ctx context.Context) ([]models.Day, error) {
	const query = `SELECT id, name, sort_order FROM days ORDER BY sort_order`
	var days []models.Day
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

// FindDayByName returns a weekday row by its name, case-insensitively.
func (r *ScheduleRepository) FindDayByName(ctx context.Context, name string) (*models.Day, error) {
	const query = `SELECT id, name, sort_order FROM days WHERE LOWER(name) = $1 LIMIT 1`
	var day models.Day
	if err := r.db.GetContext(ctx, &day, query, strings.ToLower(name)); err != nil {
		return nil, err
	}
	return &day, nil
}

// ListTimeSlots returns all known time slots ordered by start time.
func (r *ScheduleRepository) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	const query = `SELECT id, start_time, end_time, created_at FROM time_slots ORDER BY start_time, end_time`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// FindTimeSlot returns the slot matching the normalized time range.
func (r *ScheduleRepository) FindTimeSlot(ctx context.Context, startTime, endTime string) (*models.TimeSlot, error) {
	const query = `SELECT id, start_time, end_time, created_at FROM time_slots WHERE start_time = $1 AND end_time = $2 LIMIT 1`
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, startTime, endTime); err != nil {
		return nil, err
	}
	return &slot, nil
}

// GetOrCreateTimeSlot returns the slot for the range, creating it on
// first use. A concurrent create of the same range is resolved by
// re-fetching on the unique violation.
func (r *ScheduleRepository) GetOrCreateTimeSlot(ctx context.Context, startTime, endTime string) (*models.TimeSlot, error) {
	slot, err := r.FindTimeSlot(ctx, startTime, endTime)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find time slot: %w", err)
	}

	created := &models.TimeSlot{
		ID:        uuid.NewString(),
		StartTime: startTime,
		EndTime:   endTime,
		CreatedAt: time.Now().UTC(),
	}
	const insert = `INSERT INTO time_slots (id, start_time, end_time, created_at) VALUES (:id, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, created); err != nil {
		if isUniqueViolation(err) {
			slot, err := r.FindTimeSlot(ctx, startTime, endTime)
			if err != nil {
				return nil, fmt.Errorf("refetch time slot: %w", err)
			}
			return slot, nil
		}
		return nil, fmt.Errorf("create time slot: %w", err)
	}
	return created, nil
}

// FindAvailability returns the pairing of a day and a time slot.
func (r *ScheduleRepository) FindAvailability(ctx context.Context, dayID, timeSlotID string) (*models.Availability, error) {
	const query = `SELECT id, day_id, time_slot_id, created_at FROM availabilities WHERE day_id = $1 AND time_slot_id = $2 LIMIT 1`
	var availability models.Availability
	if err := r.db.GetContext(ctx, &availability, query, dayID, timeSlotID); err != nil {
		return nil, err
	}
	return &availability, nil
}

// GetOrCreateAvailability returns the (day, slot) pairing, creating the
// row on demand. Two concurrent requests creating the same pairing are
// acceptable: the loser of the race re-fetches the winner's row.
func (r *ScheduleRepository) GetOrCreateAvailability(ctx context.Context, dayID, timeSlotID string) (*models.Availability, error) {
	availability, err := r.FindAvailability(ctx, dayID, timeSlotID)
	if err == nil {
		return availability, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find availability: %w", err)
	}

	created := &models.Availability{
		ID:         uuid.NewString(),
		DayID:      dayID,
		TimeSlotID: timeSlotID,
		CreatedAt:  time.Now().UTC(),
	}
	const insert = `INSERT INTO availabilities (id, day_id, time_slot_id, created_at) VALUES (:id, :day_id, :time_slot_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, created); err != nil {
		if isUniqueViolation(err) {
			availability, err := r.FindAvailability(ctx, dayID, timeSlotID)
			if err != nil {
				return nil, fmt.Errorf("refetch availability: %w", err)
			}
			return availability, nil
		}
		return nil, fmt.Errorf("create availability: %w", err)
	}
	return created, nil
}

// FindAvailabilityDetails resolves a set of availability IDs, returning
// the rows flattened with day name and time range.
func (r *ScheduleRepository) FindAvailabilityDetails(ctx context.Context, ids []string) ([]models.AvailabilityDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT a.id, a.day_id, a.time_slot_id, a.created_at,
        d.name AS day_name, ts.start_time, ts.end_time
        FROM availabilities a
        JOIN days d ON d.id = a.day_id
        JOIN time_slots ts ON ts.id = a.time_slot_id
        WHERE a.id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build availability query: %w", err)
	}
	query = r.db.Rebind(query)
	var details []models.AvailabilityDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("find availability details: %w", err)
	}
	return details, nil
}

// ListByEnrollment returns the availability set linked to an enrollment.
func (r *ScheduleRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AvailabilityDetail, error) {
	const query = `SELECT a.id, a.day_id, a.time_slot_id, a.created_at,
        d.name AS day_name, ts.start_time, ts.end_time
        FROM enrollment_availabilities ea
        JOIN availabilities a ON a.id = ea.availability_id
        JOIN days d ON d.id = a.day_id
        JOIN time_slots ts ON ts.id = a.time_slot_id
        WHERE ea.enrollment_id = $1
        ORDER BY d.sort_order, ts.start_time`
	var details []models.AvailabilityDetail
	if err := r.db.SelectContext(ctx, &details, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment availabilities: %w", err)
	}
	return details, nil
}
