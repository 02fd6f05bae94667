package models

import "time"

// Day is one of the fixed weekday reference rows.
type Day struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
}

// TimeSlot is a named time range, stored as 24-hour "HH:MM" strings.
// Rows are created lazily the first time a range is requested and are
// never mutated afterwards.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Availability pairs one Day with one TimeSlot. The (day, slot) pairing
// is unique and shared across enrollments.
type Availability struct {
	ID         string    `db:"id" json:"id"`
	DayID      string    `db:"day_id" json:"day_id"`
	TimeSlotID string    `db:"time_slot_id" json:"time_slot_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AvailabilityDetail flattens an availability with its day and time slot.
type AvailabilityDetail struct {
	Availability
	DayName   string `db:"day_name" json:"day_name"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}
