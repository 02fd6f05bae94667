package models

import "time"

// Semester models an academic term with its enrollment window.
type Semester struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	AcademicYear    string    `db:"academic_year" json:"academic_year"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	EnrollmentStart time.Time `db:"enrollment_start" json:"enrollment_start"`
	EnrollmentEnd   time.Time `db:"enrollment_end" json:"enrollment_end"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentOpenAt reports whether new enrollments are accepted at the
// given instant.
func (s Semester) EnrollmentOpenAt(now time.Time) bool {
	return !now.Before(s.EnrollmentStart) && !now.After(s.EnrollmentEnd)
}

// SemesterFilter defines filters supported by semester list endpoints.
type SemesterFilter struct {
	AcademicYear string
	IsActive     *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
