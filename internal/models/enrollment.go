package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment ties a student profile, a unit and a semester together.
// At most one row exists per (student_profile_id, unit_id, semester_id),
// enforced by a database uniqueness constraint.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentProfileID string           `db:"student_profile_id" json:"student_profile_id"`
	UnitID           string           `db:"unit_id" json:"unit_id"`
	SemesterID       string           `db:"semester_id" json:"semester_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt       time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student, unit and semester
// context plus the linked availability set.
type EnrollmentDetail struct {
	Enrollment
	StudentName    string               `db:"student_name" json:"student_name"`
	StudentNumber  string               `db:"student_number" json:"student_number"`
	UnitCode       string               `db:"unit_code" json:"unit_code"`
	UnitTitle      string               `db:"unit_title" json:"unit_title"`
	SemesterName   string               `db:"semester_name" json:"semester_name"`
	Availabilities []AvailabilityDetail `db:"-" json:"availabilities"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentProfileID string
	UnitID           string
	SemesterID       string
	Status           EnrollmentStatus
	Page             int
	PageSize         int
	SortBy           string
	SortOrder        string
}
