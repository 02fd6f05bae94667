package dto

import "time"

// AdminDashboardResponse aggregates counts for the admin dashboard.
type AdminDashboardResponse struct {
	TotalUnits          int       `json:"total_units"`
	TotalUsers          int       `json:"total_users"`
	TotalEnrollments    int       `json:"total_enrollments"`
	ActiveNotifications int       `json:"active_notifications"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// StudentDashboardResponse aggregates counts for the student dashboard.
type StudentDashboardResponse struct {
	StudentProfileID string    `json:"student_profile_id"`
	EnrollmentCount  int       `json:"enrollment_count"`
	AvailableUnits   int       `json:"available_units"`
	SemesterCount    int       `json:"semester_count"`
	GeneratedAt      time.Time `json:"generated_at"`
}
