package models

import "time"

// StudentProfile holds student-specific attributes owned by one user.
type StudentProfile struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	Program       string    `db:"program" json:"program"`
	YearLevel     int       `db:"year_level" json:"year_level"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentProfileDetail enriches a profile with its owning user.
type StudentProfileDetail struct {
	StudentProfile
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
}

// StudentProfileFilter encapsulates search parameters for listing profiles.
type StudentProfileFilter struct {
	Program   string
	YearLevel *int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
