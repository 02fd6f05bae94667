package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DashboardRepository runs the aggregate count queries backing the
// admin and student dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountUnits returns the total number of units.
func (r *DashboardRepository) CountUnits(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM units`)
}

// CountActiveUnits returns the number of units open for enrollment.
func (r *DashboardRepository) CountActiveUnits(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM units WHERE active = TRUE`)
}

// CountUsers returns the total number of users.
func (r *DashboardRepository) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users`)
}

// CountEnrollments returns the total number of enrollments.
func (r *DashboardRepository) CountEnrollments(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM enrollments`)
}

// CountEnrollmentsByProfile returns the enrollments of one student.
func (r *DashboardRepository) CountEnrollmentsByProfile(ctx context.Context, studentProfileID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE student_profile_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentProfileID); err != nil {
		return 0, fmt.Errorf("count profile enrollments: %w", err)
	}
	return count, nil
}

// CountActiveNotifications returns the number of active notifications.
func (r *DashboardRepository) CountActiveNotifications(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM notifications WHERE active = TRUE`)
}

// CountSemesters returns the total number of semesters.
func (r *DashboardRepository) CountSemesters(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM semesters`)
}

func (r *DashboardRepository) count(ctx context.Context, query string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("dashboard count: %w", err)
	}
	return count, nil
}
