package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/preenroll-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments and their
// availability links.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN student_profiles sp ON sp.id = e.student_profile_id
LEFT JOIN users u ON u.id = sp.user_id
LEFT JOIN units un ON un.id = e.unit_id
LEFT JOIN semesters s ON s.id = e.semester_id`
	var conditions []string
	var args []interface{}

	if filter.StudentProfileID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_profile_id = $%d", len(args)+1))
		args = append(args, filter.StudentProfileID)
	}
	if filter.UnitID != "" {
		conditions = append(conditions, fmt.Sprintf("e.unit_id = $%d", len(args)+1))
		args = append(args, filter.UnitID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("e.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "u.full_name",
		"unit_code":    "un.code",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "enrolled_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_profile_id, e.unit_id, e.semester_id, e.status, e.enrolled_at, e.created_at, e.updated_at,
        u.full_name AS student_name, sp.student_number, un.code AS unit_code, un.title AS unit_title, s.name AS semester_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_profile_id, unit_id, semester_id, status, enrolled_at, created_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_profile_id, e.unit_id, e.semester_id, e.status, e.enrolled_at, e.created_at, e.updated_at,
        u.full_name AS student_name, sp.student_number, un.code AS unit_code, un.title AS unit_title, s.name AS semester_name
        FROM enrollments e
        LEFT JOIN student_profiles sp ON sp.id = e.student_profile_id
        LEFT JOIN users u ON u.id = sp.user_id
        LEFT JOIN units un ON un.id = e.unit_id
        LEFT JOIN semesters s ON s.id = e.semester_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Exists checks whether an enrollment already exists for the triple.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentProfileID, unitID, semesterID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_profile_id = $1 AND unit_id = $2 AND semester_id = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentProfileID, unitID, semesterID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment and its availability links in one
// transaction. A unique violation on the (student, unit, semester)
// triple is reported as ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment, availabilityIDs []string) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO enrollments (id, student_profile_id, unit_id, semester_id, status, enrolled_at, created_at, updated_at)
        VALUES (:id, :student_profile_id, :unit_id, :semester_id, :status, :enrolled_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create enrollment: %w", ErrDuplicate)
		}
		return fmt.Errorf("create enrollment: %w", err)
	}

	const link = `INSERT INTO enrollment_availabilities (enrollment_id, availability_id) VALUES ($1, $2)`
	for _, availabilityID := range availabilityIDs {
		if _, err := tx.ExecContext(ctx, link, enrollment.ID, availabilityID); err != nil {
			return fmt.Errorf("link availability: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment tx: %w", err)
	}
	return nil
}

// ReplaceAvailabilities swaps the availability set linked to an enrollment.
func (r *EnrollmentRepository) ReplaceAvailabilities(ctx context.Context, enrollmentID string, availabilityIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin availability tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollment_availabilities WHERE enrollment_id = $1`, enrollmentID); err != nil {
		return fmt.Errorf("clear availabilities: %w", err)
	}
	const link = `INSERT INTO enrollment_availabilities (enrollment_id, availability_id) VALUES ($1, $2)`
	for _, availabilityID := range availabilityIDs {
		if _, err := tx.ExecContext(ctx, link, enrollmentID, availabilityID); err != nil {
			return fmt.Errorf("link availability: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET updated_at = $2 WHERE id = $1`, enrollmentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit availability tx: %w", err)
	}
	return nil
}

// UpdateStatus updates the lifecycle status of an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// Delete removes an enrollment and its availability links.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollment_availabilities WHERE enrollment_id = $1`, id); err != nil {
		return fmt.Errorf("delete availability links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

// ListByProfile returns all enrollments belonging to a student profile.
func (r *EnrollmentRepository) ListByProfile(ctx context.Context, studentProfileID string) ([]models.EnrollmentDetail, error) {
	details, _, err := r.List(ctx, models.EnrollmentFilter{StudentProfileID: studentProfileID, PageSize: 100})
	return details, err
}
