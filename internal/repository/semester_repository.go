package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/preenroll-api/internal/models"
)

// SemesterRepository provides database access for academic semesters.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository creates a new instance of SemesterRepository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

const semesterColumns = `id, name, academic_year, start_date, end_date, enrollment_start, enrollment_end, is_active, created_at, updated_at`

// List returns semesters based on filters with total count.
func (r *SemesterRepository) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error) {
	baseQuery := `FROM semesters WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"start_date":       true,
		"enrollment_start": true,
		"name":             true,
		"created_at":       true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_date"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", semesterColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list semesters: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count semesters: %w", err)
	}

	return semesters, total, nil
}

// FindByID returns a semester by identifier.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters WHERE id = $1 LIMIT 1`, semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// Create inserts a new semester record.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	semester.CreatedAt = now
	semester.UpdatedAt = now

	const query = `INSERT INTO semesters (id, name, academic_year, start_date, end_date, enrollment_start, enrollment_end, is_active, created_at, updated_at)
        VALUES (:id, :name, :academic_year, :start_date, :end_date, :enrollment_start, :enrollment_end, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

// Update updates mutable fields of a semester.
func (r *SemesterRepository) Update(ctx context.Context, semester *models.Semester) error {
	semester.UpdatedAt = time.Now().UTC()
	const query = `UPDATE semesters SET name = :name, academic_year = :academic_year, start_date = :start_date, end_date = :end_date,
        enrollment_start = :enrollment_start, enrollment_end = :enrollment_end, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("update semester: %w", err)
	}
	return nil
}

// CountEnrollments returns the number of enrollments referencing a semester.
func (r *SemesterRepository) CountEnrollments(ctx context.Context, semesterID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE semester_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, semesterID); err != nil {
		return 0, fmt.Errorf("count semester enrollments: %w", err)
	}
	return count, nil
}

// Delete removes a semester.
func (r *SemesterRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM semesters WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("delete semester: %w", ErrReferenced)
		}
		return fmt.Errorf("delete semester: %w", err)
	}
	return nil
}
