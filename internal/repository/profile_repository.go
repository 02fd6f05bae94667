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

// ProfileRepository provides database access for student profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new instance of ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileDetailColumns = `sp.id, sp.user_id, sp.student_number, sp.program, sp.year_level, sp.created_at, sp.updated_at, u.email, u.full_name`

// FindByID returns a profile with user context by identifier.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.StudentProfileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles sp JOIN users u ON u.id = sp.user_id WHERE sp.id = $1 LIMIT 1`, profileDetailColumns)
	var profile models.StudentProfileDetail
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserID returns the profile owned by a user.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles sp JOIN users u ON u.id = sp.user_id WHERE sp.user_id = $1 LIMIT 1`, profileDetailColumns)
	var profile models.StudentProfileDetail
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// List returns profiles based on filters with total count.
func (r *ProfileRepository) List(ctx context.Context, filter models.StudentProfileFilter) ([]models.StudentProfileDetail, int, error) {
	base := `FROM student_profiles sp JOIN users u ON u.id = sp.user_id`
	var conditions []string
	var args []interface{}

	if filter.Program != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(sp.program) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Program))
	}
	if filter.YearLevel != nil {
		conditions = append(conditions, fmt.Sprintf("sp.year_level = $%d", len(args)+1))
		args = append(args, *filter.YearLevel)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(sp.student_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"student_number": "sp.student_number",
		"full_name":      "u.full_name",
		"created_at":     "sp.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "sp.student_number"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", profileDetailColumns, base+clause, orderBy, order, size, offset)
	var profiles []models.StudentProfileDetail
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list student profiles: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count student profiles: %w", err)
	}
	return profiles, total, nil
}

// Create inserts a new profile. A duplicate user or student number is
// reported as ErrDuplicate.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.StudentProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	const query = `INSERT INTO student_profiles (id, user_id, student_number, program, year_level, created_at, updated_at)
        VALUES (:id, :user_id, :student_number, :program, :year_level, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create student profile: %w", ErrDuplicate)
		}
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// Update updates mutable fields of a profile.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_profiles SET student_number = :student_number, program = :program, year_level = :year_level, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}
