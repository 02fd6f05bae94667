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

// UnitRepository provides database access for course units.
type UnitRepository struct {
	db *sqlx.DB
}

// NewUnitRepository creates a new instance of UnitRepository.
func NewUnitRepository(db *sqlx.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// List returns units based on filters with total count.
func (r *UnitRepository) List(ctx context.Context, filter models.UnitFilter) ([]models.Unit, int, error) {
	baseQuery := `FROM units WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(title) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"code":       true,
		"title":      true,
		"credits":    true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "code"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
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

	listQuery := fmt.Sprintf("SELECT id, code, title, credits, active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var units []models.Unit
	if err := r.db.SelectContext(ctx, &units, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list units: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count units: %w", err)
	}

	return units, total, nil
}

// FindByID returns a unit by identifier.
func (r *UnitRepository) FindByID(ctx context.Context, id string) (*models.Unit, error) {
	const query = `SELECT id, code, title, credits, active, created_at, updated_at FROM units WHERE id = $1 LIMIT 1`
	var unit models.Unit
	if err := r.db.GetContext(ctx, &unit, query, id); err != nil {
		return nil, err
	}
	return &unit, nil
}

// Create inserts a new unit. A duplicate code is reported as ErrDuplicate.
func (r *UnitRepository) Create(ctx context.Context, unit *models.Unit) error {
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	unit.CreatedAt = now
	unit.UpdatedAt = now

	const query = `INSERT INTO units (id, code, title, credits, active, created_at, updated_at) VALUES (:id, :code, :title, :credits, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, unit); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create unit: %w", ErrDuplicate)
		}
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

// Update updates mutable fields of a unit.
func (r *UnitRepository) Update(ctx context.Context, unit *models.Unit) error {
	unit.UpdatedAt = time.Now().UTC()
	const query = `UPDATE units SET code = :code, title = :title, credits = :credits, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, unit); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update unit: %w", ErrDuplicate)
		}
		return fmt.Errorf("update unit: %w", err)
	}
	return nil
}

// CountEnrollments returns the number of enrollments referencing a unit.
func (r *UnitRepository) CountEnrollments(ctx context.Context, unitID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE unit_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, unitID); err != nil {
		return 0, fmt.Errorf("count unit enrollments: %w", err)
	}
	return count, nil
}

// Delete removes a unit. A foreign key violation (still-referencing
// enrollments racing the count check) is reported as ErrReferenced.
func (r *UnitRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM units WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("delete unit: %w", ErrReferenced)
		}
		return fmt.Errorf("delete unit: %w", err)
	}
	return nil
}
