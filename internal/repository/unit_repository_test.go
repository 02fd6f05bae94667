package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/preenroll-api/internal/models"
)

func TestUnitListSearchLowercases(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUnitRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "code", "title", "credits", "active", "created_at", "updated_at"}).
		AddRow("unit-1", "SE201", "Databases", 6, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, title, credits, active, created_at, updated_at FROM units WHERE 1=1 AND (LOWER(code) LIKE $1 OR LOWER(title) LIKE $1) ORDER BY code ASC LIMIT 20 OFFSET 0")).
		WithArgs("%data%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM units WHERE 1=1")).
		WithArgs("%data%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	units, total, err := repo.List(context.Background(), models.UnitFilter{Search: "Data"})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "SE201", units[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitCreateDuplicateCodeMapsToSentinel(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUnitRepository(db)

	mock.ExpectExec("INSERT INTO units").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "units_code_key"})

	err := repo.Create(context.Background(), &models.Unit{Code: "SE201", Title: "Databases", Credits: 6})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUnitDeleteForeignKeyMapsToSentinel(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUnitRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM units WHERE id = $1")).
		WithArgs("unit-1").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "enrollments_unit_id_fkey"})

	err := repo.Delete(context.Background(), "unit-1")
	assert.ErrorIs(t, err, ErrReferenced)
}

func TestUnitCountEnrollments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUnitRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE unit_id = $1")).
		WithArgs("unit-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountEnrollments(context.Background(), "unit-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
