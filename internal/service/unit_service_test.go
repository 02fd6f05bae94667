package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/preenroll-api/internal/models"
	"github.com/campushq/preenroll-api/internal/repository"
	appErrors "github.com/campushq/preenroll-api/pkg/errors"
)

type mockUnitRepo struct {
	units       map[string]models.Unit
	enrollments map[string]int
	createErr   error
	deleteErr   error
	deleted     []string
}

func (m *mockUnitRepo) List(ctx context.Context, filter models.UnitFilter) ([]models.Unit, int, error) {
	var list []models.Unit
	for _, u := range m.units {
		list = append(list, u)
	}
	return list, len(list), nil
}

func (m *mockUnitRepo) FindByID(ctx context.Context, id string) (*models.Unit, error) {
	if u, ok := m.units[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUnitRepo) Create(ctx context.Context, unit *models.Unit) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.units == nil {
		m.units = make(map[string]models.Unit)
	}
	if unit.ID == "" {
		unit.ID = "new-unit"
	}
	m.units[unit.ID] = *unit
	return nil
}

func (m *mockUnitRepo) Update(ctx context.Context, unit *models.Unit) error {
	m.units[unit.ID] = *unit
	return nil
}

func (m *mockUnitRepo) CountEnrollments(ctx context.Context, unitID string) (int, error) {
	return m.enrollments[unitID], nil
}

func (m *mockUnitRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.units, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func TestUnitCreate(t *testing.T) {
	repo := &mockUnitRepo{}
	svc := NewUnitService(repo, nil, nil)

	unit, err := svc.Create(context.Background(), CreateUnitRequest{Code: "COMP101", Title: "Programming Fundamentals", Credits: 6})

	require.NoError(t, err)
	assert.True(t, unit.Active)
	assert.Equal(t, "COMP101", unit.Code)
}

func TestUnitCreateDuplicateCode(t *testing.T) {
	repo := &mockUnitRepo{createErr: repository.ErrDuplicate}
	svc := NewUnitService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateUnitRequest{Code: "COMP101", Title: "Programming Fundamentals", Credits: 6})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUnitCreateValidation(t *testing.T) {
	svc := NewUnitService(&mockUnitRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateUnitRequest{Title: "No code"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUnitDeleteGuardedByEnrollments(t *testing.T) {
	repo := &mockUnitRepo{
		units:       map[string]models.Unit{"unit-1": {ID: "unit-1", Code: "COMP101"}},
		enrollments: map[string]int{"unit-1": 3},
	}
	svc := NewUnitService(repo, nil, nil)

	err := svc.Delete(context.Background(), "unit-1")

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnitInUse.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
	assert.Empty(t, repo.deleted)
}

func TestUnitDeleteRaceAgainstNewEnrollment(t *testing.T) {
	repo := &mockUnitRepo{
		units:     map[string]models.Unit{"unit-1": {ID: "unit-1", Code: "COMP101"}},
		deleteErr: repository.ErrReferenced,
	}
	svc := NewUnitService(repo, nil, nil)

	err := svc.Delete(context.Background(), "unit-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnitInUse.Code, appErrors.FromError(err).Code)
}

func TestUnitDeleteWithoutEnrollments(t *testing.T) {
	repo := &mockUnitRepo{units: map[string]models.Unit{"unit-1": {ID: "unit-1", Code: "COMP101"}}}
	svc := NewUnitService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "unit-1"))
	assert.Equal(t, []string{"unit-1"}, repo.deleted)
}

func TestUnitUpdatePartial(t *testing.T) {
	repo := &mockUnitRepo{units: map[string]models.Unit{"unit-1": {ID: "unit-1", Code: "COMP101", Title: "Old", Credits: 6, Active: true}}}
	svc := NewUnitService(repo, nil, nil)

	title := "Programming Fundamentals"
	active := false
	unit, err := svc.Update(context.Background(), "unit-1", UpdateUnitRequest{Title: &title, Active: &active})

	require.NoError(t, err)
	assert.Equal(t, "COMP101", unit.Code)
	assert.Equal(t, title, unit.Title)
	assert.False(t, unit.Active)
}
