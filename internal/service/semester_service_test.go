package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/preenroll-api/internal/models"
	"github.com/campushq/preenroll-api/internal/repository"
	appErrors "github.com/campushq/preenroll-api/pkg/errors"
)

type mockSemesterRepo struct {
	semesters   map[string]models.Semester
	enrollments int
	deleteErr   error
	deleted     []string
}

func (m *mockSemesterRepo) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error) {
	var list []models.Semester
	for _, s := range m.semesters {
		list = append(list, s)
	}
	return list, len(list), nil
}

func (m *mockSemesterRepo) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSemesterRepo) Create(ctx context.Context, semester *models.Semester) error {
	if m.semesters == nil {
		m.semesters = make(map[string]models.Semester)
	}
	if semester.ID == "" {
		semester.ID = "new-semester"
	}
	m.semesters[semester.ID] = *semester
	return nil
}

func (m *mockSemesterRepo) Update(ctx context.Context, semester *models.Semester) error {
	m.semesters[semester.ID] = *semester
	return nil
}

func (m *mockSemesterRepo) CountEnrollments(ctx context.Context, semesterID string) (int, error) {
	return m.enrollments, nil
}

func (m *mockSemesterRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.semesters, id)
	return nil
}

func semesterRequest() CreateSemesterRequest {
	return CreateSemesterRequest{
		Name:            "Semester 1",
		AcademicYear:    "2026",
		StartDate:       time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 6, 19, 0, 0, 0, 0, time.UTC),
		EnrollmentStart: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		EnrollmentEnd:   time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestSemesterCreate(t *testing.T) {
	repo := &mockSemesterRepo{}
	svc := NewSemesterService(repo, nil, nil)

	semester, err := svc.Create(context.Background(), semesterRequest())

	require.NoError(t, err)
	assert.True(t, semester.IsActive)
	assert.Equal(t, "Semester 1", semester.Name)
}

func TestSemesterCreateRejectsInvertedDates(t *testing.T) {
	svc := NewSemesterService(&mockSemesterRepo{}, nil, nil)

	req := semesterRequest()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	_, err := svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSemesterCreateRejectsInvertedEnrollmentWindow(t *testing.T) {
	svc := NewSemesterService(&mockSemesterRepo{}, nil, nil)

	req := semesterRequest()
	req.EnrollmentStart, req.EnrollmentEnd = req.EnrollmentEnd, req.EnrollmentStart
	_, err := svc.Create(context.Background(), req)

	assert.Error(t, err)
}

func TestSemesterCreateRejectsLateEnrollmentOpen(t *testing.T) {
	svc := NewSemesterService(&mockSemesterRepo{}, nil, nil)

	req := semesterRequest()
	req.EnrollmentStart = req.StartDate.AddDate(0, 0, 7)
	req.EnrollmentEnd = req.StartDate.AddDate(0, 0, 14)
	_, err := svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrollment must open")
}

func TestSemesterUpdateRevalidatesWindows(t *testing.T) {
	repo := &mockSemesterRepo{semesters: map[string]models.Semester{}}
	svc := NewSemesterService(repo, nil, nil)
	created, err := svc.Create(context.Background(), semesterRequest())
	require.NoError(t, err)

	// Moving end_date before start_date must be caught even though
	// only one field changed.
	bad := created.StartDate.AddDate(0, 0, -1)
	_, err = svc.Update(context.Background(), created.ID, UpdateSemesterRequest{EndDate: &bad})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSemesterUpdatePartial(t *testing.T) {
	repo := &mockSemesterRepo{}
	svc := NewSemesterService(repo, nil, nil)
	created, err := svc.Create(context.Background(), semesterRequest())
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(context.Background(), created.ID, UpdateSemesterRequest{IsActive: &inactive})

	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, created.Name, updated.Name)
}

func TestSemesterDeleteGuardedByEnrollments(t *testing.T) {
	repo := &mockSemesterRepo{
		semesters:   map[string]models.Semester{"sem-1": {ID: "sem-1"}},
		enrollments: 4,
	}
	svc := NewSemesterService(repo, nil, nil)

	err := svc.Delete(context.Background(), "sem-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSemesterInUse.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestSemesterDeleteRaceAgainstNewEnrollment(t *testing.T) {
	repo := &mockSemesterRepo{
		semesters: map[string]models.Semester{"sem-1": {ID: "sem-1"}},
		deleteErr: repository.ErrReferenced,
	}
	svc := NewSemesterService(repo, nil, nil)

	err := svc.Delete(context.Background(), "sem-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSemesterInUse.Code, appErrors.FromError(err).Code)
}

func TestSemesterDeleteWithoutEnrollments(t *testing.T) {
	repo := &mockSemesterRepo{semesters: map[string]models.Semester{"sem-1": {ID: "sem-1"}}}
	svc := NewSemesterService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "sem-1"))
	assert.Equal(t, []string{"sem-1"}, repo.deleted)
}

func TestSemesterGetNotFound(t *testing.T) {
	svc := NewSemesterService(&mockSemesterRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
