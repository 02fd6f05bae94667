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

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	exists      bool
	createErr   error
	created     *models.Enrollment
	createdIDs  []string
	status      map[string]models.EnrollmentStatus
	replaced    [][]string
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var list []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if filter.StudentProfileID != "" && e.StudentProfileID != filter.StudentProfileID {
			continue
		}
		list = append(list, models.EnrollmentDetail{Enrollment: e})
	}
	return list, len(list), nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, profileID, unitID, semesterID string) (bool, error) {
	return m.exists, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment, availabilityIDs []string) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enrollment"
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	m.createdIDs = availabilityIDs
	return nil
}

func (m *mockEnrollmentRepo) ReplaceAvailabilities(ctx context.Context, enrollmentID string, availabilityIDs []string) error {
	m.replaced = append(m.replaced, availabilityIDs)
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if m.status == nil {
		m.status = make(map[string]models.EnrollmentStatus)
	}
	m.status[id] = status
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
		m.enrollments[id] = e
	}
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.enrollments, id)
	return nil
}

func (m *mockEnrollmentRepo) ListByProfile(ctx context.Context, studentProfileID string) ([]models.EnrollmentDetail, error) {
	list, _, err := m.List(ctx, models.EnrollmentFilter{StudentProfileID: studentProfileID})
	return list, err
}

type mockUnitReader struct {
	inactive bool
}

func (m *mockUnitReader) FindByID(ctx context.Context, id string) (*models.Unit, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Unit{ID: id, Code: "COMP101", Active: !m.inactive}, nil
}

type mockSemesterReader struct {
	window func() (time.Time, time.Time)
}

func (m *mockSemesterReader) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	start, end := m.window()
	return &models.Semester{ID: id, Name: "Semester 1", EnrollmentStart: start, EnrollmentEnd: end}, nil
}

type mockProfileReader struct {
	byUser map[string]*models.StudentProfileDetail
}

func (m *mockProfileReader) FindByID(ctx context.Context, id string) (*models.StudentProfileDetail, error) {
	for _, p := range m.byUser {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileReader) FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error) {
	if p, ok := m.byUser[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type mockSlotResolver struct {
	ids     []string
	err     error
	details []models.AvailabilityDetail
}

func (m *mockSlotResolver) ResolveSlots(ctx context.Context, slots []ScheduleSlot) ([]string, error) {
	return m.ids, m.err
}

func (m *mockSlotResolver) ValidateAvailabilityIDs(ctx context.Context, ids []string) error {
	return nil
}

func (m *mockSlotResolver) AvailabilitiesForEnrollment(ctx context.Context, enrollmentID string) ([]models.AvailabilityDetail, error) {
	return m.details, nil
}

func openWindow() (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.Add(-24 * time.Hour), now.Add(24 * time.Hour)
}

func closedWindow() (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.Add(-48 * time.Hour), now.Add(-24 * time.Hour)
}

func newEnrollmentService(repo *mockEnrollmentRepo, semesters *mockSemesterReader, profiles *mockProfileReader, resolver *mockSlotResolver) *EnrollmentService {
	if semesters == nil {
		semesters = &mockSemesterReader{window: openWindow}
	}
	if profiles == nil {
		profiles = &mockProfileReader{byUser: map[string]*models.StudentProfileDetail{
			"user-1": {StudentProfile: models.StudentProfile{ID: "profile-1", UserID: "user-1"}},
		}}
	}
	if resolver == nil {
		resolver = &mockSlotResolver{ids: []string{"avail-1"}}
	}
	return NewEnrollmentService(repo, &mockUnitReader{}, semesters, profiles, resolver, nil, nil)
}

func TestEnrollSelfCreatesEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, nil, nil, &mockSlotResolver{ids: []string{"avail-1", "avail-2"}})

	detail, err := svc.EnrollSelf(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, EnrollSelfRequest{
		UnitID:     "unit-1",
		SemesterID: "sem-1",
		Slots:      []ScheduleSlot{{DayName: "Monday", TimeSlot: "6:00pm - 9:00pm"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "profile-1", detail.StudentProfileID)
	assert.Equal(t, models.EnrollmentStatusActive, detail.Status)
	assert.Equal(t, []string{"avail-1", "avail-2"}, repo.createdIDs)
	assert.NotEmpty(t, repo.created.ID)
}

func TestEnrollSelfRejectsDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{exists: true}
	svc := newEnrollmentService(repo, nil, nil, nil)

	_, err := svc.EnrollSelf(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, EnrollSelfRequest{
		UnitID:     "unit-1",
		SemesterID: "sem-1",
		Slots:      []ScheduleSlot{{DayName: "Monday", TimeSlot: "6:00pm - 9:00pm"}},
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
}

func TestEnrollSelfRaceFallsBackToConflict(t *testing.T) {
	repo := &mockEnrollmentRepo{createErr: repository.ErrDuplicate}
	svc := newEnrollmentService(repo, nil, nil, nil)

	_, err := svc.EnrollSelf(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, EnrollSelfRequest{
		UnitID:     "unit-1",
		SemesterID: "sem-1",
		Slots:      []ScheduleSlot{{DayName: "Monday", TimeSlot: "6:00pm - 9:00pm"}},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
}

func TestEnrollSelfRejectsClosedWindow(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, &mockSemesterReader{window: closedWindow}, nil, nil)

	_, err := svc.EnrollSelf(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, EnrollSelfRequest{
		UnitID:     "unit-1",
		SemesterID: "sem-1",
		Slots:      []ScheduleSlot{{DayName: "Monday", TimeSlot: "6:00pm - 9:00pm"}},
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrEnrollmentClosed.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
	assert.Nil(t, repo.created)
}

func TestEnrollSelfRejectsInactiveUnit(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, nil, nil, nil)
	svc.units = &mockUnitReader{inactive: true}

	_, err := svc.EnrollSelf(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, EnrollSelfRequest{
		UnitID:     "unit-1",
		SemesterID: "sem-1",
		Slots:      []ScheduleSlot{{DayName: "Monday", TimeSlot: "6:00pm - 9:00pm"}},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollSelfWithoutProfile(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, nil, &mockProfileReader{byUser: map[string]*models.StudentProfileDetail{}}, nil)

	_, err := svc.EnrollSelf(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, EnrollSelfRequest{
		UnitID:     "unit-1",
		SemesterID: "sem-1",
		Slots:      []ScheduleSlot{{DayName: "Monday", TimeSlot: "6:00pm - 9:00pm"}},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEnrollAdminPathLooksUpProfileByID(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, nil, nil, nil)

	detail, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentProfileID: "profile-1",
		UnitID:           "unit-1",
		SemesterID:       "sem-1",
		Slots:            []ScheduleSlot{{DayName: "Monday", TimeSlot: "6:00pm - 9:00pm"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "profile-1", detail.StudentProfileID)
}

func TestEnrollAcceptsAvailabilityIDs(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, nil, nil, &mockSlotResolver{ids: []string{"resolver-should-not-win"}})

	detail, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentProfileID: "profile-1",
		UnitID:           "unit-1",
		SemesterID:       "sem-1",
		AvailabilityIDs:  []string{"avail-9"},
	})

	require.NoError(t, err)
	assert.Equal(t, "profile-1", detail.StudentProfileID)
	assert.Equal(t, []string{"avail-9"}, repo.createdIDs)
}

func TestEnrollRequiresSlotsOrAvailabilityIDs(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, nil, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentProfileID: "profile-1",
		UnitID:           "unit-1",
		SemesterID:       "sem-1",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestEnrollClosedWindowReportedBeforeUnknownUnit(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, &mockSemesterReader{window: closedWindow}, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentProfileID: "profile-1",
		UnitID:           "missing",
		SemesterID:       "sem-1",
		AvailabilityIDs:  []string{"avail-1"},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEnrollmentClosed.Code, appErrors.FromError(err).Code)
}

func TestCancelRequiresOwnership(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enroll-1": {ID: "enroll-1", StudentProfileID: "profile-2", SemesterID: "sem-1", Status: models.EnrollmentStatusActive},
	}}
	svc := newEnrollmentService(repo, nil, nil, nil)

	err := svc.Cancel(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, "enroll-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCancelOwnEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enroll-1": {ID: "enroll-1", StudentProfileID: "profile-1", SemesterID: "sem-1", Status: models.EnrollmentStatusActive},
	}}
	svc := newEnrollmentService(repo, nil, nil, nil)

	err := svc.Cancel(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, "enroll-1")

	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, repo.status["enroll-1"])
}

func TestCancelOutsideWindowBlockedForStudents(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enroll-1": {ID: "enroll-1", StudentProfileID: "profile-1", SemesterID: "sem-1", Status: models.EnrollmentStatusActive},
	}}
	svc := newEnrollmentService(repo, &mockSemesterReader{window: closedWindow}, nil, nil)

	err := svc.Cancel(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, "enroll-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEnrollmentClosed.Code, appErrors.FromError(err).Code)
}

func TestCancelOutsideWindowAllowedForAdmin(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enroll-1": {ID: "enroll-1", StudentProfileID: "profile-1", SemesterID: "sem-1", Status: models.EnrollmentStatusActive},
	}}
	svc := newEnrollmentService(repo, &mockSemesterReader{window: closedWindow}, nil, nil)

	err := svc.Cancel(context.Background(), Actor{UserID: "admin-1", Role: models.RoleAdmin}, "enroll-1")

	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, repo.status["enroll-1"])
}

func TestUpdateAvailabilitiesReplacesSet(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enroll-1": {ID: "enroll-1", StudentProfileID: "profile-1", SemesterID: "sem-1", Status: models.EnrollmentStatusActive},
	}}
	resolver := &mockSlotResolver{ids: []string{"avail-9"}}
	svc := newEnrollmentService(repo, nil, nil, resolver)

	_, err := svc.UpdateAvailabilities(context.Background(), Actor{UserID: "user-1", Role: models.RoleStudent}, "enroll-1", UpdateAvailabilitiesRequest{
		Slots: []ScheduleSlot{{DayName: "Friday", TimeSlot: "10:00 - 12:00"}},
	})

	require.NoError(t, err)
	require.Len(t, repo.replaced, 1)
	assert.Equal(t, []string{"avail-9"}, repo.replaced[0])
}

func TestGetUnknownEnrollment(t *testing.T) {
	svc := newEnrollmentService(&mockEnrollmentRepo{}, nil, nil, nil)

	_, err := svc.Get(context.Background(), Actor{UserID: "user-1", Role: models.RoleAdmin}, "missing")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
