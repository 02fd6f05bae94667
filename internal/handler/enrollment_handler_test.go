package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/preenroll-api/internal/middleware"
	"github.com/campushq/preenroll-api/internal/models"
	"github.com/campushq/preenroll-api/internal/service"
)

type fakeEnrollmentRepo struct {
	created    *models.Enrollment
	createdIDs []string
	exists     bool
	cancelled  []string
	deleted    []string
	detailByID map[string]*models.EnrollmentDetail
}

func (f *fakeEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var details []models.EnrollmentDetail
	for _, d := range f.detailByID {
		details = append(details, *d)
	}
	return details, len(details), nil
}

func (f *fakeEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if d, ok := f.detailByID[id]; ok {
		return &d.Enrollment, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if d, ok := f.detailByID[id]; ok {
		return d, nil
	}
	if f.created != nil && f.created.ID == id {
		return &models.EnrollmentDetail{Enrollment: *f.created}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) Exists(ctx context.Context, studentProfileID, unitID, semesterID string) (bool, error) {
	return f.exists, nil
}

func (f *fakeEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment, availabilityIDs []string) error {
	enrollment.ID = "enr-1"
	enrollment.Status = models.EnrollmentStatusActive
	f.created = enrollment
	f.createdIDs = availabilityIDs
	return nil
}

func (f *fakeEnrollmentRepo) ReplaceAvailabilities(ctx context.Context, enrollmentID string, availabilityIDs []string) error {
	return nil
}

func (f *fakeEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeEnrollmentRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeEnrollmentRepo) ListByProfile(ctx context.Context, studentProfileID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

type fakeUnitReader struct{ inactive bool }

func (f *fakeUnitReader) FindByID(ctx context.Context, id string) (*models.Unit, error) {
	return &models.Unit{ID: id, Code: "SE201", Active: !f.inactive}, nil
}

type fakeSemesterReader struct{ closed bool }

func (f *fakeSemesterReader) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	now := time.Now().UTC()
	start, end := now.Add(-time.Hour), now.Add(time.Hour)
	if f.closed {
		start, end = now.Add(-2*time.Hour), now.Add(-time.Hour)
	}
	return &models.Semester{ID: id, EnrollmentStart: start, EnrollmentEnd: end}, nil
}

type fakeProfileReader struct{ missing bool }

func (f *fakeProfileReader) FindByID(ctx context.Context, id string) (*models.StudentProfileDetail, error) {
	if f.missing {
		return nil, sql.ErrNoRows
	}
	return &models.StudentProfileDetail{StudentProfile: models.StudentProfile{ID: id, UserID: "user-1"}}, nil
}

func (f *fakeProfileReader) FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error) {
	if f.missing {
		return nil, sql.ErrNoRows
	}
	return &models.StudentProfileDetail{StudentProfile: models.StudentProfile{ID: "profile-1", UserID: userID}}, nil
}

type fakeSlotResolver struct{}

func (f *fakeSlotResolver) ResolveSlots(ctx context.Context, slots []service.ScheduleSlot) ([]string, error) {
	ids := make([]string, len(slots))
	for i := range slots {
		ids[i] = "avail-" + slots[i].DayName
	}
	return ids, nil
}

func (f *fakeSlotResolver) ValidateAvailabilityIDs(ctx context.Context, ids []string) error {
	return nil
}

func (f *fakeSlotResolver) AvailabilitiesForEnrollment(ctx context.Context, enrollmentID string) ([]models.AvailabilityDetail, error) {
	return nil, nil
}

func newEnrollmentHandler(repo *fakeEnrollmentRepo, semesters *fakeSemesterReader, profiles *fakeProfileReader) *EnrollmentHandler {
	svc := service.NewEnrollmentService(repo, &fakeUnitReader{}, semesters, profiles, &fakeSlotResolver{}, nil, nil)
	return NewEnrollmentHandler(svc, nil)
}

func studentContext(t *testing.T, rec *httptest.ResponseRecorder, method, target string, body interface{}) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})
	return c
}

func TestEnrollmentCreateSelf(t *testing.T) {
	repo := &fakeEnrollmentRepo{}
	handler := newEnrollmentHandler(repo, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c := studentContext(t, rec, http.MethodPost, "/enrollments/my-enrollments", gin.H{
		"unit_id":     "unit-1",
		"semester_id": "sem-1",
		"slots": []gin.H{
			{"day_name": "Monday", "time_slot": "6:00pm - 9:00pm"},
		},
	})

	handler.CreateSelf(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "profile-1", repo.created.StudentProfileID)
}

func TestEnrollmentCreateSelfRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandler(&fakeEnrollmentRepo{}, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments/my-enrollments", bytes.NewReader(nil))

	handler.CreateSelf(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnrollmentCreateSelfClosedWindow(t *testing.T) {
	handler := newEnrollmentHandler(&fakeEnrollmentRepo{}, &fakeSemesterReader{closed: true}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c := studentContext(t, rec, http.MethodPost, "/enrollments/my-enrollments", gin.H{
		"unit_id":     "unit-1",
		"semester_id": "sem-1",
		"slots": []gin.H{
			{"day_name": "Monday", "time_slot": "18:00 - 21:00"},
		},
	})

	handler.CreateSelf(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "ENROLLMENT_CLOSED", envelope.Error.Code)
}

func TestEnrollmentCreateSelfDuplicate(t *testing.T) {
	handler := newEnrollmentHandler(&fakeEnrollmentRepo{exists: true}, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c := studentContext(t, rec, http.MethodPost, "/enrollments/my-enrollments", gin.H{
		"unit_id":     "unit-1",
		"semester_id": "sem-1",
		"slots": []gin.H{
			{"day_name": "Monday", "time_slot": "18:00 - 21:00"},
		},
	})

	handler.CreateSelf(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEnrollmentCreateSelfInvalidBody(t *testing.T) {
	handler := newEnrollmentHandler(&fakeEnrollmentRepo{}, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments/my-enrollments", bytes.NewReader([]byte("{not json")))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.CreateSelf(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnrollmentCancelOwn(t *testing.T) {
	repo := &fakeEnrollmentRepo{detailByID: map[string]*models.EnrollmentDetail{
		"enr-1": {Enrollment: models.Enrollment{
			ID:               "enr-1",
			StudentProfileID: "profile-1",
			SemesterID:       "sem-1",
			Status:           models.EnrollmentStatusActive,
		}},
	}}
	handler := newEnrollmentHandler(repo, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c := studentContext(t, rec, http.MethodDelete, "/enrollments/enr-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.Cancel(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"enr-1"}, repo.cancelled)
	assert.Empty(t, repo.deleted)
}

func TestEnrollmentCancelForeignIsForbidden(t *testing.T) {
	repo := &fakeEnrollmentRepo{detailByID: map[string]*models.EnrollmentDetail{
		"enr-1": {Enrollment: models.Enrollment{
			ID:               "enr-1",
			StudentProfileID: "someone-else",
			SemesterID:       "sem-1",
			Status:           models.EnrollmentStatusActive,
		}},
	}}
	handler := newEnrollmentHandler(repo, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c := studentContext(t, rec, http.MethodDelete, "/enrollments/enr-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.Cancel(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, repo.cancelled)
}

func TestEnrollmentPermanentDeleteRequiresAdmin(t *testing.T) {
	repo := &fakeEnrollmentRepo{detailByID: map[string]*models.EnrollmentDetail{
		"enr-1": {Enrollment: models.Enrollment{
			ID:               "enr-1",
			StudentProfileID: "profile-1",
			SemesterID:       "sem-1",
			Status:           models.EnrollmentStatusActive,
		}},
	}}
	handler := newEnrollmentHandler(repo, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c := studentContext(t, rec, http.MethodDelete, "/enrollments/enr-1?permanent=true", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.Cancel(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, repo.deleted)
	assert.Empty(t, repo.cancelled)
}

func TestEnrollmentPermanentDeleteAsAdmin(t *testing.T) {
	repo := &fakeEnrollmentRepo{detailByID: map[string]*models.EnrollmentDetail{
		"enr-1": {Enrollment: models.Enrollment{
			ID:               "enr-1",
			StudentProfileID: "profile-1",
			SemesterID:       "sem-1",
			Status:           models.EnrollmentStatusActive,
		}},
	}}
	handler := newEnrollmentHandler(repo, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c := studentContext(t, rec, http.MethodDelete, "/enrollments/enr-1?permanent=true", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.Cancel(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"enr-1"}, repo.deleted)
	assert.Empty(t, repo.cancelled)
}

func TestEnrollmentCreateWithAvailabilityIDs(t *testing.T) {
	repo := &fakeEnrollmentRepo{}
	handler := newEnrollmentHandler(repo, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c := studentContext(t, rec, http.MethodPost, "/enrollments", gin.H{
		"student_profile_id": "profile-1",
		"unit_id":            "unit-1",
		"semester_id":        "sem-1",
		"availability_ids":   []string{"avail-9"},
	})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, []string{"avail-9"}, repo.createdIDs)
}

func TestEnrollmentGetNotFound(t *testing.T) {
	handler := newEnrollmentHandler(&fakeEnrollmentRepo{}, &fakeSemesterReader{}, &fakeProfileReader{})

	rec := httptest.NewRecorder()
	c := studentContext(t, rec, http.MethodGet, "/enrollments/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
