package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/preenroll-api/internal/dto"
	appErrors "github.com/campushq/preenroll-api/pkg/errors"
)

type dashboardRepo interface {
	CountUnits(ctx context.Context) (int, error)
	CountActiveUnits(ctx context.Context) (int, error)
	CountUsers(ctx context.Context) (int, error)
	CountEnrollments(ctx context.Context) (int, error)
	CountEnrollmentsByProfile(ctx context.Context, studentProfileID string) (int, error)
	CountActiveNotifications(ctx context.Context) (int, error)
	CountSemesters(ctx context.Context) (int, error)
}

const (
	adminDashboardCacheKey     = "dashboard:admin"
	studentDashboardCachePfx   = "dashboard:student:"
	dashboardInvalidatePattern = "dashboard:*"
)

// DashboardService computes dashboard statistics with optional caching.
type DashboardService struct {
	repo     dashboardRepo
	profiles profileReader
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(repo dashboardRepo, profiles profileReader, cache *CacheService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewCacheService(nil, false, 0, logger)
	}
	return &DashboardService{repo: repo, profiles: profiles, cache: cache, logger: logger, now: time.Now}
}

// AdminStats aggregates the counters shown on the admin dashboard.
func (s *DashboardService) AdminStats(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	var cached dto.AdminDashboardResponse
	if err := s.cache.Get(ctx, adminDashboardCacheKey, &cached); err == nil {
		return &cached, nil
	}

	units, err := s.repo.CountUnits(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count units")
	}
	users, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	enrollments, err := s.repo.CountEnrollments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	notifications, err := s.repo.CountActiveNotifications(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}

	resp := &dto.AdminDashboardResponse{
		TotalUnits:          units,
		TotalUsers:          users,
		TotalEnrollments:    enrollments,
		ActiveNotifications: notifications,
		GeneratedAt:         s.now().UTC(),
	}
	s.cache.Set(ctx, adminDashboardCacheKey, resp)
	return resp, nil
}

// StudentStats aggregates the counters shown on a student's dashboard.
func (s *DashboardService) StudentStats(ctx context.Context, actor Actor) (*dto.StudentDashboardResponse, error) {
	profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	cacheKey := studentDashboardCachePfx + profile.ID
	var cached dto.StudentDashboardResponse
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	enrollments, err := s.repo.CountEnrollmentsByProfile(ctx, profile.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	availableUnits, err := s.repo.CountActiveUnits(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count units")
	}
	semesters, err := s.repo.CountSemesters(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count semesters")
	}

	resp := &dto.StudentDashboardResponse{
		StudentProfileID: profile.ID,
		EnrollmentCount:  enrollments,
		AvailableUnits:   availableUnits,
		SemesterCount:    semesters,
		GeneratedAt:      s.now().UTC(),
	}
	s.cache.Set(ctx, cacheKey, resp)
	return resp, nil
}

// InvalidateCache drops all cached dashboard entries. Call after
// writes that change the counts.
func (s *DashboardService) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx, dashboardInvalidatePattern)
}
