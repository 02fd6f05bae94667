package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/preenroll-api/api/swagger"
	"github.com/campushq/preenroll-api/internal/handler"
	"github.com/campushq/preenroll-api/internal/middleware"
	"github.com/campushq/preenroll-api/internal/models"
	"github.com/campushq/preenroll-api/internal/repository"
	"github.com/campushq/preenroll-api/internal/service"
	"github.com/campushq/preenroll-api/pkg/cache"
	"github.com/campushq/preenroll-api/pkg/config"
	"github.com/campushq/preenroll-api/pkg/database"
	"github.com/campushq/preenroll-api/pkg/jobs"
	"github.com/campushq/preenroll-api/pkg/logger"
	"github.com/campushq/preenroll-api/pkg/mailer"
	corsmiddleware "github.com/campushq/preenroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/preenroll-api/pkg/middleware/requestid"
)

// @title Pre-Enrollment API
// @version 1.0.0
// @description University unit pre-enrollment service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	// Outbound email.
	var mail mailer.Mailer = mailer.NopMailer{}
	if cfg.Email.Enabled && cfg.Email.SendgridKey != "" {
		mail = mailer.NewSendgridMailer(cfg.Email.SendgridKey, cfg.Email.FromName, cfg.Email.FromAddress, logr)
	}

	// Services.
	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userService := service.NewUserService(userRepo, profileRepo, nil, logr)
	unitService := service.NewUnitService(unitRepo, nil, logr)
	semesterService := service.NewSemesterService(semesterRepo, nil, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, logr)
	metricsService := service.NewMetricsService()

	enrollmentService := service.NewEnrollmentService(enrollmentRepo, unitRepo, semesterRepo, profileRepo, scheduleService, nil, logr).
		WithMetrics(metricsService)
	exportService := service.NewExportService(enrollmentRepo, nil, nil, logr)

	var cacheService *service.CacheService
	if cacheRepo != nil {
		cacheService = service.NewCacheService(cacheRepo, cfg.Dashboard.CacheEnabled, cfg.Dashboard.CacheTTL, logr)
	} else {
		cacheService = service.NewCacheService(nil, false, 0, logr)
	}
	cacheService.WithMetrics(metricsService)
	dashboardService := service.NewDashboardService(dashboardRepo, profileRepo, cacheService, logr)

	// Notification broadcast queue. The handler is bound after the
	// service exists, so wire them through a small indirection.
	var notificationService *service.NotificationService
	broadcastQueue := jobs.NewQueue("broadcast", func(ctx context.Context, job jobs.Job) error {
		return notificationService.DeliverBroadcast(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Broadcast.Workers,
		BufferSize: cfg.Broadcast.BufferSize,
		MaxRetries: cfg.Broadcast.MaxRetries,
		RetryDelay: cfg.Broadcast.RetryDelay,
		Logger:     logr,
	})
	notificationService = service.NewNotificationService(notificationRepo, userRepo, broadcastQueue, mail, nil, logr).
		WithMetrics(metricsService)

	queueCtx, stopQueue := context.WithCancel(context.Background())
	broadcastQueue.Start(queueCtx)
	defer func() {
		stopQueue()
		broadcastQueue.Stop()
	}()

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	unitHandler := handler.NewUnitHandler(unitService)
	semesterHandler := handler.NewSemesterHandler(semesterService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService, exportService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	// Dashboard counters go stale on any successful mutation.
	protected.Use(func(c *gin.Context) {
		c.Next()
		if c.Request.Method != http.MethodGet && c.Writer.Status() < 400 {
			dashboardService.InvalidateCache(c.Request.Context())
		}
	})

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTutor)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	units := protected.Group("/units")
	{
		units.GET("", unitHandler.List)
		units.GET("/:id", unitHandler.Get)
		units.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionCreate, "unit"), unitHandler.Create)
		units.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionUpdate, "unit"), unitHandler.Update)
		units.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionDelete, "unit"), unitHandler.Delete)
	}

	semesters := protected.Group("/semesters")
	{
		semesters.GET("", semesterHandler.List)
		semesters.GET("/:id", semesterHandler.Get)
		semesters.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionCreate, "semester"), semesterHandler.Create)
		semesters.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionUpdate, "semester"), semesterHandler.Update)
		semesters.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionDelete, "semester"), semesterHandler.Delete)
	}

	protected.GET("/days", scheduleHandler.ListDays)
	protected.GET("/timeslots", scheduleHandler.ListTimeSlots)

	enrollments := protected.Group("/enrollments")
	{
		enrollments.GET("", staff, enrollmentHandler.List)
		enrollments.GET("/export", staff, enrollmentHandler.Export)
		enrollments.GET("/my-enrollments", enrollmentHandler.ListMine)
		enrollments.POST("/my-enrollments", enrollmentHandler.CreateSelf)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.POST("", staff, middleware.Audit(userRepo, models.AuditActionCreate, "enrollment"), enrollmentHandler.Create)
		enrollments.PUT("/:id", enrollmentHandler.UpdateAvailabilities)
		enrollments.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionDelete, "enrollment"), enrollmentHandler.Cancel)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/:id", notificationHandler.Get)
		notifications.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionCreate, "notification"), notificationHandler.Create)
		notifications.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionUpdate, "notification"), notificationHandler.Update)
		notifications.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionDelete, "notification"), notificationHandler.Delete)
		notifications.POST("/:id/broadcast", adminOnly, notificationHandler.Broadcast)
	}

	users := protected.Group("/users")
	{
		users.GET("", adminOnly, userHandler.List)
		users.GET("/me", userHandler.Me)
		users.GET("/:id", middleware.RBAC("ADMIN", "SELF"), userHandler.Get)
		users.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionCreate, "user"), userHandler.Create)
		users.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionUpdate, "user"), userHandler.Update)
		users.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionDelete, "user"), userHandler.Deactivate)
	}

	students := protected.Group("/students")
	{
		students.GET("", staff, userHandler.ListProfiles)
		students.GET("/me", userHandler.MyProfile)
		students.GET("/:id", staff, userHandler.GetProfile)
		students.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionUpdate, "student_profile"), userHandler.UpdateProfile)
	}

	dashboard := protected.Group("/dashboard")
	{
		dashboard.GET("/admin", staff, dashboardHandler.AdminStats)
		dashboard.GET("/student", dashboardHandler.StudentStats)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
