package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/teacher-reports-api/api/swagger"
	"github.com/noah-isme/teacher-reports-api/internal/handler"
	"github.com/noah-isme/teacher-reports-api/internal/middleware"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	"github.com/noah-isme/teacher-reports-api/internal/repository"
	"github.com/noah-isme/teacher-reports-api/internal/service"
	"github.com/noah-isme/teacher-reports-api/pkg/cache"
	"github.com/noah-isme/teacher-reports-api/pkg/config"
	"github.com/noah-isme/teacher-reports-api/pkg/database"
	"github.com/noah-isme/teacher-reports-api/pkg/jobs"
	"github.com/noah-isme/teacher-reports-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/teacher-reports-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/teacher-reports-api/pkg/middleware/requestid"
	"github.com/noah-isme/teacher-reports-api/pkg/storage"
)

// @title Teacher Reports API
// @version 1.0.0
// @description Intake, review and analytics service for teacher activity reports
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	submissionRepo := repository.NewSubmissionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Shared infrastructure services.
	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)
	}

	validate := validator.New()
	formValidator := service.NewFormValidator()

	// Domain services.
	cleaningSvc := service.NewCleaningService(metricsSvc, logr)
	duplicateSvc := service.NewDuplicateService(cfg.Analytics.DuplicateThreshold, metricsSvc, logr)
	analyticsSvc := service.NewAnalyticsService(
		submissionRepo, analyticsRepo, cleaningSvc, duplicateSvc,
		cacheSvc, cfg.Analytics.CacheTTL, metricsSvc, logr,
	)
	submissionSvc := service.NewSubmissionService(
		submissionRepo, activityRepo, instructorRepo, formValidator,
		auditRepo, analyticsSvc, metricsSvc, logr,
		cfg.Intake.WhitelistEnforced, cfg.Intake.CorrectionTTL,
	)
	instructorSvc := service.NewInstructorService(instructorRepo, formValidator, auditRepo, logr)
	dashboardSvc := service.NewDashboardService(
		analyticsRepo, activityRepo, instructorRepo,
		cacheSvc, cfg.Dashboard.CacheTTL, logr,
	)
	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
	})
	userSvc := service.NewUserService(userRepo, formValidator, logr)
	auditSvc := service.NewAuditService(auditRepo)

	// Export pipeline.
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(analyticsSvc, cfg.Analytics.MaxRecordsPerExport, metricsSvc, logr)
	reportSvc := service.NewReportService(reportRepo, exportSvc, store, signer, auditRepo, metricsSvc, logr)
	reportQueue := jobs.NewQueue("reports", reportSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc.SetQueue(reportQueue)
	reportQueue.Start(ctx)
	defer reportQueue.Stop()
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx, cfg.Exports.CleanupInterval, cfg.Exports.SignedURLTTL)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public intake and correction surface.
	api.POST("/submissions", submissionHandler.Create)
	api.GET("/submissions/corrections/:token", submissionHandler.GetCorrection)
	api.POST("/submissions/corrections/:token", submissionHandler.SubmitCorrection)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Review surface for authenticated staff.
	review := api.Group("")
	review.Use(middleware.JWT(authSvc))
	review.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer))
	{
		review.GET("/auth/me", authHandler.Me)
		review.GET("/submissions", submissionHandler.List)
		review.GET("/submissions/:id", submissionHandler.Get)
		review.POST("/submissions/:id/approve", submissionHandler.Approve)
		review.POST("/submissions/:id/reject", submissionHandler.Reject)
		review.GET("/submissions/:id/versions", submissionHandler.Versions)
		review.GET("/audit", auditHandler.List)
		if cfg.Dashboard.Enabled {
			review.GET("/dashboard", dashboardHandler.Summary)
		}
	}

	// Administration surface.
	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc))
	admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	{
		admin.GET("/instructors", instructorHandler.List)
		admin.POST("/instructors", instructorHandler.Create)
		admin.GET("/instructors/:id", instructorHandler.Get)
		admin.PUT("/instructors/:id", instructorHandler.Update)
		admin.DELETE("/instructors/:id", instructorHandler.Delete)

		if cfg.Analytics.Enabled {
			admin.GET("/analytics/metrics", analyticsHandler.Metrics)
			admin.GET("/analytics/duplicates", analyticsHandler.Duplicates)
			admin.GET("/analytics/statistics", analyticsHandler.Statistics)
		}

		admin.GET("/exports/csv", exportHandler.CSV)
		admin.GET("/exports/json", exportHandler.JSON)

		admin.POST("/reports", reportHandler.Create)
		admin.GET("/reports/:id", reportHandler.Status)
		admin.GET("/reports/:id/download",
			middleware.Audit(auditRepo, models.AuditActionReportDownloaded), reportHandler.Download)
	}

	// Account management is restricted to super admins.
	root := api.Group("/users")
	root.Use(middleware.JWT(authSvc))
	root.Use(middleware.RequireRoles(models.RoleSuperAdmin))
	{
		root.GET("", userHandler.List)
		root.GET("/:id", userHandler.Get)
		root.POST("", userHandler.Create)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
