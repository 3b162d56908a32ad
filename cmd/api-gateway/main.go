package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/grievance-api/api/swagger"
	"github.com/noah-isme/grievance-api/internal/handler"
	internalmiddleware "github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/internal/service"
	"github.com/noah-isme/grievance-api/pkg/cache"
	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/database"
	"github.com/noah-isme/grievance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/requestid"
)

// @title Grievance API
// @version 1.0.0
// @description Citizen grievance lifecycle, audit trail and geographic analytics
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Analytics.CacheEnabled {
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	var cacheStore service.CacheRepository
	if cacheRepo != nil {
		cacheStore = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Analytics.CacheTTL, logr, cacheStore != nil)

	grievanceRepo := repository.NewGrievanceRepository(db)
	statusRepo := repository.NewStatusUpdateRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	validate := validator.New()
	references := service.NewReferenceNumberGenerator(sequenceRepo)
	duplicates := service.NewDuplicateDetector(grievanceRepo, cfg.Grievances.DuplicateWindow)
	auditTrail := service.NewAuditTrail(auditRepo, logr)

	grievanceSvc := service.NewGrievanceService(
		grievanceRepo,
		statusRepo,
		userRepo,
		categoryRepo,
		references,
		duplicates,
		auditTrail,
		db,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
	)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, categoryRepo, userRepo, cacheSvc, metricsSvc, service.AnalyticsConfig{
		CriticalDefaultLimit: cfg.Grievances.CriticalDefaultLimit,
		CriticalMaxLimit:     cfg.Grievances.CriticalMaxLimit,
	}, logr)
	projectSvc := service.NewProjectService(projectRepo, references, auditTrail, db, validate, logr)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.TrackResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	if cacheRepo != nil {
		metricsHandler.WithCache(cacheRepo)
	}
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction && cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.Timeout(cfg.RequestTimeout))
	api.Use(internalmiddleware.JWT(tokenSvc))
	registerRoutes(api,
		handler.NewGrievanceHandler(grievanceSvc),
		handler.NewAnalyticsHandler(analyticsSvc),
		handler.NewAuditHandler(auditTrail),
		handler.NewProjectHandler(projectSvc),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logr.Info("shutdown signal received, draining connections")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func registerRoutes(
	api *gin.RouterGroup,
	grievances *handler.GrievanceHandler,
	analytics *handler.AnalyticsHandler,
	audit *handler.AuditHandler,
	projects *handler.ProjectHandler,
) {
	writers := internalmiddleware.RBAC(models.RoleOperator, models.RoleOfficer, models.RoleAdmin)
	officers := internalmiddleware.RBAC(models.RoleOfficer, models.RoleAdmin)
	admins := internalmiddleware.RBAC(models.RoleAdmin)

	g := api.Group("/grievances")
	g.GET("", grievances.List)
	g.POST("", writers, grievances.Create)
	g.GET("/:id", grievances.Get)
	g.PATCH("/:id", writers, grievances.Update)
	g.DELETE("/:id", admins, grievances.Delete)
	g.POST("/:id/assign", officers, grievances.Assign)
	g.POST("/:id/status", officers, grievances.TransitionStatus)
	g.GET("/:id/status-history", grievances.StatusHistory)

	a := api.Group("/analytics")
	a.GET("/aggregate", analytics.Aggregate)
	a.GET("/critical", analytics.Critical)
	a.GET("/system", admins, analytics.System)

	api.GET("/audit/:entityType/:entityId", officers, audit.History)

	p := api.Group("/projects")
	p.GET("", projects.List)
	p.POST("", writers, projects.Create)
	p.GET("/:id", projects.Get)
	p.PATCH("/:id", writers, projects.Update)
	p.DELETE("/:id", admins, projects.Delete)
}
