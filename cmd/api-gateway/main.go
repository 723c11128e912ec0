package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-engine/api/swagger"
	"github.com/noah-isme/academic-engine/internal/handler"
	"github.com/noah-isme/academic-engine/internal/middleware"
	"github.com/noah-isme/academic-engine/internal/repository"
	"github.com/noah-isme/academic-engine/internal/service"
	"github.com/noah-isme/academic-engine/pkg/cache"
	"github.com/noah-isme/academic-engine/pkg/config"
	"github.com/noah-isme/academic-engine/pkg/database"
	"github.com/noah-isme/academic-engine/pkg/events"
	"github.com/noah-isme/academic-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-engine/pkg/middleware/requestid"
)

// @title Academic Engine API
// @version 1.0.0
// @description Course enrollment, prerequisite checks, schedule conflicts and grade recording.
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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.GradeCache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, grade cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	publisher, err := events.New(cfg.Events, logr)
	if err != nil {
		logr.Fatal("failed to init event publisher", zap.Error(err))
	}
	defer publisher.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	tx := database.NewTransactor(db)

	sectionRepo := repository.NewSectionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.GradeCache.TTL, logr, redisClient != nil)
	resolver := service.NewPrerequisiteResolver(courseRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(
		sectionRepo,
		enrollmentRepo,
		resolver,
		service.NewScheduleConflictDetector(),
		tx,
		cacheSvc,
		publisher,
		metrics,
		nil,
		logr,
		service.EnrollmentConfig{RequireApproval: cfg.Enrollment.RequireApproval},
	)
	gradeSvc := service.NewGradeService(enrollmentRepo, studentRepo, sectionRepo, tx, cacheSvc, cfg.GradeCache.TTL, publisher, metrics, nil, logr)
	exportSvc := service.NewExportService(gradeSvc, sectionRepo, logr, nil, nil, nil)

	deps := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		deps["redis"] = cache.Pinger{Client: redisClient}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	handler.RegisterProbes(r, handler.NewMetricsHandler(metrics, deps))
	handler.RegisterRoutes(
		r.Group(cfg.APIPrefix),
		handler.NewEnrollmentHandler(enrollmentSvc),
		handler.NewGradeHandler(gradeSvc, exportSvc),
	)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.Bool("grade_cache", cacheSvc.Enabled()),
			zap.String("events_driver", cfg.Events.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}
