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
	"go.uber.org/zap"

	"github.com/lumenlms/insights-api/internal/handler"
	"github.com/lumenlms/insights-api/internal/middleware"
	"github.com/lumenlms/insights-api/internal/models"
	"github.com/lumenlms/insights-api/internal/repository"
	"github.com/lumenlms/insights-api/internal/service"
	"github.com/lumenlms/insights-api/pkg/cache"
	"github.com/lumenlms/insights-api/pkg/config"
	"github.com/lumenlms/insights-api/pkg/database"
	"github.com/lumenlms/insights-api/pkg/logger"
	corsmiddleware "github.com/lumenlms/insights-api/pkg/middleware/cors"
	reqidmiddleware "github.com/lumenlms/insights-api/pkg/middleware/requestid"
)

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
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	insightsSvc := service.NewInsightsService(insightsConfig(cfg.Insights), logr)
	insightsSvc.SetBatchWorkers(cfg.Insights.BatchWorkers)

	var exportSvc *service.ExportService
	if cfg.Export.Enabled {
		exportSvc = service.NewExportService(logr, nil, nil)
	}

	performanceRepo := repository.NewPerformanceRepository(db)

	insightsHandler, err := handler.NewInsightsHandler(insightsSvc, performanceRepo, cacheSvc, exportSvc, metricsSvc, validator.New())
	if err != nil {
		logr.Fatal("failed to init handlers", zap.Error(err))
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	{
		insights := api.Group("/insights")
		insights.POST("/student", insightsHandler.AnalyzeStudent)
		insights.POST("/batch", insightsHandler.AnalyzeBatch)
		insights.POST("/dashboard", insightsHandler.Dashboard)
		insights.GET("/config", insightsHandler.GetConfig)
		insights.PUT("/config", insightsHandler.UpdateConfig)
		insights.GET("/system", metricsHandler.Summary)

		courses := api.Group("/courses")
		courses.GET("/:courseId/insights", insightsHandler.CourseInsights)
		courses.GET("/:courseId/insights/export", insightsHandler.ExportCourseInsights)
		courses.GET("/:courseId/students/:studentId/insights", insightsHandler.StudentInsights)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// insightsConfig materialises the analytics configuration from the flat
// environment settings.
func insightsConfig(settings config.InsightsSettings) models.InsightsConfig {
	cfg := models.DefaultInsightsConfig()
	if settings.GradeThreshold > 0 {
		cfg.RiskThresholds.GradeThreshold = settings.GradeThreshold
	}
	if settings.AttendanceThreshold > 0 {
		cfg.RiskThresholds.AttendanceThreshold = settings.AttendanceThreshold
	}
	if settings.EngagementThreshold > 0 {
		cfg.RiskThresholds.EngagementThreshold = settings.EngagementThreshold
	}
	if settings.SubmissionRateThreshold > 0 {
		cfg.RiskThresholds.SubmissionRateThreshold = settings.SubmissionRateThreshold
	}
	cfg.AlertSettings.EnableAutomaticAlerts = settings.AlertsEnabled
	if settings.AlertFrequency != "" {
		cfg.AlertSettings.AlertFrequency = models.AlertFrequency(settings.AlertFrequency)
	}
	cfg.PredictionSettings.EnablePredictions = settings.PredictionsEnabled
	if settings.PredictionFrequency != "" {
		cfg.PredictionSettings.UpdateFrequency = models.AlertFrequency(settings.PredictionFrequency)
	}
	if settings.ConfidenceThreshold > 0 {
		cfg.PredictionSettings.ConfidenceThreshold = settings.ConfidenceThreshold
	}
	return cfg
}
