package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/lumenlms/insights-api/internal/dto"
	"github.com/lumenlms/insights-api/internal/middleware"
	"github.com/lumenlms/insights-api/internal/models"
	"github.com/lumenlms/insights-api/internal/service"
	appErrors "github.com/lumenlms/insights-api/pkg/errors"
	"github.com/lumenlms/insights-api/pkg/response"
)

// performanceSource loads performance snapshots from the reporting store.
type performanceSource interface {
	GetByStudent(ctx context.Context, courseID, studentID string) (*models.StudentPerformanceData, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.StudentPerformanceData, error)
}

// InsightsHandler exposes the analytics endpoints.
type InsightsHandler struct {
	insights    *service.InsightsService
	performance performanceSource
	cache       *service.CacheService
	exporter    *service.ExportService
	metrics     *service.MetricsService
	validate    *validator.Validate
}

// NewInsightsHandler constructs the insights handler. The validator gains
// the dto custom validations; a nil validator gets a fresh instance.
func NewInsightsHandler(insights *service.InsightsService, performance performanceSource, cache *service.CacheService, exporter *service.ExportService, metrics *service.MetricsService, validate *validator.Validate) (*InsightsHandler, error) {
	if validate == nil {
		validate = validator.New()
	}
	if err := dto.RegisterValidations(validate); err != nil {
		return nil, fmt.Errorf("register validations: %w", err)
	}
	return &InsightsHandler{
		insights:    insights,
		performance: performance,
		cache:       cache,
		exporter:    exporter,
		metrics:     metrics,
		validate:    validate,
	}, nil
}

// AnalyzeStudent runs the full engine fan-out for one student using
// caller-supplied performance data.
func (h *InsightsHandler) AnalyzeStudent(c *gin.Context) {
	var req dto.StudentInsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "validation failed"))
		return
	}

	start := time.Now()
	result := h.insights.AnalyzeStudent(req.Performance, req.TeacherID, models.Timeframe(req.Timeframe))
	h.metrics.ObserveAnalysis("student", time.Since(start))
	h.metrics.RecordAlertsGenerated(len(result.Alerts))

	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// AnalyzeBatch runs the course-level analysis over caller-supplied
// performance data.
func (h *InsightsHandler) AnalyzeBatch(c *gin.Context) {
	var req dto.BatchInsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "validation failed"))
		return
	}

	start := time.Now()
	batch, err := h.insights.AnalyzeMultipleStudents(c.Request.Context(), req.Students, req.CourseID, req.TeacherID, models.Timeframe(req.Timeframe))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveAnalysis("batch", time.Since(start))
	h.metrics.RecordAlertsGenerated(len(batch.PriorityAlerts))

	response.JSON(c, http.StatusOK, batch, middleware.ExtractMeta(c))
}

// Dashboard builds the aggregate teacher dashboard from caller-supplied
// performance data.
func (h *InsightsHandler) Dashboard(c *gin.Context) {
	var req dto.DashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "validation failed"))
		return
	}

	start := time.Now()
	dashboard := h.insights.GenerateTeacherDashboard(req.Students, req.TeacherID)
	h.metrics.ObserveAnalysis("dashboard", time.Since(start))

	response.JSON(c, http.StatusOK, dashboard, middleware.ExtractMeta(c))
}

// GetConfig returns the active analytics configuration.
func (h *InsightsHandler) GetConfig(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.insights.Config(), middleware.ExtractMeta(c))
}

// UpdateConfig replaces the analytics configuration and invalidates cached
// course insights, since derived results depend on the thresholds.
func (h *InsightsHandler) UpdateConfig(c *gin.Context) {
	var req dto.ConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	cfg := models.InsightsConfig{
		RiskThresholds:     req.RiskThresholds,
		AlertSettings:      req.AlertSettings,
		PredictionSettings: req.Predictions,
	}
	h.insights.UpdateConfig(cfg)

	if err := h.cache.Invalidate(c.Request.Context(), "insights:course:*"); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, middleware.ExtractMeta(c))
}

// StudentInsights analyses one enrolled student with data loaded from the
// reporting store.
func (h *InsightsHandler) StudentInsights(c *gin.Context) {
	courseID := c.Param("courseId")
	studentID := c.Param("studentId")
	timeframe := c.Query("timeframe")
	if err := h.validateTimeframe(timeframe); err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.performance.GetByStudent(c.Request.Context(), courseID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	result := h.insights.AnalyzeStudent(*data, c.Query("teacher_id"), models.Timeframe(timeframe))
	h.metrics.ObserveAnalysis("student", time.Since(start))
	h.metrics.RecordAlertsGenerated(len(result.Alerts))

	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// CourseInsights analyses every enrolled student of a course, serving from
// cache when possible.
func (h *InsightsHandler) CourseInsights(c *gin.Context) {
	courseID := c.Param("courseId")
	timeframe := c.Query("timeframe")
	if err := h.validateTimeframe(timeframe); err != nil {
		response.Error(c, err)
		return
	}

	key := courseCacheKey(courseID, timeframe)
	var cached service.BatchInsights
	if hit, err := h.cache.Get(c.Request.Context(), key, &cached); err == nil && hit {
		middleware.SetCacheHit(c, true)
		response.JSON(c, http.StatusOK, cached, middleware.ExtractMeta(c))
		return
	}
	middleware.SetCacheHit(c, false)

	batch, err := h.computeCourseInsights(c.Request.Context(), courseID, c.Query("teacher_id"), timeframe)
	if err != nil {
		response.Error(c, err)
		return
	}

	// cache failures are logged by the cache service and never block the response
	_ = h.cache.Set(c.Request.Context(), key, batch, 0)
	response.JSON(c, http.StatusOK, batch, middleware.ExtractMeta(c))
}

// ExportCourseInsights renders the course analysis as a downloadable report.
func (h *InsightsHandler) ExportCourseInsights(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrExport, "report export disabled"))
		return
	}
	courseID := c.Param("courseId")
	timeframe := c.Query("timeframe")
	if err := h.validateTimeframe(timeframe); err != nil {
		response.Error(c, err)
		return
	}
	format, err := service.ParseReportFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format"))
		return
	}

	batch, err := h.computeCourseInsights(c.Request.Context(), courseID, c.Query("teacher_id"), timeframe)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.exporter.Generate(&batch, format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrExport.Code, appErrors.ErrExport.Status, "report rendering failed"))
		return
	}
	response.File(c, result.ContentType, result.Filename, result.Payload)
}

func (h *InsightsHandler) computeCourseInsights(ctx context.Context, courseID, teacherID, timeframe string) (service.BatchInsights, error) {
	students, err := h.performance.ListByCourse(ctx, courseID)
	if err != nil {
		return service.BatchInsights{}, err
	}

	start := time.Now()
	batch, err := h.insights.AnalyzeMultipleStudents(ctx, students, courseID, teacherID, models.Timeframe(timeframe))
	if err != nil {
		return service.BatchInsights{}, err
	}
	h.metrics.ObserveAnalysis("course", time.Since(start))
	h.metrics.RecordAlertsGenerated(len(batch.PriorityAlerts))
	return batch, nil
}

func (h *InsightsHandler) validateTimeframe(timeframe string) error {
	if timeframe == "" {
		return nil
	}
	if err := h.validate.Var(timeframe, "timeframe"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timeframe")
	}
	return nil
}

func courseCacheKey(courseID, timeframe string) string {
	if timeframe == "" {
		timeframe = string(models.TimeframeMonth)
	}
	return fmt.Sprintf("insights:course:%s:%s", courseID, timeframe)
}
