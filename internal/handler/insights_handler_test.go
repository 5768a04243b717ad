package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/insights-api/internal/dto"
	"github.com/lumenlms/insights-api/internal/models"
	"github.com/lumenlms/insights-api/internal/service"
	appErrors "github.com/lumenlms/insights-api/pkg/errors"
	"github.com/lumenlms/insights-api/pkg/response"
)

type performanceSourceMock struct {
	student  *models.StudentPerformanceData
	students []models.StudentPerformanceData
	err      error
}

func (m *performanceSourceMock) GetByStudent(ctx context.Context, courseID, studentID string) (*models.StudentPerformanceData, error) {
	return m.student, m.err
}

func (m *performanceSourceMock) ListByCourse(ctx context.Context, courseID string) ([]models.StudentPerformanceData, error) {
	return m.students, m.err
}

func samplePerformance() models.StudentPerformanceData {
	return models.StudentPerformanceData{
		StudentID:        "student-1",
		CourseID:         "course-1",
		CurrentGrade:     55,
		AttendanceRate:   0.5,
		AssignmentScores: []models.AssignmentScore{},
		Engagement: models.EngagementMetrics{
			AssignmentSubmissionRate: 0.4,
			LastActivity:             time.Now().AddDate(0, 0, -2),
		},
	}
}

func newTestHandler(t *testing.T, source performanceSource) *InsightsHandler {
	t.Helper()
	insights := service.NewInsightsService(models.DefaultInsightsConfig(), nil)
	cache := service.NewCacheService(nil, nil, 0, nil, false)
	exporter := service.NewExportService(nil, nil, nil)
	metrics := service.NewMetricsService()

	h, err := NewInsightsHandler(insights, source, cache, exporter, metrics, nil)
	require.NoError(t, err)
	return h
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestAnalyzeStudentHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t, &performanceSourceMock{})

	payload, _ := json.Marshal(dto.StudentInsightsRequest{
		Performance: samplePerformance(),
		TeacherID:   "teacher-1",
		Timeframe:   "month",
	})
	c, w := newGinContext(http.MethodPost, "/api/v1/insights/student", payload)

	h.AnalyzeStudent(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Data)
	result := envelope.Data.(map[string]interface{})
	assert.Equal(t, "student-1", result["student_id"])
}

func TestAnalyzeStudentHandlerRejectsBadTimeframe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t, &performanceSourceMock{})

	payload, _ := json.Marshal(dto.StudentInsightsRequest{
		Performance: samplePerformance(),
		Timeframe:   "decade",
	})
	c, w := newGinContext(http.MethodPost, "/api/v1/insights/student", payload)

	h.AnalyzeStudent(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestAnalyzeStudentHandlerRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t, &performanceSourceMock{})

	c, w := newGinContext(http.MethodPost, "/api/v1/insights/student", []byte("{not json"))

	h.AnalyzeStudent(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeBatchHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t, &performanceSourceMock{})

	payload, _ := json.Marshal(dto.BatchInsightsRequest{
		CourseID:  "course-1",
		TeacherID: "teacher-1",
		Students:  []models.StudentPerformanceData{samplePerformance()},
	})
	c, w := newGinContext(http.MethodPost, "/api/v1/insights/batch", payload)

	h.AnalyzeBatch(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	result := envelope.Data.(map[string]interface{})
	assert.Equal(t, "course-1", result["course_id"])
}

func TestAnalyzeBatchHandlerRequiresStudents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t, &performanceSourceMock{})

	payload, _ := json.Marshal(dto.BatchInsightsRequest{CourseID: "course-1"})
	c, w := newGinContext(http.MethodPost, "/api/v1/insights/batch", payload)

	h.AnalyzeBatch(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseInsightsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	source := &performanceSourceMock{students: []models.StudentPerformanceData{samplePerformance()}}
	h := newTestHandler(t, source)

	c, w := newGinContext(http.MethodGet, "/api/v1/courses/course-1/insights", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}

	h.CourseInsights(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	result := envelope.Data.(map[string]interface{})
	assert.Equal(t, "course-1", result["course_id"])
}

func TestStudentInsightsHandlerNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	source := &performanceSourceMock{err: appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")}
	h := newTestHandler(t, source)

	c, w := newGinContext(http.MethodGet, "/api/v1/courses/course-1/students/missing/insights", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}, {Key: "studentId", Value: "missing"}}

	h.StudentInsights(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCourseInsightsCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	source := &performanceSourceMock{students: []models.StudentPerformanceData{samplePerformance()}}
	h := newTestHandler(t, source)

	c, w := newGinContext(http.MethodGet, "/api/v1/courses/course-1/insights/export?format=csv", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}

	h.ExportCourseInsights(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "course-insights-course-1")
	assert.Contains(t, w.Body.String(), "Risk Level")
}

func TestExportCourseInsightsRejectsUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t, &performanceSourceMock{})

	c, w := newGinContext(http.MethodGet, "/api/v1/courses/course-1/insights/export?format=xlsx", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}

	h.ExportCourseInsights(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateConfigHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t, &performanceSourceMock{})

	cfg := models.DefaultInsightsConfig()
	cfg.RiskThresholds.GradeThreshold = 85
	payload, _ := json.Marshal(dto.ConfigUpdateRequest{
		RiskThresholds: cfg.RiskThresholds,
		AlertSettings:  cfg.AlertSettings,
		Predictions:    cfg.PredictionSettings,
	})
	c, w := newGinContext(http.MethodPut, "/api/v1/insights/config", payload)

	h.UpdateConfig(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 85.0, h.insights.Config().RiskThresholds.GradeThreshold)
}
