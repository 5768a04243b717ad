package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/insights-api/internal/models"
)

func newTestTrendService() *TrendService {
	svc := NewTrendService(nil)
	svc.now = func() time.Time { return testNow }
	// constant jitter makes synthesized series flat and assertions exact
	svc.jitter = func() float64 { return 0.5 }
	return svc
}

func TestAnalyzePerformanceTrendsDecliningGrades(t *testing.T) {
	svc := newTestTrendService()
	data := models.StudentPerformanceData{
		StudentID:      "student-1",
		CourseID:       "course-1",
		AttendanceRate: 0.9,
		AssignmentScores: []models.AssignmentScore{
			{Score: 95, MaxScore: 100, SubmittedAt: testNow.AddDate(0, 0, -20)},
			{Score: 80, MaxScore: 100, SubmittedAt: testNow.AddDate(0, 0, -12)},
			{Score: 65, MaxScore: 100, SubmittedAt: testNow.AddDate(0, 0, -4)},
		},
	}

	trend := svc.AnalyzePerformanceTrends(data, models.TimeframeMonth)

	assert.Equal(t, models.TimeframeMonth, trend.Timeframe)
	assert.Equal(t, models.TrendDeclining, trend.Grades.Direction)
	assert.InDelta(t, -15.0, trend.Grades.Slope, 1e-9)
	assert.InDelta(t, 1.0, trend.Grades.Confidence, 1e-9)
	require.Len(t, trend.Grades.DataPoints, 3)

	// flat synthetic series stays stable
	assert.Equal(t, models.TrendStable, trend.Attendance.Direction)
	assert.Equal(t, models.TrendStable, trend.Engagement.Direction)
	require.Len(t, trend.Attendance.DataPoints, syntheticSampleCount)
	for _, point := range trend.Attendance.DataPoints {
		assert.InDelta(t, 90.0, point.Value, 1e-9)
	}
}

func TestAnalyzePerformanceTrendsWindowFiltersOldScores(t *testing.T) {
	svc := newTestTrendService()
	data := models.StudentPerformanceData{
		AssignmentScores: []models.AssignmentScore{
			{Score: 95, MaxScore: 100, SubmittedAt: testNow.AddDate(0, 0, -60)},
			{Score: 80, MaxScore: 100, SubmittedAt: testNow.AddDate(0, 0, -3)},
		},
	}

	trend := svc.AnalyzePerformanceTrends(data, models.TimeframeWeek)

	require.Len(t, trend.Grades.DataPoints, 1)
	assert.Equal(t, models.TrendStable, trend.Grades.Direction)
	assert.Zero(t, trend.Grades.Slope)
	assert.Zero(t, trend.Grades.Confidence)
}

func TestAnalyzePerformanceTrendsDefaultTimeframe(t *testing.T) {
	svc := newTestTrendService()

	trend := svc.AnalyzePerformanceTrends(models.StudentPerformanceData{}, "")

	assert.Equal(t, models.TimeframeMonth, trend.Timeframe)
}

func TestAnalyzePerformanceTrendsReproducibleWithInjectedJitter(t *testing.T) {
	svc := newTestTrendService()
	data := models.StudentPerformanceData{AttendanceRate: 0.8}

	first := svc.AnalyzePerformanceTrends(data, models.TimeframeSemester)
	second := svc.AnalyzePerformanceTrends(data, models.TimeframeSemester)

	assert.Equal(t, first, second)
}

func TestGenerateTrendInsightsDecliningGradesDominate(t *testing.T) {
	svc := newTestTrendService()
	trend := models.PerformanceTrend{
		Timeframe:  models.TimeframeMonth,
		Grades:     models.MetricTrend{Direction: models.TrendDeclining, Slope: -3},
		Engagement: models.MetricTrend{Direction: models.TrendDeclining, Slope: -1},
		Attendance: models.MetricTrend{Direction: models.TrendStable},
	}

	insights := svc.GenerateTrendInsights(trend)

	assert.Equal(t, models.IndicatorDanger, insights.Indicator.Severity)
	assert.Equal(t, "red", insights.Indicator.Color)
	assert.Equal(t, "trending-down", insights.Indicator.Icon)
	assert.Len(t, insights.Insights, 2)
	assert.Len(t, insights.Recommendations, 2)
}

func TestGenerateTrendInsightsEngagementWarning(t *testing.T) {
	svc := newTestTrendService()
	trend := models.PerformanceTrend{
		Timeframe:  models.TimeframeMonth,
		Grades:     models.MetricTrend{Direction: models.TrendStable},
		Engagement: models.MetricTrend{Direction: models.TrendDeclining},
		Attendance: models.MetricTrend{Direction: models.TrendStable},
	}

	insights := svc.GenerateTrendInsights(trend)

	assert.Equal(t, models.IndicatorWarning, insights.Indicator.Severity)
	assert.Equal(t, "orange", insights.Indicator.Color)
}

func TestGenerateTrendInsightsImproving(t *testing.T) {
	svc := newTestTrendService()
	trend := models.PerformanceTrend{
		Grades:     models.MetricTrend{Direction: models.TrendImproving, Slope: 2},
		Engagement: models.MetricTrend{Direction: models.TrendStable},
		Attendance: models.MetricTrend{Direction: models.TrendStable},
	}

	insights := svc.GenerateTrendInsights(trend)

	assert.Equal(t, models.IndicatorSuccess, insights.Indicator.Severity)
	assert.Equal(t, "trending-up", insights.Indicator.Icon)
	assert.Empty(t, insights.Recommendations)
}

func TestGenerateTrendInsightsSteadyDefault(t *testing.T) {
	svc := newTestTrendService()
	trend := models.PerformanceTrend{
		Grades:     models.MetricTrend{Direction: models.TrendStable},
		Engagement: models.MetricTrend{Direction: models.TrendStable},
		Attendance: models.MetricTrend{Direction: models.TrendStable},
	}

	insights := svc.GenerateTrendInsights(trend)

	assert.Equal(t, models.IndicatorSuccess, insights.Indicator.Severity)
	assert.Contains(t, insights.Insights, "Performance is holding steady")
}

func TestFitMetricTrendSinglePoint(t *testing.T) {
	trend := fitMetricTrend([]models.TrendDataPoint{{Value: 50}})

	assert.Equal(t, models.TrendStable, trend.Direction)
	assert.Zero(t, trend.Slope)
	assert.Zero(t, trend.Confidence)
}

func TestFitMetricTrendSlopeWithinThresholdIsStable(t *testing.T) {
	points := []models.TrendDataPoint{{Value: 80}, {Value: 80.05}, {Value: 80.1}}

	trend := fitMetricTrend(points)

	assert.Equal(t, models.TrendStable, trend.Direction)
}
