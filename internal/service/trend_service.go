package service

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlms/insights-api/internal/models"
)

// trendSlopeThreshold is the absolute slope beyond which a fitted trend
// stops counting as stable.
const trendSlopeThreshold = 0.1

// syntheticSampleCount is the number of history points synthesized for
// metrics that only carry a current snapshot.
const syntheticSampleCount = 6

// syntheticJitterSpread bounds the relative perturbation applied to
// synthesized samples (±10% of the base value).
const syntheticJitterSpread = 0.2

// TrendService fits linear trends over time-ordered performance series.
// Configuration-independent: instances survive config swaps.
type TrendService struct {
	logger *zap.Logger
	now    func() time.Time

	// jitter yields values in [0,1) for history synthesis. Injected so that
	// synthesized series stay reproducible under test.
	jitter func() float64
}

// NewTrendService constructs a trend engine with a time-seeded jitter source.
func NewTrendService(logger *zap.Logger) *TrendService {
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &TrendService{logger: logger, now: time.Now, jitter: rng.Float64}
}

// AnalyzePerformanceTrends fits grade, engagement and attendance trends for
// the student over the given timeframe. Grade samples come straight from
// assignment scores; engagement and attendance histories are synthesized
// from the current snapshot because upstream only supplies current values.
func (s *TrendService) AnalyzePerformanceTrends(data models.StudentPerformanceData, timeframe models.Timeframe) models.PerformanceTrend {
	if timeframe == "" {
		timeframe = models.TimeframeMonth
	}
	now := s.now().UTC()
	cutoff := now.AddDate(0, 0, -timeframe.LookbackDays())

	return models.PerformanceTrend{
		StudentID:  data.StudentID,
		CourseID:   data.CourseID,
		Timeframe:  timeframe,
		Grades:     fitMetricTrend(gradeSeries(data.AssignmentScores, cutoff)),
		Engagement: fitMetricTrend(s.syntheticSeries(engagementScore(data.Engagement)*100, cutoff, now)),
		Attendance: fitMetricTrend(s.syntheticSeries(data.AttendanceRate*100, cutoff, now)),
	}
}

// GenerateTrendInsights turns a fitted trend into prose insights plus a
// single worst-severity visual indicator. Declining grades dominate, then
// declining engagement or attendance, then improvement, then stability.
func (s *TrendService) GenerateTrendInsights(trend models.PerformanceTrend) models.TrendInsights {
	var insights, recommendations []string

	gradesDeclining := trend.Grades.Direction == models.TrendDeclining
	engagementDeclining := trend.Engagement.Direction == models.TrendDeclining
	attendanceDeclining := trend.Attendance.Direction == models.TrendDeclining

	if gradesDeclining {
		insights = append(insights, fmt.Sprintf("Grades are declining at %.2f points per sample over the past %s", trend.Grades.Slope, trend.Timeframe))
		recommendations = append(recommendations, "Schedule a one-on-one review of recent assignments to find where understanding breaks down")
	}
	if engagementDeclining {
		insights = append(insights, fmt.Sprintf("Platform engagement is dropping over the past %s", trend.Timeframe))
		recommendations = append(recommendations, "Reach out to re-engage the student with interactive course material")
	}
	if attendanceDeclining {
		insights = append(insights, fmt.Sprintf("Attendance is slipping over the past %s", trend.Timeframe))
		recommendations = append(recommendations, "Check in with the student about barriers to attending class")
	}
	if trend.Grades.Direction == models.TrendImproving {
		insights = append(insights, fmt.Sprintf("Grades are improving at %.2f points per sample", trend.Grades.Slope))
	}
	if trend.Engagement.Direction == models.TrendImproving {
		insights = append(insights, "Platform engagement is on the rise")
	}

	var indicator models.VisualIndicator
	switch {
	case gradesDeclining:
		indicator = models.VisualIndicator{Severity: models.IndicatorDanger, Color: "red", Icon: "trending-down", Label: "Grades declining"}
	case engagementDeclining || attendanceDeclining:
		indicator = models.VisualIndicator{Severity: models.IndicatorWarning, Color: "orange", Icon: "alert-triangle", Label: "Engagement slipping"}
	case trend.Grades.Direction == models.TrendImproving:
		indicator = models.VisualIndicator{Severity: models.IndicatorSuccess, Color: "green", Icon: "trending-up", Label: "Improving"}
	default:
		indicator = models.VisualIndicator{Severity: models.IndicatorSuccess, Color: "green", Icon: "minus", Label: "Steady performance"}
		insights = append(insights, "Performance is holding steady")
	}

	return models.TrendInsights{
		Insights:        insights,
		Recommendations: recommendations,
		Indicator:       indicator,
	}
}

// gradeSeries builds the windowed, chronologically ordered grade samples.
func gradeSeries(scores []models.AssignmentScore, cutoff time.Time) []models.TrendDataPoint {
	points := make([]models.TrendDataPoint, 0, len(scores))
	for _, score := range scores {
		if score.SubmittedAt.Before(cutoff) {
			continue
		}
		points = append(points, models.TrendDataPoint{Date: score.SubmittedAt, Value: score.Percentage()})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

// syntheticSeries fabricates evenly spaced samples across the lookback
// window around the current metric value, perturbed by the injected jitter.
// A stand-in for real history until upstream records per-day snapshots.
func (s *TrendService) syntheticSeries(base float64, cutoff, now time.Time) []models.TrendDataPoint {
	window := now.Sub(cutoff)
	step := window / time.Duration(syntheticSampleCount)
	points := make([]models.TrendDataPoint, 0, syntheticSampleCount)
	for i := 0; i < syntheticSampleCount; i++ {
		offset := (s.jitter() - 0.5) * syntheticJitterSpread
		value := clampFloat(base*(1+offset), 0, 100)
		points = append(points, models.TrendDataPoint{
			Date:  cutoff.Add(step * time.Duration(i+1)),
			Value: value,
		})
	}
	return points
}

// fitMetricTrend regresses a point series into a MetricTrend. Fewer than two
// samples is not an error; the trend is simply stable with zero confidence.
func fitMetricTrend(points []models.TrendDataPoint) models.MetricTrend {
	trend := models.MetricTrend{Direction: models.TrendStable, DataPoints: points}
	if len(points) < 2 {
		return trend
	}

	values := make([]float64, len(points))
	for i, point := range points {
		values[i] = point.Value
	}
	fit := fitLeastSquares(values)

	trend.Slope = fit.Slope
	trend.Confidence = fit.RSquared
	switch {
	case fit.Slope > trendSlopeThreshold:
		trend.Direction = models.TrendImproving
	case fit.Slope < -trendSlopeThreshold:
		trend.Direction = models.TrendDeclining
	}
	return trend
}
