package models

import "time"

// TrendDirection classifies the slope of a fitted trend line.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// Timeframe bounds the lookback window for trend analysis.
type Timeframe string

const (
	TimeframeWeek     Timeframe = "week"
	TimeframeMonth    Timeframe = "month"
	TimeframeSemester Timeframe = "semester"
)

// LookbackDays returns the window size for the timeframe. Unknown values
// fall back to the month window.
func (t Timeframe) LookbackDays() int {
	switch t {
	case TimeframeWeek:
		return 7
	case TimeframeSemester:
		return 120
	default:
		return 30
	}
}

// TrendDataPoint is one dated sample in a metric series.
type TrendDataPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MetricTrend is the fitted trend for a single metric.
type MetricTrend struct {
	Direction  TrendDirection   `json:"direction"`
	Slope      float64          `json:"slope"`
	Confidence float64          `json:"confidence"`
	DataPoints []TrendDataPoint `json:"data_points"`
}

// PerformanceTrend groups the per-metric trends for one student.
type PerformanceTrend struct {
	StudentID  string      `json:"student_id"`
	CourseID   string      `json:"course_id"`
	Timeframe  Timeframe   `json:"timeframe"`
	Grades     MetricTrend `json:"grades"`
	Engagement MetricTrend `json:"engagement"`
	Attendance MetricTrend `json:"attendance"`
}

// IndicatorSeverity drives how a trend summary is surfaced.
type IndicatorSeverity string

const (
	IndicatorDanger  IndicatorSeverity = "danger"
	IndicatorWarning IndicatorSeverity = "warning"
	IndicatorSuccess IndicatorSeverity = "success"
)

// VisualIndicator is the single worst-severity summary of a trend set.
type VisualIndicator struct {
	Severity IndicatorSeverity `json:"severity"`
	Color    string            `json:"color"`
	Icon     string            `json:"icon"`
	Label    string            `json:"label"`
}

// TrendInsights carries prose insight and recommendation strings derived
// from a PerformanceTrend plus one overall indicator.
type TrendInsights struct {
	Insights        []string        `json:"insights"`
	Recommendations []string        `json:"recommendations"`
	Indicator       VisualIndicator `json:"visual_indicator"`
}
