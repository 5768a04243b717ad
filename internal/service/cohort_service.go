package service

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlms/insights-api/internal/models"
)

// gradeBands are the fixed cohort distribution buckets, highest first.
var gradeBands = []struct {
	Label string
	Min   float64
}{
	{"90-100", 90},
	{"80-89", 80},
	{"70-79", 70},
	{"60-69", 60},
	{"0-59", 0},
}

// CohortService aggregates course-level statistics and per-student
// comparisons. Configuration-independent.
type CohortService struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewCohortService constructs a cohort engine.
func NewCohortService(logger *zap.Logger) *CohortService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CohortService{logger: logger, now: time.Now}
}

// AnalyzeCohortPerformance aggregates the students of one course. An empty
// cohort is valid and yields zero-valued metrics with no comparisons.
func (s *CohortService) AnalyzeCohortPerformance(students []models.StudentPerformanceData, courseID string) models.CohortComparison {
	comparison := models.CohortComparison{
		CourseID:           courseID,
		Timeframe:          models.TimeframeMonth,
		Metrics:            models.CohortMetrics{GradeDistribution: emptyDistribution()},
		StudentComparisons: []models.StudentComparison{},
	}
	if len(students) == 0 {
		return comparison
	}

	n := float64(len(students))
	grades := make([]float64, 0, len(students))
	var gradeSum, attendanceSum, completionSum, engagementSum float64
	for _, student := range students {
		grades = append(grades, student.CurrentGrade)
		gradeSum += student.CurrentGrade
		attendanceSum += student.AttendanceRate
		completionSum += student.Engagement.LessonCompletionRate
		engagementSum += engagementScore(student.Engagement)
	}

	comparison.Metrics = models.CohortMetrics{
		AverageGrade:      gradeSum / n,
		MedianGrade:       median(grades),
		GradeDistribution: distributeGrades(grades),
		AttendanceRate:    attendanceSum / n,
		CompletionRate:    completionSum / n,
		EngagementScore:   engagementSum / n,
	}
	comparison.StudentComparisons = s.compareStudents(students, comparison.Metrics)
	return comparison
}

// GenerateCohortInsights derives prose findings from a cohort analysis.
func (s *CohortService) GenerateCohortInsights(analysis models.CohortComparison) models.CohortInsights {
	insights := models.CohortInsights{
		Insights:           []string{},
		Recommendations:    []string{},
		ConcerningTrends:   []string{},
		PositiveHighlights: []string{},
	}
	metrics := analysis.Metrics
	studentCount := len(analysis.StudentComparisons)

	insights.Insights = append(insights.Insights,
		fmt.Sprintf("Cohort of %d students averages %.1f%% with a median of %.1f%%", studentCount, metrics.AverageGrade, metrics.MedianGrade))

	if studentCount == 0 {
		return insights
	}

	if metrics.AverageGrade < 70 {
		insights.ConcerningTrends = append(insights.ConcerningTrends,
			fmt.Sprintf("Cohort average grade %.1f%% is below passing comfort zone", metrics.AverageGrade))
		insights.Recommendations = append(insights.Recommendations,
			"Review pacing of recent modules; a below-70 cohort average usually signals a content-level issue")
	} else if metrics.AverageGrade >= 85 {
		insights.PositiveHighlights = append(insights.PositiveHighlights,
			fmt.Sprintf("Strong cohort average of %.1f%%", metrics.AverageGrade))
	}

	if metrics.AttendanceRate < 0.8 {
		insights.ConcerningTrends = append(insights.ConcerningTrends,
			fmt.Sprintf("Cohort attendance at %.0f%% is below the 80%% expectation", metrics.AttendanceRate*100))
		insights.Recommendations = append(insights.Recommendations,
			"Investigate scheduling conflicts; low cohort-wide attendance is rarely individual")
	} else if metrics.AttendanceRate >= 0.95 {
		insights.PositiveHighlights = append(insights.PositiveHighlights,
			fmt.Sprintf("Excellent cohort attendance at %.0f%%", metrics.AttendanceRate*100))
	}

	if metrics.EngagementScore < 0.6 {
		insights.ConcerningTrends = append(insights.ConcerningTrends,
			fmt.Sprintf("Cohort engagement score %.2f is below target", metrics.EngagementScore))
		insights.Recommendations = append(insights.Recommendations,
			"Add interactive elements to upcoming lessons to lift cohort engagement")
	}

	for _, bucket := range metrics.GradeDistribution {
		if bucket.Range == "0-59" && bucket.Percentage > 20 {
			insights.ConcerningTrends = append(insights.ConcerningTrends,
				fmt.Sprintf("%.0f%% of the cohort is scoring below 60%%", bucket.Percentage))
		}
		if bucket.Range == "90-100" && bucket.Percentage > 30 {
			insights.PositiveHighlights = append(insights.PositiveHighlights,
				fmt.Sprintf("%.0f%% of the cohort is scoring 90%% or above", bucket.Percentage))
		}
	}

	return insights
}

func (s *CohortService) compareStudents(students []models.StudentPerformanceData, metrics models.CohortMetrics) []models.StudentComparison {
	comparisons := make([]models.StudentComparison, 0, len(students))
	for _, student := range students {
		comparisons = append(comparisons, models.StudentComparison{
			StudentID:       student.StudentID,
			Grade:           student.CurrentGrade,
			GradeDelta:      student.CurrentGrade - metrics.AverageGrade,
			AttendanceDelta: student.AttendanceRate - metrics.AttendanceRate,
			EngagementDelta: engagementScore(student.Engagement) - metrics.EngagementScore,
		})
	}
	sort.SliceStable(comparisons, func(i, j int) bool {
		return comparisons[i].Grade > comparisons[j].Grade
	})
	total := len(comparisons)
	for i := range comparisons {
		comparisons[i].Rank = i + 1
		comparisons[i].Percentile = float64(total-(i+1)) / float64(total) * 100
	}
	return comparisons
}

func distributeGrades(grades []float64) []models.GradeDistributionBucket {
	buckets := emptyDistribution()
	if len(grades) == 0 {
		return buckets
	}
	for _, grade := range grades {
		for i, band := range gradeBands {
			if grade >= band.Min {
				buckets[i].Count++
				break
			}
		}
	}
	total := float64(len(grades))
	for i := range buckets {
		buckets[i].Percentage = float64(buckets[i].Count) / total * 100
	}
	return buckets
}

func emptyDistribution() []models.GradeDistributionBucket {
	buckets := make([]models.GradeDistributionBucket, len(gradeBands))
	for i, band := range gradeBands {
		buckets[i] = models.GradeDistributionBucket{Range: band.Label}
	}
	return buckets
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	ordered := make([]float64, len(values))
	copy(ordered, values)
	sort.Float64s(ordered)
	mid := len(ordered) / 2
	if len(ordered)%2 == 0 {
		return (ordered[mid-1] + ordered[mid]) / 2
	}
	return ordered[mid]
}
