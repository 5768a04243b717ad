package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/insights-api/internal/models"
)

func cohortStudent(id string, grade, attendance float64) models.StudentPerformanceData {
	return models.StudentPerformanceData{
		StudentID:      id,
		CourseID:       "course-1",
		CurrentGrade:   grade,
		AttendanceRate: attendance,
		Engagement: models.EngagementMetrics{
			LoginFrequency:           5,
			TimeSpentOnPlatform:      200,
			LessonCompletionRate:     0.8,
			AssignmentSubmissionRate: 0.9,
			ForumParticipation:       2,
		},
	}
}

func TestAnalyzeCohortPerformanceAggregates(t *testing.T) {
	svc := NewCohortService(nil)
	students := []models.StudentPerformanceData{
		cohortStudent("student-1", 75, 0.9),
		cohortStudent("student-2", 85, 0.8),
	}

	analysis := svc.AnalyzeCohortPerformance(students, "course-1")

	assert.Equal(t, "course-1", analysis.CourseID)
	assert.InDelta(t, 80.0, analysis.Metrics.AverageGrade, 1e-9)
	assert.InDelta(t, 80.0, analysis.Metrics.MedianGrade, 1e-9)
	assert.InDelta(t, 0.85, analysis.Metrics.AttendanceRate, 1e-9)
	require.Len(t, analysis.StudentComparisons, 2)

	// sorted by grade descending with dense ranks
	first := analysis.StudentComparisons[0]
	second := analysis.StudentComparisons[1]
	assert.Equal(t, "student-2", first.StudentID)
	assert.Equal(t, 1, first.Rank)
	assert.InDelta(t, 50.0, first.Percentile, 1e-9)
	assert.InDelta(t, 5.0, first.GradeDelta, 1e-9)
	assert.Equal(t, "student-1", second.StudentID)
	assert.Equal(t, 2, second.Rank)
	assert.InDelta(t, 0.0, second.Percentile, 1e-9)
}

func TestAnalyzeCohortPerformanceEmptyCohort(t *testing.T) {
	svc := NewCohortService(nil)

	analysis := svc.AnalyzeCohortPerformance(nil, "course-1")

	assert.Zero(t, analysis.Metrics.AverageGrade)
	assert.Zero(t, analysis.Metrics.MedianGrade)
	assert.Empty(t, analysis.StudentComparisons)
	require.Len(t, analysis.Metrics.GradeDistribution, 5)
	for _, bucket := range analysis.Metrics.GradeDistribution {
		assert.Zero(t, bucket.Count)
	}
}

func TestDistributeGradesBuckets(t *testing.T) {
	buckets := distributeGrades([]float64{95, 91, 84, 72, 55})

	require.Len(t, buckets, 5)
	assert.Equal(t, "90-100", buckets[0].Range)
	assert.Equal(t, 2, buckets[0].Count)
	assert.InDelta(t, 40.0, buckets[0].Percentage, 1e-9)
	assert.Equal(t, 1, buckets[1].Count)
	assert.Equal(t, 0, buckets[3].Count)
	assert.Equal(t, 1, buckets[4].Count)
}

func TestMedianEvenAndOdd(t *testing.T) {
	assert.InDelta(t, 75.0, median([]float64{70, 80}), 1e-9)
	assert.InDelta(t, 80.0, median([]float64{90, 70, 80}), 1e-9)
	assert.Zero(t, median(nil))
}

func TestGenerateCohortInsightsConcerningTrends(t *testing.T) {
	svc := NewCohortService(nil)
	analysis := models.CohortComparison{
		Metrics: models.CohortMetrics{
			AverageGrade:   62,
			MedianGrade:    60,
			AttendanceRate: 0.7,
			GradeDistribution: []models.GradeDistributionBucket{
				{Range: "0-59", Count: 3, Percentage: 30},
			},
			EngagementScore: 0.4,
		},
		StudentComparisons: []models.StudentComparison{{StudentID: "student-1"}},
	}

	insights := svc.GenerateCohortInsights(analysis)

	assert.Len(t, insights.ConcerningTrends, 4)
	assert.Len(t, insights.Recommendations, 3)
	assert.Empty(t, insights.PositiveHighlights)
}

func TestGenerateCohortInsightsPositiveHighlights(t *testing.T) {
	svc := NewCohortService(nil)
	analysis := models.CohortComparison{
		Metrics: models.CohortMetrics{
			AverageGrade:   88,
			AttendanceRate: 0.96,
			GradeDistribution: []models.GradeDistributionBucket{
				{Range: "90-100", Count: 4, Percentage: 40},
			},
			EngagementScore: 0.8,
		},
		StudentComparisons: []models.StudentComparison{{StudentID: "student-1"}},
	}

	insights := svc.GenerateCohortInsights(analysis)

	assert.Empty(t, insights.ConcerningTrends)
	assert.Len(t, insights.PositiveHighlights, 3)
}

func TestGenerateCohortInsightsEmptyCohortShortCircuits(t *testing.T) {
	svc := NewCohortService(nil)

	insights := svc.GenerateCohortInsights(models.CohortComparison{})

	assert.Len(t, insights.Insights, 1)
	assert.Empty(t, insights.ConcerningTrends)
	assert.Empty(t, insights.Recommendations)
}
