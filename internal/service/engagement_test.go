package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenlms/insights-api/internal/models"
)

func TestEngagementScoreWeights(t *testing.T) {
	metrics := models.EngagementMetrics{
		LoginFrequency:           7,
		TimeSpentOnPlatform:      300,
		LessonCompletionRate:     1,
		AssignmentSubmissionRate: 1,
		ForumParticipation:       5,
	}

	assert.InDelta(t, 1.0, engagementScore(metrics), 1e-9)
}

func TestEngagementScoreCapsOveractiveInputs(t *testing.T) {
	metrics := models.EngagementMetrics{
		LoginFrequency:           20,
		TimeSpentOnPlatform:      900,
		LessonCompletionRate:     1,
		AssignmentSubmissionRate: 1,
		ForumParticipation:       30,
	}

	// each ratio caps at 1 so the composite never exceeds 1
	assert.InDelta(t, 1.0, engagementScore(metrics), 1e-9)
}

func TestEngagementScoreZero(t *testing.T) {
	assert.Zero(t, engagementScore(models.EngagementMetrics{}))
}

func TestFitLeastSquares(t *testing.T) {
	fit := fitLeastSquares([]float64{1, 3, 5, 7})

	assert.InDelta(t, 2.0, fit.Slope, 1e-9)
	assert.InDelta(t, 1.0, fit.Intercept, 1e-9)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-9)
}

func TestFitLeastSquaresFlatSeries(t *testing.T) {
	fit := fitLeastSquares([]float64{4, 4, 4})

	assert.Zero(t, fit.Slope)
}

func TestFitLeastSquaresTooFewPoints(t *testing.T) {
	fit := fitLeastSquares([]float64{4})

	assert.Zero(t, fit.Slope)
	assert.Zero(t, fit.RSquared)
}
