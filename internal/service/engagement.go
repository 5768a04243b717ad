package service

import "github.com/lumenlms/insights-api/internal/models"

// Normalisation ceilings for the engagement composite. Values above the
// ceiling saturate at 1.
const (
	maxLoginsPerWeek     = 7.0
	maxPlatformMinutes   = 300.0
	maxForumPostsPerWeek = 5.0
)

// engagementScore folds the engagement metrics into a single [0,1] composite.
// The risk, alert and cohort engines and the orchestrator all share this
// definition; the weights must not drift between call sites.
func engagementScore(m models.EngagementMetrics) float64 {
	score := 0.2*capRatio(m.LoginFrequency, maxLoginsPerWeek) +
		0.2*capRatio(m.TimeSpentOnPlatform, maxPlatformMinutes) +
		0.3*clamp01(m.LessonCompletionRate) +
		0.2*clamp01(m.AssignmentSubmissionRate) +
		0.1*capRatio(m.ForumParticipation, maxForumPostsPerWeek)
	return clamp01(score)
}

func capRatio(value, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	return clamp01(value / ceiling)
}

func clamp01(v float64) float64 {
	return clampFloat(v, 0, 1)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
