package models

import "time"

// AssignmentScore captures a single graded submission.
type AssignmentScore struct {
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	Score        float64   `db:"score" json:"score"`
	MaxScore     float64   `db:"max_score" json:"max_score"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
	IsLate       bool      `db:"is_late" json:"is_late"`
	TimeSpent    int       `db:"time_spent" json:"time_spent_minutes"`
}

// Percentage returns the score normalised to 0-100. A zero max score yields 0.
func (a AssignmentScore) Percentage() float64 {
	if a.MaxScore <= 0 {
		return 0
	}
	return (a.Score / a.MaxScore) * 100
}

// EngagementMetrics is the current-snapshot engagement profile for a student.
type EngagementMetrics struct {
	LoginFrequency           float64   `db:"login_frequency" json:"login_frequency"`
	TimeSpentOnPlatform      float64   `db:"time_on_platform" json:"time_spent_on_platform"`
	LessonCompletionRate     float64   `db:"lesson_completion_rate" json:"lesson_completion_rate"`
	AssignmentSubmissionRate float64   `db:"assignment_submission_rate" json:"assignment_submission_rate"`
	ForumParticipation       float64   `db:"forum_participation" json:"forum_participation"`
	LastActivity             time.Time `db:"last_activity" json:"last_activity"`
}

// LearningVelocity summarises pacing behaviour.
type LearningVelocity struct {
	AverageTimePerLesson     float64        `db:"avg_time_per_lesson" json:"average_time_per_lesson"`
	AverageTimePerAssignment float64        `db:"avg_time_per_assignment" json:"average_time_per_assignment"`
	CompletionTrend          TrendDirection `db:"completion_trend" json:"completion_trend"`
}

// StudentPerformanceData is the immutable per-student input to all insight
// engines. Callers must supply a non-nil (possibly empty) AssignmentScores
// slice; the engines never mutate it.
type StudentPerformanceData struct {
	StudentID        string            `json:"student_id"`
	CourseID         string            `json:"course_id"`
	CurrentGrade     float64           `json:"current_grade"`
	AssignmentScores []AssignmentScore `json:"assignment_scores"`
	AttendanceRate   float64           `json:"attendance_rate"`
	Engagement       EngagementMetrics `json:"engagement_metrics"`
	Velocity         LearningVelocity  `json:"learning_velocity"`
}
