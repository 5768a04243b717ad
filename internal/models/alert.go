package models

import "time"

// AlertType classifies teacher alerts.
type AlertType string

const (
	AlertRiskEscalation     AlertType = "risk_escalation"
	AlertPerformanceDecline AlertType = "performance_decline"
	AlertAttendanceIssue    AlertType = "attendance_issue"
	AlertEngagementDrop     AlertType = "engagement_drop"
	AlertAssignmentPattern  AlertType = "assignment_pattern"
)

// AlertSeverity ranks alert urgency.
type AlertSeverity string

const (
	AlertCritical AlertSeverity = "critical"
	AlertWarning  AlertSeverity = "warning"
	AlertInfo     AlertSeverity = "info"
)

// Rank orders severities from info (0) to critical (2).
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertCritical:
		return 2
	case AlertWarning:
		return 1
	default:
		return 0
	}
}

// TeacherAlert is a single teacher-facing notification about one student.
type TeacherAlert struct {
	ID             string                 `json:"id"`
	TeacherID      string                 `json:"teacher_id"`
	CourseID       string                 `json:"course_id"`
	StudentID      string                 `json:"student_id"`
	Type           AlertType              `json:"type"`
	Severity       AlertSeverity          `json:"severity"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data,omitempty"`
	ActionRequired bool                   `json:"action_required"`
	CreatedAt      time.Time              `json:"created_at"`
}
