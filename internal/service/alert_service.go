package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlms/insights-api/internal/models"
)

// minScoresForPattern gates the assignment-pattern alert; below this many
// scores the pattern is noise.
const minScoresForPattern = 3

// AlertService derives teacher-facing alerts from assessments and
// performance data, and applies the configured emission policy.
type AlertService struct {
	cfg    models.InsightsConfig
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewAlertService constructs an alert engine bound to the given configuration.
func NewAlertService(cfg models.InsightsConfig, logger *zap.Logger) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{cfg: cfg, logger: logger, now: time.Now, newID: uuid.NewString}
}

// GenerateAlerts evaluates every alert generator independently and returns
// the subset that passes the configured emission policy. Multiple alerts may
// fire for the same student. A nil trend set simply skips the
// performance-decline generator.
func (s *AlertService) GenerateAlerts(assessment models.RiskAssessment, data models.StudentPerformanceData, teacherID string, trends *models.PerformanceTrend) []models.TeacherAlert {
	now := s.now().UTC()
	candidates := make([]models.TeacherAlert, 0, 6)

	if alert, ok := s.riskEscalationAlert(assessment, teacherID, now); ok {
		candidates = append(candidates, alert)
	}
	if trends != nil {
		if alert, ok := s.performanceDeclineAlert(assessment, *trends, teacherID, now); ok {
			candidates = append(candidates, alert)
		}
	}
	if alert, ok := s.attendanceAlert(assessment, data, teacherID, now); ok {
		candidates = append(candidates, alert)
	}
	if alert, ok := s.engagementAlert(assessment, data, teacherID, now); ok {
		candidates = append(candidates, alert)
	}
	if alert, ok := s.assignmentPatternAlert(assessment, data, teacherID, now); ok {
		candidates = append(candidates, alert)
	}
	if alert, ok := s.inactivityAlert(assessment, data, teacherID, now); ok {
		candidates = append(candidates, alert)
	}

	alerts := make([]models.TeacherAlert, 0, len(candidates))
	for _, alert := range candidates {
		if s.shouldSend(alert) {
			alerts = append(alerts, alert)
		}
	}

	s.logger.Debug("alerts generated",
		zap.String("student_id", assessment.StudentID),
		zap.Int("candidates", len(candidates)),
		zap.Int("emitted", len(alerts)))
	return alerts
}

// ProcessEscalationRules forces actionRequired on alerts matching a
// configured escalation condition. The pass is idempotent and keeps no state
// between calls; the input slice is not mutated.
func (s *AlertService) ProcessEscalationRules(alerts []models.TeacherAlert) []models.TeacherAlert {
	escalated := make([]models.TeacherAlert, len(alerts))
	copy(escalated, alerts)

	for _, rule := range s.cfg.AlertSettings.EscalationRules {
		for i := range escalated {
			if escalationMatches(rule.Condition, escalated[i]) {
				escalated[i].ActionRequired = true
			}
		}
	}
	return escalated
}

func escalationMatches(condition models.EscalationCondition, alert models.TeacherAlert) bool {
	switch condition {
	case models.EscalateRiskCritical:
		return alert.Type == models.AlertRiskEscalation && alert.Severity == models.AlertCritical
	case models.EscalateRiskHigh:
		return alert.Type == models.AlertRiskEscalation && alert.Severity == models.AlertWarning
	default:
		return false
	}
}

// shouldSend applies the frequency policy: critical always goes out,
// immediate mode sends everything, digest modes (daily/weekly) only pass
// alerts that demand attention now.
func (s *AlertService) shouldSend(alert models.TeacherAlert) bool {
	settings := s.cfg.AlertSettings
	if !settings.EnableAutomaticAlerts {
		return false
	}
	if alert.Severity == models.AlertCritical {
		return true
	}
	if settings.AlertFrequency == models.FrequencyImmediate {
		return true
	}
	return alert.ActionRequired || alert.Severity == models.AlertWarning
}

func (s *AlertService) riskEscalationAlert(assessment models.RiskAssessment, teacherID string, now time.Time) (models.TeacherAlert, bool) {
	switch assessment.RiskLevel {
	case models.RiskCritical:
		return s.newAlert(assessment, teacherID, now, models.TeacherAlert{
			Type:           models.AlertRiskEscalation,
			Severity:       models.AlertCritical,
			Title:          "Student at Critical Risk",
			Message:        fmt.Sprintf("Risk score reached %d/100 with %d contributing factors. Immediate attention required.", assessment.RiskScore, len(assessment.RiskFactors)),
			ActionRequired: true,
			Data: map[string]interface{}{
				"risk_score":   assessment.RiskScore,
				"risk_factors": factorTags(assessment.RiskFactors),
			},
		}), true
	case models.RiskHigh:
		return s.newAlert(assessment, teacherID, now, models.TeacherAlert{
			Type:     models.AlertRiskEscalation,
			Severity: models.AlertWarning,
			Title:    "Student at High Risk",
			Message:  fmt.Sprintf("Risk score reached %d/100 with %d contributing factors.", assessment.RiskScore, len(assessment.RiskFactors)),
			Data: map[string]interface{}{
				"risk_score":   assessment.RiskScore,
				"risk_factors": factorTags(assessment.RiskFactors),
			},
		}), true
	default:
		return models.TeacherAlert{}, false
	}
}

func (s *AlertService) performanceDeclineAlert(assessment models.RiskAssessment, trends models.PerformanceTrend, teacherID string, now time.Time) (models.TeacherAlert, bool) {
	declining := decliningMetricCount(trends)
	if declining == 0 {
		return models.TeacherAlert{}, false
	}
	severity := models.AlertWarning
	actionRequired := false
	if declining >= 2 {
		severity = models.AlertCritical
		actionRequired = true
	}
	return s.newAlert(assessment, teacherID, now, models.TeacherAlert{
		Type:           models.AlertPerformanceDecline,
		Severity:       severity,
		Title:          "Performance Declining",
		Message:        fmt.Sprintf("%d of 3 performance metrics are trending downward over the past %s.", declining, trends.Timeframe),
		ActionRequired: actionRequired,
		Data: map[string]interface{}{
			"declining_metrics": declining,
			"grades_slope":      trends.Grades.Slope,
		},
	}), true
}

func (s *AlertService) attendanceAlert(assessment models.RiskAssessment, data models.StudentPerformanceData, teacherID string, now time.Time) (models.TeacherAlert, bool) {
	if data.AttendanceRate >= s.cfg.RiskThresholds.AttendanceThreshold {
		return models.TeacherAlert{}, false
	}
	severity := models.AlertInfo
	actionRequired := false
	switch {
	case data.AttendanceRate < 0.6:
		severity = models.AlertCritical
		actionRequired = true
	case data.AttendanceRate < 0.8:
		severity = models.AlertWarning
	}
	return s.newAlert(assessment, teacherID, now, models.TeacherAlert{
		Type:           models.AlertAttendanceIssue,
		Severity:       severity,
		Title:          "Attendance Below Threshold",
		Message:        fmt.Sprintf("Attendance is at %.0f%%, below the %.0f%% threshold.", data.AttendanceRate*100, s.cfg.RiskThresholds.AttendanceThreshold*100),
		ActionRequired: actionRequired,
		Data:           map[string]interface{}{"attendance_rate": data.AttendanceRate},
	}), true
}

func (s *AlertService) engagementAlert(assessment models.RiskAssessment, data models.StudentPerformanceData, teacherID string, now time.Time) (models.TeacherAlert, bool) {
	score := engagementScore(data.Engagement)
	if score >= s.cfg.RiskThresholds.EngagementThreshold {
		return models.TeacherAlert{}, false
	}
	severity := models.AlertInfo
	actionRequired := false
	switch {
	case score < 0.3:
		severity = models.AlertCritical
		actionRequired = true
	case score < 0.45:
		severity = models.AlertWarning
	}
	return s.newAlert(assessment, teacherID, now, models.TeacherAlert{
		Type:           models.AlertEngagementDrop,
		Severity:       severity,
		Title:          "Engagement Dropping",
		Message:        fmt.Sprintf("Engagement score is %.2f, below the %.2f threshold.", score, s.cfg.RiskThresholds.EngagementThreshold),
		ActionRequired: actionRequired,
		Data:           map[string]interface{}{"engagement_score": score},
	}), true
}

func (s *AlertService) assignmentPatternAlert(assessment models.RiskAssessment, data models.StudentPerformanceData, teacherID string, now time.Time) (models.TeacherAlert, bool) {
	total := len(data.AssignmentScores)
	if total < minScoresForPattern {
		return models.TeacherAlert{}, false
	}
	late := 0
	for _, score := range data.AssignmentScores {
		if score.IsLate {
			late++
		}
	}
	lateRate := float64(late) / float64(total)
	submissionRate := data.Engagement.AssignmentSubmissionRate
	if lateRate <= 0.4 && submissionRate >= 0.7 {
		return models.TeacherAlert{}, false
	}
	severity := models.AlertInfo
	if lateRate > 0.6 || submissionRate < 0.5 {
		severity = models.AlertWarning
	}
	return s.newAlert(assessment, teacherID, now, models.TeacherAlert{
		Type:     models.AlertAssignmentPattern,
		Severity: severity,
		Title:    "Concerning Assignment Pattern",
		Message:  fmt.Sprintf("%.0f%% of assignments late, %.0f%% submission rate.", lateRate*100, submissionRate*100),
		Data: map[string]interface{}{
			"late_rate":       lateRate,
			"submission_rate": submissionRate,
		},
	}), true
}

func (s *AlertService) inactivityAlert(assessment models.RiskAssessment, data models.StudentPerformanceData, teacherID string, now time.Time) (models.TeacherAlert, bool) {
	if data.Engagement.LastActivity.IsZero() {
		return models.TeacherAlert{}, false
	}
	days := int(now.Sub(data.Engagement.LastActivity).Hours() / 24)
	if days <= inactivityDays {
		return models.TeacherAlert{}, false
	}
	severity := models.AlertInfo
	actionRequired := false
	switch {
	case days > 21:
		severity = models.AlertCritical
		actionRequired = true
	case days > 14:
		severity = models.AlertWarning
	}
	return s.newAlert(assessment, teacherID, now, models.TeacherAlert{
		Type:           models.AlertEngagementDrop,
		Severity:       severity,
		Title:          "Student Inactive",
		Message:        fmt.Sprintf("No platform activity for %d days.", days),
		ActionRequired: actionRequired,
		Data:           map[string]interface{}{"days_inactive": days},
	}), true
}

func (s *AlertService) newAlert(assessment models.RiskAssessment, teacherID string, now time.Time, alert models.TeacherAlert) models.TeacherAlert {
	alert.ID = s.newID()
	alert.TeacherID = teacherID
	alert.CourseID = assessment.CourseID
	alert.StudentID = assessment.StudentID
	alert.CreatedAt = now
	return alert
}

func factorTags(factors []models.RiskFactor) []string {
	tags := make([]string, len(factors))
	for i, factor := range factors {
		tags[i] = string(factor.Factor)
	}
	return tags
}
