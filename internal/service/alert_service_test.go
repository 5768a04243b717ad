package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/insights-api/internal/models"
)

func newTestAlertService(cfg models.InsightsConfig) *AlertService {
	svc := NewAlertService(cfg, nil)
	svc.now = func() time.Time { return testNow }
	counter := 0
	svc.newID = func() string {
		counter++
		return fmt.Sprintf("alert-%d", counter)
	}
	return svc
}

func TestGenerateAlertsCriticalRisk(t *testing.T) {
	svc := newTestAlertService(models.DefaultInsightsConfig())
	assessment := models.RiskAssessment{
		StudentID: "student-1",
		CourseID:  "course-1",
		RiskLevel: models.RiskCritical,
		RiskScore: 90,
	}

	alerts := svc.GenerateAlerts(assessment, healthyStudent(), "teacher-1", nil)

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, models.AlertRiskEscalation, alert.Type)
	assert.Equal(t, models.AlertCritical, alert.Severity)
	assert.True(t, alert.ActionRequired)
	assert.Equal(t, "teacher-1", alert.TeacherID)
	assert.Equal(t, "student-1", alert.StudentID)
	assert.Equal(t, 90, alert.Data["risk_score"])
}

func TestGenerateAlertsDisabledSuppressesEverything(t *testing.T) {
	cfg := models.DefaultInsightsConfig()
	cfg.AlertSettings.EnableAutomaticAlerts = false
	svc := newTestAlertService(cfg)
	assessment := models.RiskAssessment{RiskLevel: models.RiskCritical, RiskScore: 95}

	alerts := svc.GenerateAlerts(assessment, strugglingStudent(), "teacher-1", nil)

	assert.Empty(t, alerts)
}

func TestGenerateAlertsDailyDigestDropsInfo(t *testing.T) {
	// Attendance at 0.85 against a 0.9 threshold yields an info alert, which
	// the daily digest holds back.
	cfg := models.DefaultInsightsConfig()
	cfg.RiskThresholds.AttendanceThreshold = 0.9
	svc := newTestAlertService(cfg)
	data := healthyStudent()
	data.AttendanceRate = 0.85

	alerts := svc.GenerateAlerts(models.RiskAssessment{RiskLevel: models.RiskLow}, data, "teacher-1", nil)

	assert.Empty(t, alerts)
}

func TestGenerateAlertsImmediateModePassesInfo(t *testing.T) {
	cfg := models.DefaultInsightsConfig()
	cfg.AlertSettings.AlertFrequency = models.FrequencyImmediate
	cfg.RiskThresholds.AttendanceThreshold = 0.9
	svc := newTestAlertService(cfg)
	data := healthyStudent()
	data.AttendanceRate = 0.85

	alerts := svc.GenerateAlerts(models.RiskAssessment{RiskLevel: models.RiskLow}, data, "teacher-1", nil)

	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertInfo, alerts[0].Severity)
	assert.Equal(t, models.AlertAttendanceIssue, alerts[0].Type)
}

func TestGenerateAlertsAssignmentPatternNeedsThreeScores(t *testing.T) {
	cfg := models.DefaultInsightsConfig()
	cfg.AlertSettings.AlertFrequency = models.FrequencyImmediate
	svc := newTestAlertService(cfg)
	data := healthyStudent()
	data.AssignmentScores = []models.AssignmentScore{
		{Score: 80, MaxScore: 100, IsLate: true},
		{Score: 85, MaxScore: 100, IsLate: true},
	}

	alerts := svc.GenerateAlerts(models.RiskAssessment{RiskLevel: models.RiskLow}, data, "teacher-1", nil)

	for _, alert := range alerts {
		assert.NotEqual(t, models.AlertAssignmentPattern, alert.Type)
	}
}

func TestGenerateAlertsPerformanceDecline(t *testing.T) {
	svc := newTestAlertService(models.DefaultInsightsConfig())
	trends := &models.PerformanceTrend{
		Timeframe:  models.TimeframeMonth,
		Grades:     models.MetricTrend{Direction: models.TrendDeclining, Slope: -4},
		Engagement: models.MetricTrend{Direction: models.TrendDeclining, Slope: -2},
	}

	alerts := svc.GenerateAlerts(models.RiskAssessment{RiskLevel: models.RiskLow}, healthyStudent(), "teacher-1", trends)

	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertPerformanceDecline, alerts[0].Type)
	assert.Equal(t, models.AlertCritical, alerts[0].Severity)
	assert.True(t, alerts[0].ActionRequired)
	assert.Equal(t, 2, alerts[0].Data["declining_metrics"])
}

func TestGenerateAlertsInactivityBanding(t *testing.T) {
	cfg := models.DefaultInsightsConfig()
	cfg.AlertSettings.AlertFrequency = models.FrequencyImmediate
	svc := newTestAlertService(cfg)

	cases := []struct {
		daysAgo  int
		severity models.AlertSeverity
	}{
		{10, models.AlertInfo},
		{16, models.AlertWarning},
		{25, models.AlertCritical},
	}
	for _, tc := range cases {
		data := healthyStudent()
		data.Engagement.LastActivity = testNow.AddDate(0, 0, -tc.daysAgo)

		alerts := svc.GenerateAlerts(models.RiskAssessment{RiskLevel: models.RiskLow}, data, "teacher-1", nil)

		var found *models.TeacherAlert
		for i := range alerts {
			if alerts[i].Title == "Student Inactive" {
				found = &alerts[i]
			}
		}
		require.NotNil(t, found, "days ago %d", tc.daysAgo)
		assert.Equal(t, tc.severity, found.Severity, "days ago %d", tc.daysAgo)
	}
}

func TestProcessEscalationRulesForcesAction(t *testing.T) {
	svc := newTestAlertService(models.DefaultInsightsConfig())
	alerts := []models.TeacherAlert{
		{Type: models.AlertRiskEscalation, Severity: models.AlertWarning},
		{Type: models.AlertAttendanceIssue, Severity: models.AlertWarning},
	}

	escalated := svc.ProcessEscalationRules(alerts)

	require.Len(t, escalated, 2)
	assert.True(t, escalated[0].ActionRequired)
	assert.False(t, escalated[1].ActionRequired)
	// input untouched
	assert.False(t, alerts[0].ActionRequired)
}

func TestProcessEscalationRulesIdempotent(t *testing.T) {
	svc := newTestAlertService(models.DefaultInsightsConfig())
	alerts := []models.TeacherAlert{
		{Type: models.AlertRiskEscalation, Severity: models.AlertCritical, ActionRequired: true},
	}

	once := svc.ProcessEscalationRules(alerts)
	twice := svc.ProcessEscalationRules(once)

	assert.Equal(t, once, twice)
}
