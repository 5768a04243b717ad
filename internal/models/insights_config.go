package models

import "time"

// AlertFrequency controls alert delivery cadence.
type AlertFrequency string

const (
	FrequencyImmediate AlertFrequency = "immediate"
	FrequencyDaily     AlertFrequency = "daily"
	FrequencyWeekly    AlertFrequency = "weekly"
)

// EscalationCondition matches alerts eligible for escalation.
type EscalationCondition string

const (
	EscalateRiskCritical EscalationCondition = "risk_level_critical"
	EscalateRiskHigh     EscalationCondition = "risk_level_high"
)

// EscalationRule forces matching alerts to require action.
type EscalationRule struct {
	Condition EscalationCondition `json:"condition"`
	Action    string              `json:"action"`
	Delay     time.Duration       `json:"delay"`
}

// RiskThresholds are the cutoffs below which risk factors fire.
type RiskThresholds struct {
	GradeThreshold          float64 `json:"grade_threshold"`
	AttendanceThreshold     float64 `json:"attendance_threshold"`
	EngagementThreshold     float64 `json:"engagement_threshold"`
	SubmissionRateThreshold float64 `json:"submission_rate_threshold"`
}

// AlertSettings tune alert emission.
type AlertSettings struct {
	EnableAutomaticAlerts bool             `json:"enable_automatic_alerts"`
	AlertFrequency        AlertFrequency   `json:"alert_frequency"`
	EscalationRules       []EscalationRule `json:"escalation_rules"`
}

// PredictionSettings tune outcome prediction.
type PredictionSettings struct {
	EnablePredictions   bool           `json:"enable_predictions"`
	UpdateFrequency     AlertFrequency `json:"update_frequency"`
	ConfidenceThreshold float64        `json:"confidence_threshold"`
}

// InsightsConfig is the process-wide analytics configuration. It is an
// immutable value injected at engine construction; multiple engine sets
// with different configs coexist safely.
type InsightsConfig struct {
	RiskThresholds     RiskThresholds     `json:"risk_thresholds"`
	AlertSettings      AlertSettings      `json:"alert_settings"`
	PredictionSettings PredictionSettings `json:"prediction_settings"`
}

// DefaultInsightsConfig returns the documented default configuration.
func DefaultInsightsConfig() InsightsConfig {
	return InsightsConfig{
		RiskThresholds: RiskThresholds{
			GradeThreshold:          70,
			AttendanceThreshold:     0.8,
			EngagementThreshold:     0.6,
			SubmissionRateThreshold: 0.8,
		},
		AlertSettings: AlertSettings{
			EnableAutomaticAlerts: true,
			AlertFrequency:        FrequencyDaily,
			EscalationRules: []EscalationRule{
				{Condition: EscalateRiskCritical, Action: "notify_teacher", Delay: 0},
				{Condition: EscalateRiskHigh, Action: "flag_for_review", Delay: 24 * time.Hour},
			},
		},
		PredictionSettings: PredictionSettings{
			EnablePredictions:   true,
			UpdateFrequency:     FrequencyWeekly,
			ConfidenceThreshold: 0.7,
		},
	}
}
