package models

import "time"

// RiskFactorTag identifies a condition contributing to a student's risk score.
type RiskFactorTag string

const (
	FactorLowGrades            RiskFactorTag = "low_grades"
	FactorPoorAttendance       RiskFactorTag = "poor_attendance"
	FactorLowEngagement        RiskFactorTag = "low_engagement"
	FactorMissedAssignments    RiskFactorTag = "missed_assignments"
	FactorLateSubmissions      RiskFactorTag = "late_submissions"
	FactorDecliningPerformance RiskFactorTag = "declining_performance"
	FactorInactivity           RiskFactorTag = "inactivity"
)

// Severity bands a risk factor.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Multiplier returns the weight applied to a factor's impact during score
// aggregation.
func (s Severity) Multiplier() float64 {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1.5
	default:
		return 1
	}
}

// RiskLevel is the four-band classification derived from the risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank orders risk levels from low (0) to critical (3).
func (l RiskLevel) Rank() int {
	switch l {
	case RiskCritical:
		return 3
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// RiskLevelForScore maps a 0-100 risk score onto its band.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskFactor is a single identified risk condition.
type RiskFactor struct {
	Factor      RiskFactorTag `json:"factor"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	Impact      float64       `json:"impact"`
}

// PredictedOutcome carries the outcome projection for a student.
type PredictedOutcome struct {
	FinalGrade           float64 `json:"final_grade"`
	PassLikelihood       float64 `json:"pass_likelihood"`
	CompletionLikelihood float64 `json:"completion_likelihood"`
}

// RiskAssessment is the derived risk picture for one student in one course.
// It is recomputed fresh on every call and carries no persisted identity.
type RiskAssessment struct {
	StudentID        string           `json:"student_id"`
	CourseID         string           `json:"course_id"`
	RiskLevel        RiskLevel        `json:"risk_level"`
	RiskScore        int              `json:"risk_score"`
	RiskFactors      []RiskFactor     `json:"risk_factors"`
	PredictedOutcome PredictedOutcome `json:"predicted_outcome"`
	LastAssessed     time.Time        `json:"last_assessed"`
}
