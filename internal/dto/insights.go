package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/lumenlms/insights-api/internal/models"
)

// StudentInsightsRequest is the payload for a single-student analysis.
type StudentInsightsRequest struct {
	Performance models.StudentPerformanceData `json:"performance" validate:"required"`
	TeacherID   string                        `json:"teacher_id"`
	Timeframe   string                        `json:"timeframe" validate:"omitempty,timeframe"`
}

// BatchInsightsRequest is the payload for a whole-course analysis with
// caller-supplied performance data.
type BatchInsightsRequest struct {
	CourseID  string                          `json:"course_id" validate:"required"`
	TeacherID string                          `json:"teacher_id"`
	Students  []models.StudentPerformanceData `json:"students" validate:"required,min=1,dive"`
	Timeframe string                          `json:"timeframe" validate:"omitempty,timeframe"`
}

// DashboardRequest is the payload for the teacher dashboard aggregate.
type DashboardRequest struct {
	TeacherID string                          `json:"teacher_id" validate:"required"`
	Students  []models.StudentPerformanceData `json:"students" validate:"required,min=1,dive"`
}

// ConfigUpdateRequest carries a replacement insights configuration.
type ConfigUpdateRequest struct {
	RiskThresholds models.RiskThresholds     `json:"risk_thresholds"`
	AlertSettings  models.AlertSettings      `json:"alert_settings"`
	Predictions    models.PredictionSettings `json:"prediction_settings"`
}

// CourseInsightsRequest captures query parameters for course-level insight
// lookups backed by the reporting database.
type CourseInsightsRequest struct {
	CourseID  string `validate:"required"`
	Timeframe string `validate:"omitempty,timeframe"`
}

// RegisterValidations wires the dto custom validators into a validator
// instance shared across handlers.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("timeframe", func(fl validator.FieldLevel) bool {
		switch models.Timeframe(fl.Field().String()) {
		case models.TimeframeWeek, models.TimeframeMonth, models.TimeframeSemester:
			return true
		default:
			return false
		}
	})
}
