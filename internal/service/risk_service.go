package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlms/insights-api/internal/models"
)

// Per-factor contribution weights for risk score aggregation.
const (
	impactLowGrades            = 0.3
	impactPoorAttendance       = 0.25
	impactLowEngagement        = 0.2
	impactMissedAssignments    = 0.25
	impactLateSubmissions      = 0.15
	impactDecliningPerformance = 0.2
	impactInactivity           = 0.15
)

// minScoresForTrend is the minimum number of assignment scores required
// before the declining-performance factor can be evaluated.
const minScoresForTrend = 3

// decliningSlopeThreshold is the regression slope below which assignment
// performance counts as declining.
const decliningSlopeThreshold = -0.1

// inactivityDays is the minimum gap since last activity before the
// inactivity factor fires.
const inactivityDays = 7

// RiskService scores student risk from performance data. It holds only
// configuration and is safe for concurrent use.
type RiskService struct {
	cfg    models.InsightsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewRiskService constructs a risk engine bound to the given configuration.
func NewRiskService(cfg models.InsightsConfig, logger *zap.Logger) *RiskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiskService{cfg: cfg, logger: logger, now: time.Now}
}

// AssessStudentRisk derives the full risk picture for one student. It is a
// pure function of the input and the injected configuration; repeated calls
// differ only in LastAssessed.
func (s *RiskService) AssessStudentRisk(data models.StudentPerformanceData) models.RiskAssessment {
	now := s.now().UTC()
	factors := s.identifyRiskFactors(data, now)
	score := aggregateRiskScore(factors)
	level := models.RiskLevelForScore(score)

	assessment := models.RiskAssessment{
		StudentID:        data.StudentID,
		CourseID:         data.CourseID,
		RiskLevel:        level,
		RiskScore:        score,
		RiskFactors:      factors,
		PredictedOutcome: s.predictOutcome(data, score),
		LastAssessed:     now,
	}

	s.logger.Debug("risk assessed",
		zap.String("student_id", data.StudentID),
		zap.String("course_id", data.CourseID),
		zap.Int("risk_score", score),
		zap.String("risk_level", string(level)),
		zap.Int("factor_count", len(factors)))

	return assessment
}

func (s *RiskService) identifyRiskFactors(data models.StudentPerformanceData, now time.Time) []models.RiskFactor {
	thresholds := s.cfg.RiskThresholds
	factors := make([]models.RiskFactor, 0, 7)

	if data.CurrentGrade < thresholds.GradeThreshold {
		severity := models.SeverityLow
		switch {
		case data.CurrentGrade < 60:
			severity = models.SeverityHigh
		case data.CurrentGrade < 70:
			severity = models.SeverityMedium
		}
		factors = append(factors, models.RiskFactor{
			Factor:      models.FactorLowGrades,
			Severity:    severity,
			Description: fmt.Sprintf("Current grade %.1f%% is below the %.0f%% threshold", data.CurrentGrade, thresholds.GradeThreshold),
			Impact:      impactLowGrades,
		})
	}

	if data.AttendanceRate < thresholds.AttendanceThreshold {
		severity := models.SeverityLow
		switch {
		case data.AttendanceRate < 0.6:
			severity = models.SeverityHigh
		case data.AttendanceRate < 0.7:
			severity = models.SeverityMedium
		}
		factors = append(factors, models.RiskFactor{
			Factor:      models.FactorPoorAttendance,
			Severity:    severity,
			Description: fmt.Sprintf("Attendance rate %.0f%% is below the %.0f%% threshold", data.AttendanceRate*100, thresholds.AttendanceThreshold*100),
			Impact:      impactPoorAttendance,
		})
	}

	if engagement := engagementScore(data.Engagement); engagement < thresholds.EngagementThreshold {
		severity := models.SeverityLow
		switch {
		case engagement < 0.3:
			severity = models.SeverityHigh
		case engagement < 0.45:
			severity = models.SeverityMedium
		}
		factors = append(factors, models.RiskFactor{
			Factor:      models.FactorLowEngagement,
			Severity:    severity,
			Description: fmt.Sprintf("Engagement score %.2f is below the %.2f threshold", engagement, thresholds.EngagementThreshold),
			Impact:      impactLowEngagement,
		})
	}

	if rate := data.Engagement.AssignmentSubmissionRate; rate < thresholds.SubmissionRateThreshold {
		severity := models.SeverityLow
		switch {
		case rate < 0.5:
			severity = models.SeverityHigh
		case rate < 0.65:
			severity = models.SeverityMedium
		}
		factors = append(factors, models.RiskFactor{
			Factor:      models.FactorMissedAssignments,
			Severity:    severity,
			Description: fmt.Sprintf("Only %.0f%% of assignments submitted, expected %.0f%%", rate*100, thresholds.SubmissionRateThreshold*100),
			Impact:      impactMissedAssignments,
		})
	}

	// Late-submission rate is undefined for an empty score list; the factor
	// is skipped rather than dividing by zero.
	if total := len(data.AssignmentScores); total > 0 {
		late := 0
		for _, score := range data.AssignmentScores {
			if score.IsLate {
				late++
			}
		}
		lateRate := float64(late) / float64(total)
		if lateRate > 0.3 {
			severity := models.SeverityLow
			switch {
			case lateRate > 0.6:
				severity = models.SeverityHigh
			case lateRate > 0.45:
				severity = models.SeverityMedium
			}
			factors = append(factors, models.RiskFactor{
				Factor:      models.FactorLateSubmissions,
				Severity:    severity,
				Description: fmt.Sprintf("%d of %d assignments submitted late (%.0f%%)", late, total, lateRate*100),
				Impact:      impactLateSubmissions,
			})
		}
	}

	if factor, ok := decliningPerformanceFactor(data.AssignmentScores); ok {
		factors = append(factors, factor)
	}

	if !data.Engagement.LastActivity.IsZero() {
		days := int(now.Sub(data.Engagement.LastActivity).Hours() / 24)
		if days >= inactivityDays {
			severity := models.SeverityLow
			switch {
			case days > 21:
				severity = models.SeverityHigh
			case days > 14:
				severity = models.SeverityMedium
			}
			factors = append(factors, models.RiskFactor{
				Factor:      models.FactorInactivity,
				Severity:    severity,
				Description: fmt.Sprintf("No platform activity for %d days", days),
				Impact:      impactInactivity,
			})
		}
	}

	return factors
}

// decliningPerformanceFactor fits a regression over chronologically ordered
// assignment percentages. It needs at least minScoresForTrend samples.
func decliningPerformanceFactor(scores []models.AssignmentScore) (models.RiskFactor, bool) {
	if len(scores) < minScoresForTrend {
		return models.RiskFactor{}, false
	}

	ordered := make([]models.AssignmentScore, len(scores))
	copy(ordered, scores)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	values := make([]float64, len(ordered))
	for i, score := range ordered {
		values[i] = score.Percentage()
	}

	fit := fitLeastSquares(values)
	if fit.Slope >= decliningSlopeThreshold {
		return models.RiskFactor{}, false
	}

	severity := models.SeverityLow
	switch {
	case fit.Slope < -0.5:
		severity = models.SeverityHigh
	case fit.Slope < -0.25:
		severity = models.SeverityMedium
	}
	return models.RiskFactor{
		Factor:      models.FactorDecliningPerformance,
		Severity:    severity,
		Description: fmt.Sprintf("Assignment scores declining at %.2f points per assignment", fit.Slope),
		Impact:      impactDecliningPerformance,
	}, true
}

// aggregateRiskScore folds identified factors into a 0-100 score. The boost
// order matters: the multi-factor boost applies before the high-severity one.
func aggregateRiskScore(factors []models.RiskFactor) int {
	if len(factors) == 0 {
		return 0
	}

	var weighted float64
	highCount := 0
	for _, factor := range factors {
		weighted += factor.Impact * factor.Severity.Multiplier()
		if factor.Severity == models.SeverityHigh {
			highCount++
		}
	}

	score := clampFloat(weighted*100, 0, 100)
	if len(factors) > 3 {
		score *= 1.2
	}
	score *= 1 + 0.1*float64(highCount)

	return int(clampFloat(math.Round(score), 0, 100))
}

func (s *RiskService) predictOutcome(data models.StudentPerformanceData, riskScore int) models.PredictedOutcome {
	engagement := engagementScore(data.Engagement)
	predictedGrade := clampFloat(
		data.CurrentGrade*0.4+
			data.AttendanceRate*100*0.3+
			engagement*100*0.3-
			float64(riskScore)*0.2,
		0, 100)

	return models.PredictedOutcome{
		FinalGrade:     predictedGrade,
		PassLikelihood: clamp01((predictedGrade - 40) / 40),
		CompletionLikelihood: clamp01(
			data.Engagement.LessonCompletionRate*0.6 +
				data.AttendanceRate*0.4 -
				float64(riskScore)/100*0.3),
	}
}
