package service

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lumenlms/insights-api/internal/models"
)

// defaultBatchWorkers bounds per-student parallelism in batch analysis.
const defaultBatchWorkers = 4

// dashboardTrendThreshold is the relative half-over-half change below which
// a dashboard metric counts as stable.
const dashboardTrendThreshold = 0.05

// maxActionItems caps the dashboard action list.
const maxActionItems = 5

// StudentInsights is the full fan-out result for one student.
type StudentInsights struct {
	StudentID               string                              `json:"student_id"`
	Assessment              models.RiskAssessment               `json:"risk_assessment"`
	Trend                   models.PerformanceTrend             `json:"performance_trend"`
	TrendInsights           models.TrendInsights                `json:"trend_insights"`
	Interventions           []models.InterventionRecommendation `json:"interventions"`
	LearningRecommendations []models.LearningRecommendation     `json:"learning_recommendations"`
	Alerts                  []models.TeacherAlert               `json:"alerts"`
}

// BatchSummary aggregates a batch analysis for quick display.
type BatchSummary struct {
	CommonRiskFactors      []models.RiskFactorTag `json:"common_risk_factors"`
	HighRiskStudents       int                    `json:"high_risk_students"`
	StudentsNeedingSupport int                    `json:"students_needing_support"`
	Recommendations        []string               `json:"recommendations"`
}

// BatchInsights is the composite result of analysing a whole course.
type BatchInsights struct {
	CourseID       string                  `json:"course_id"`
	Students       []StudentInsights       `json:"students"`
	Cohort         models.CohortComparison `json:"cohort"`
	CohortInsights models.CohortInsights   `json:"cohort_insights"`
	PriorityAlerts []models.TeacherAlert   `json:"priority_alerts"`
	Summary        BatchSummary            `json:"summary"`
}

// DashboardOverview carries aggregate counts for the teacher dashboard.
type DashboardOverview struct {
	TotalStudents        int     `json:"total_students"`
	HighRiskStudents     int     `json:"high_risk_students"`
	CriticalRiskStudents int     `json:"critical_risk_students"`
	AverageGrade         float64 `json:"average_grade"`
	AverageAttendance    float64 `json:"average_attendance"`
	AverageEngagement    float64 `json:"average_engagement"`
}

// ClassTrends is the coarse per-metric direction across a class.
type ClassTrends struct {
	Grades     models.TrendDirection `json:"grades"`
	Attendance models.TrendDirection `json:"attendance"`
	Engagement models.TrendDirection `json:"engagement"`
}

// ActionItem is one ranked entry in the dashboard to-do list.
type ActionItem struct {
	Priority     models.Priority `json:"priority"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	StudentCount int             `json:"student_count"`
}

// TeacherDashboard is the aggregate overview for one teacher's students.
type TeacherDashboard struct {
	TeacherID   string            `json:"teacher_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Overview    DashboardOverview `json:"overview"`
	ClassTrends ClassTrends       `json:"class_trends"`
	ActionItems []ActionItem      `json:"action_items"`
}

// engineBundle groups the configuration-bound engines so UpdateConfig can
// swap them atomically without touching the configuration-independent ones.
type engineBundle struct {
	cfg    models.InsightsConfig
	risk   *RiskService
	alerts *AlertService
}

// InsightsService orchestrates the five analytics engines. Analysis calls
// are read-only and may run concurrently; UpdateConfig is the only mutating
// operation and swaps the config-bound engines through an atomic pointer.
type InsightsService struct {
	engines       atomic.Pointer[engineBundle]
	trends        *TrendService
	interventions *InterventionService
	cohort        *CohortService
	logger        *zap.Logger
	now           func() time.Time
	batchWorkers  int
}

// NewInsightsService constructs the orchestrator with a full engine set.
func NewInsightsService(cfg models.InsightsConfig, logger *zap.Logger) *InsightsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InsightsService{
		trends:        NewTrendService(logger),
		interventions: NewInterventionService(logger),
		cohort:        NewCohortService(logger),
		logger:        logger,
		now:           time.Now,
		batchWorkers:  defaultBatchWorkers,
	}
	s.engines.Store(&engineBundle{
		cfg:    cfg,
		risk:   NewRiskService(cfg, logger),
		alerts: NewAlertService(cfg, logger),
	})
	return s
}

// SetBatchWorkers overrides the batch parallelism. Values below one keep
// the default.
func (s *InsightsService) SetBatchWorkers(workers int) {
	if workers > 0 {
		s.batchWorkers = workers
	}
}

// Config returns the currently active configuration.
func (s *InsightsService) Config() models.InsightsConfig {
	return s.engines.Load().cfg
}

// UpdateConfig replaces the configuration and reconstructs the risk and
// alert engines. The trend, intervention and cohort engines carry no
// configuration and are left untouched. Callers own single-writer
// discipline; in-flight analyses see either the old or the new bundle.
func (s *InsightsService) UpdateConfig(cfg models.InsightsConfig) {
	s.engines.Store(&engineBundle{
		cfg:    cfg,
		risk:   NewRiskService(cfg, s.logger),
		alerts: NewAlertService(cfg, s.logger),
	})
	s.logger.Info("insights configuration replaced",
		zap.Float64("grade_threshold", cfg.RiskThresholds.GradeThreshold),
		zap.Bool("alerts_enabled", cfg.AlertSettings.EnableAutomaticAlerts))
}

// AnalyzeStudent runs the full engine fan-out for a single student. An
// empty timeframe falls back to the month window.
func (s *InsightsService) AnalyzeStudent(data models.StudentPerformanceData, teacherID string, timeframe models.Timeframe) StudentInsights {
	if timeframe == "" {
		timeframe = models.TimeframeMonth
	}
	bundle := s.engines.Load()

	assessment := bundle.risk.AssessStudentRisk(data)
	trend := s.trends.AnalyzePerformanceTrends(data, timeframe)
	alerts := bundle.alerts.ProcessEscalationRules(
		bundle.alerts.GenerateAlerts(assessment, data, teacherID, &trend))

	return StudentInsights{
		StudentID:               data.StudentID,
		Assessment:              assessment,
		Trend:                   trend,
		TrendInsights:           s.trends.GenerateTrendInsights(trend),
		Interventions:           s.interventions.GenerateInterventions(assessment, data, &trend),
		LearningRecommendations: s.interventions.GenerateLearningRecommendations(data, assessment),
		Alerts:                  alerts,
	}
}

// AnalyzeMultipleStudents analyses every student of a course and composes
// cohort statistics, priority alerts and a summary. Students are analysed
// in parallel with bounded workers; each student is independent, so one
// degenerate record never affects the rest of the batch.
func (s *InsightsService) AnalyzeMultipleStudents(ctx context.Context, students []models.StudentPerformanceData, courseID, teacherID string, timeframe models.Timeframe) (BatchInsights, error) {
	results := make([]StudentInsights, len(students))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchWorkers)
	for i := range students {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = s.AnalyzeStudent(students[i], teacherID, timeframe)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchInsights{}, err
	}

	cohort := s.cohort.AnalyzeCohortPerformance(students, courseID)
	if timeframe != "" {
		cohort.Timeframe = timeframe
	}
	batch := BatchInsights{
		CourseID:       courseID,
		Students:       results,
		Cohort:         cohort,
		CohortInsights: s.cohort.GenerateCohortInsights(cohort),
		PriorityAlerts: priorityAlerts(results),
		Summary:        s.summarize(results, cohort),
	}

	s.logger.Info("batch analysis complete",
		zap.String("course_id", courseID),
		zap.Int("students", len(students)),
		zap.Int("priority_alerts", len(batch.PriorityAlerts)))
	return batch, nil
}

// GenerateTeacherDashboard builds the aggregate dashboard for a teacher's
// student list.
func (s *InsightsService) GenerateTeacherDashboard(students []models.StudentPerformanceData, teacherID string) TeacherDashboard {
	bundle := s.engines.Load()
	dashboard := TeacherDashboard{
		TeacherID:   teacherID,
		GeneratedAt: s.now().UTC(),
		ClassTrends: ClassTrends{
			Grades:     models.TrendStable,
			Attendance: models.TrendStable,
			Engagement: models.TrendStable,
		},
		ActionItems: []ActionItem{},
	}
	if len(students) == 0 {
		return dashboard
	}

	grades := make([]float64, len(students))
	attendance := make([]float64, len(students))
	engagement := make([]float64, len(students))
	assessments := make([]models.RiskAssessment, len(students))
	for i, student := range students {
		grades[i] = student.CurrentGrade
		attendance[i] = student.AttendanceRate
		engagement[i] = engagementScore(student.Engagement)
		assessments[i] = bundle.risk.AssessStudentRisk(student)
	}

	overview := DashboardOverview{
		TotalStudents:     len(students),
		AverageGrade:      mean(grades),
		AverageAttendance: mean(attendance),
		AverageEngagement: mean(engagement),
	}
	for _, assessment := range assessments {
		switch assessment.RiskLevel {
		case models.RiskCritical:
			overview.CriticalRiskStudents++
		case models.RiskHigh:
			overview.HighRiskStudents++
		}
	}
	dashboard.Overview = overview
	dashboard.ClassTrends = ClassTrends{
		Grades:     halfSplitTrend(grades),
		Attendance: halfSplitTrend(attendance),
		Engagement: halfSplitTrend(engagement),
	}
	dashboard.ActionItems = s.actionItems(students, assessments)
	return dashboard
}

// priorityAlerts flattens every student's alerts and orders them by
// severity, most urgent first.
func priorityAlerts(results []StudentInsights) []models.TeacherAlert {
	var alerts []models.TeacherAlert
	for _, result := range results {
		alerts = append(alerts, result.Alerts...)
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
	})
	return alerts
}

func (s *InsightsService) summarize(results []StudentInsights, cohort models.CohortComparison) BatchSummary {
	summary := BatchSummary{Recommendations: []string{}}

	factorCounts := map[models.RiskFactorTag]int{}
	for _, result := range results {
		if result.Assessment.RiskLevel.Rank() >= models.RiskHigh.Rank() {
			summary.HighRiskStudents++
		}
		if len(result.Interventions) > 0 {
			summary.StudentsNeedingSupport++
		}
		for _, factor := range result.Assessment.RiskFactors {
			factorCounts[factor.Factor]++
		}
	}
	summary.CommonRiskFactors = topFactors(factorCounts, 3)

	total := len(results)
	if total > 0 && float64(summary.HighRiskStudents)/float64(total) > 0.3 {
		summary.Recommendations = append(summary.Recommendations,
			fmt.Sprintf("%d of %d students are at high or critical risk; consider a course-level review", summary.HighRiskStudents, total))
	}
	if cohort.Metrics.AverageGrade > 0 && cohort.Metrics.AverageGrade < 70 {
		summary.Recommendations = append(summary.Recommendations,
			"Cohort average is below 70%; revisit recent material before moving on")
	}
	if cohort.Metrics.AttendanceRate > 0 && cohort.Metrics.AttendanceRate < 0.8 {
		summary.Recommendations = append(summary.Recommendations,
			"Cohort attendance is below 80%; a schedule or logistics issue may be at play")
	}
	return summary
}

func (s *InsightsService) actionItems(students []models.StudentPerformanceData, assessments []models.RiskAssessment) []ActionItem {
	var critical, high, inactive, lowAttendance, declining int
	now := s.now().UTC()
	for i, assessment := range assessments {
		switch assessment.RiskLevel {
		case models.RiskCritical:
			critical++
		case models.RiskHigh:
			high++
		}
		if hasFactor(assessment, models.FactorDecliningPerformance) {
			declining++
		}
		last := students[i].Engagement.LastActivity
		if !last.IsZero() && now.Sub(last) > inactivityDays*24*time.Hour {
			inactive++
		}
		if students[i].AttendanceRate < 0.6 {
			lowAttendance++
		}
	}

	var items []ActionItem
	if critical > 0 {
		items = append(items, ActionItem{
			Priority:     models.PriorityUrgent,
			Title:        "Contact critical-risk students",
			Description:  fmt.Sprintf("%d students are at critical risk and need outreach today", critical),
			StudentCount: critical,
		})
	}
	if high > 0 {
		items = append(items, ActionItem{
			Priority:     models.PriorityHigh,
			Title:        "Review high-risk students",
			Description:  fmt.Sprintf("%d students are at high risk; schedule check-ins this week", high),
			StudentCount: high,
		})
	}
	if lowAttendance > 0 {
		items = append(items, ActionItem{
			Priority:     models.PriorityHigh,
			Title:        "Follow up on attendance",
			Description:  fmt.Sprintf("%d students are attending less than 60%% of classes", lowAttendance),
			StudentCount: lowAttendance,
		})
	}
	if inactive > 0 {
		items = append(items, ActionItem{
			Priority:     models.PriorityMedium,
			Title:        "Re-engage inactive students",
			Description:  fmt.Sprintf("%d students have been inactive for over a week", inactive),
			StudentCount: inactive,
		})
	}
	if declining > 0 {
		items = append(items, ActionItem{
			Priority:     models.PriorityMedium,
			Title:        "Review declining performance",
			Description:  fmt.Sprintf("%d students show a downward assignment trend", declining),
			StudentCount: declining,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority.Rank() > items[j].Priority.Rank()
	})
	if len(items) > maxActionItems {
		items = items[:maxActionItems]
	}
	return items
}

func hasFactor(assessment models.RiskAssessment, tag models.RiskFactorTag) bool {
	for _, factor := range assessment.RiskFactors {
		if factor.Factor == tag {
			return true
		}
	}
	return false
}

func topFactors(counts map[models.RiskFactorTag]int, limit int) []models.RiskFactorTag {
	type entry struct {
		tag   models.RiskFactorTag
		count int
	}
	entries := make([]entry, 0, len(counts))
	for tag, count := range counts {
		entries = append(entries, entry{tag, count})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].tag < entries[j].tag
		}
		return entries[i].count > entries[j].count
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	tags := make([]models.RiskFactorTag, len(entries))
	for i, e := range entries {
		tags[i] = e.tag
	}
	return tags
}

// halfSplitTrend compares the mean of the second half of the values against
// the first half with a 5% relative threshold.
func halfSplitTrend(values []float64) models.TrendDirection {
	if len(values) < 2 {
		return models.TrendStable
	}
	mid := len(values) / 2
	first := mean(values[:mid])
	second := mean(values[mid:])
	if first == 0 {
		return models.TrendStable
	}
	change := (second - first) / first
	switch {
	case change > dashboardTrendThreshold:
		return models.TrendImproving
	case change < -dashboardTrendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
