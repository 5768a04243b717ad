package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlms/insights-api/internal/models"
)

// maxInterventions caps how many interventions a single analysis emits.
const maxInterventions = 5

// interventionTemplate fixes the shape of the intervention generated for one
// risk factor. Priority maps factor severity to intervention priority.
type interventionTemplate struct {
	Type            models.InterventionType
	Priority        map[models.Severity]models.Priority
	Title           string
	Description     string
	Actions         []models.SuggestedAction
	ExpectedOutcome string
}

var interventionTemplates = map[models.RiskFactorTag]interventionTemplate{
	models.FactorLowGrades: {
		Type:     models.InterventionAcademic,
		Priority: map[models.Severity]models.Priority{models.SeverityHigh: models.PriorityUrgent, models.SeverityMedium: models.PriorityHigh, models.SeverityLow: models.PriorityMedium},
		Title:    "Academic Support Session",
		Description: "Grades are below the expected level for this course. " +
			"Targeted tutoring on recent topics can close the gap before it widens.",
		Actions: []models.SuggestedAction{
			{Action: "Schedule a tutoring session covering recent assignments", Timeline: "within 3 days", Responsible: models.ResponsibleTeacher, Resources: []string{"tutoring center", "office hours"}},
			{Action: "Redo lowest-scoring assignments for partial credit", Timeline: "within 1 week", Responsible: models.ResponsibleStudent},
		},
		ExpectedOutcome: "Grade improvement of 5-10 points within two weeks",
	},
	models.FactorPoorAttendance: {
		Type:     models.InterventionAttendance,
		Priority: map[models.Severity]models.Priority{models.SeverityHigh: models.PriorityUrgent, models.SeverityMedium: models.PriorityHigh, models.SeverityLow: models.PriorityMedium},
		Title:    "Attendance Check-In",
		Description: "Attendance has fallen below the course expectation. " +
			"A direct conversation usually surfaces the underlying cause quickly.",
		Actions: []models.SuggestedAction{
			{Action: "Hold a short conversation about attendance barriers", Timeline: "within 2 days", Responsible: models.ResponsibleTeacher},
			{Action: "Agree on an attendance plan for the coming month", Timeline: "within 1 week", Responsible: models.ResponsibleStudent},
		},
		ExpectedOutcome: "Attendance back above threshold within three weeks",
	},
	models.FactorLowEngagement: {
		Type:     models.InterventionEngagement,
		Priority: map[models.Severity]models.Priority{models.SeverityHigh: models.PriorityHigh, models.SeverityMedium: models.PriorityMedium, models.SeverityLow: models.PriorityLow},
		Title:    "Re-Engagement Plan",
		Description: "Platform engagement is well below the cohort norm. " +
			"Interactive content and short feedback loops tend to pull students back in.",
		Actions: []models.SuggestedAction{
			{Action: "Assign one interactive exercise with quick feedback", Timeline: "within 1 week", Responsible: models.ResponsibleTeacher, Resources: []string{"practice modules"}},
			{Action: "Set a daily 20-minute platform routine", Timeline: "ongoing", Responsible: models.ResponsibleStudent},
		},
		ExpectedOutcome: "Engagement score above threshold within two weeks",
	},
	models.FactorMissedAssignments: {
		Type:     models.InterventionAcademic,
		Priority: map[models.Severity]models.Priority{models.SeverityHigh: models.PriorityUrgent, models.SeverityMedium: models.PriorityHigh, models.SeverityLow: models.PriorityMedium},
		Title:    "Missing Work Recovery",
		Description: "A significant share of assignments was never submitted. " +
			"A catch-up schedule with firm checkpoints prevents the backlog from compounding.",
		Actions: []models.SuggestedAction{
			{Action: "List outstanding assignments and agree deadlines", Timeline: "within 2 days", Responsible: models.ResponsibleTeacher},
			{Action: "Submit one outstanding assignment per checkpoint", Timeline: "weekly", Responsible: models.ResponsibleStudent},
		},
		ExpectedOutcome: "Submission rate above threshold within a month",
	},
	models.FactorLateSubmissions: {
		Type:     models.InterventionBehavioral,
		Priority: map[models.Severity]models.Priority{models.SeverityHigh: models.PriorityHigh, models.SeverityMedium: models.PriorityMedium, models.SeverityLow: models.PriorityLow},
		Title:    "Deadline Management Coaching",
		Description: "Work is being handed in, but consistently late. " +
			"Time-management habits are the usual culprit and respond well to structure.",
		Actions: []models.SuggestedAction{
			{Action: "Introduce a personal deadline calendar with reminders", Timeline: "within 1 week", Responsible: models.ResponsibleStudent, Resources: []string{"planner template"}},
			{Action: "Review submission timing at the next check-in", Timeline: "within 2 weeks", Responsible: models.ResponsibleTeacher},
		},
		ExpectedOutcome: "On-time submission rate above 70% within a month",
	},
	models.FactorDecliningPerformance: {
		Type:     models.InterventionAcademic,
		Priority: map[models.Severity]models.Priority{models.SeverityHigh: models.PriorityUrgent, models.SeverityMedium: models.PriorityHigh, models.SeverityLow: models.PriorityMedium},
		Title:    "Performance Decline Review",
		Description: "Assignment scores show a sustained downward trend. " +
			"Reviewing where the decline started usually points at a specific topic gap.",
		Actions: []models.SuggestedAction{
			{Action: "Walk through the last three assignments together", Timeline: "within 3 days", Responsible: models.ResponsibleTeacher},
			{Action: "Revisit the module where scores first dropped", Timeline: "within 1 week", Responsible: models.ResponsibleStudent},
		},
		ExpectedOutcome: "Score trend flat or improving within two weeks",
	},
	models.FactorInactivity: {
		Type:     models.InterventionEngagement,
		Priority: map[models.Severity]models.Priority{models.SeverityHigh: models.PriorityHigh, models.SeverityMedium: models.PriorityMedium, models.SeverityLow: models.PriorityLow},
		Title:    "Inactivity Outreach",
		Description: "The student has not been active on the platform recently. " +
			"Early outreach prevents a short absence from becoming a drop-out.",
		Actions: []models.SuggestedAction{
			{Action: "Send a personal check-in message", Timeline: "within 1 day", Responsible: models.ResponsibleTeacher},
			{Action: "Log in and complete one pending lesson", Timeline: "within 3 days", Responsible: models.ResponsibleStudent},
		},
		ExpectedOutcome: "Student active again within one week",
	},
}

// InterventionService maps risk factors to structured interventions and
// derives learning recommendations. Configuration-independent.
type InterventionService struct {
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewInterventionService constructs an intervention engine.
func NewInterventionService(logger *zap.Logger) *InterventionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterventionService{logger: logger, now: time.Now, newID: uuid.NewString}
}

// GenerateInterventions builds at most five interventions from the
// assessment's risk factors, ordered by priority then input order. A trend
// set with two or more declining metrics adds a comprehensive support plan
// regardless of individual factors. Unrecognised factor tags are skipped.
func (s *InterventionService) GenerateInterventions(assessment models.RiskAssessment, data models.StudentPerformanceData, trends *models.PerformanceTrend) []models.InterventionRecommendation {
	now := s.now().UTC()
	interventions := make([]models.InterventionRecommendation, 0, len(assessment.RiskFactors)+1)

	for _, factor := range assessment.RiskFactors {
		template, ok := interventionTemplates[factor.Factor]
		if !ok {
			s.logger.Debug("no intervention template for factor", zap.String("factor", string(factor.Factor)))
			continue
		}
		priority, ok := template.Priority[factor.Severity]
		if !ok {
			priority = models.PriorityMedium
		}
		interventions = append(interventions, models.InterventionRecommendation{
			ID:               s.newID(),
			StudentID:        assessment.StudentID,
			CourseID:         assessment.CourseID,
			Type:             template.Type,
			Priority:         priority,
			Title:            template.Title,
			Description:      template.Description,
			SuggestedActions: template.Actions,
			ExpectedOutcome:  template.ExpectedOutcome,
			CreatedAt:        now,
			Status:           models.StatusPending,
		})
	}

	if trends != nil && decliningMetricCount(*trends) >= 2 {
		interventions = append(interventions, s.comprehensivePlan(assessment, now))
	}

	sort.SliceStable(interventions, func(i, j int) bool {
		return interventions[i].Priority.Rank() > interventions[j].Priority.Rank()
	})
	if len(interventions) > maxInterventions {
		interventions = interventions[:maxInterventions]
	}
	return interventions
}

func (s *InterventionService) comprehensivePlan(assessment models.RiskAssessment, now time.Time) models.InterventionRecommendation {
	return models.InterventionRecommendation{
		ID:          s.newID(),
		StudentID:   assessment.StudentID,
		CourseID:    assessment.CourseID,
		Type:        models.InterventionAcademic,
		Priority:    models.PriorityUrgent,
		Title:       "Comprehensive Support Plan",
		Description: "Multiple performance metrics are declining at the same time. A coordinated plan across academics, attendance and engagement is needed rather than isolated fixes.",
		SuggestedActions: []models.SuggestedAction{
			{Action: "Convene a support meeting with the student", Timeline: "within 2 days", Responsible: models.ResponsibleTeacher},
			{Action: "Draft a weekly plan covering study time, attendance and platform work", Timeline: "within 1 week", Responsible: models.ResponsibleTeacher, Resources: []string{"student success office"}},
			{Action: "Commit to the agreed weekly plan", Timeline: "ongoing", Responsible: models.ResponsibleStudent},
		},
		ExpectedOutcome: "All declining metrics stabilised within a month",
		CreatedAt:       now,
		Status:          models.StatusPending,
	}
}

func decliningMetricCount(trends models.PerformanceTrend) int {
	count := 0
	for _, trend := range []models.MetricTrend{trends.Grades, trends.Engagement, trends.Attendance} {
		if trend.Direction == models.TrendDeclining {
			count++
		}
	}
	return count
}

// Fixed numeric priorities for the learning-recommendation rules.
const (
	priorityContentReview = 8
	priorityScheduleFix   = 7
	priorityStudyMethod   = 6
	priorityExtraResource = 5
)

// GenerateLearningRecommendations derives student-facing study suggestions
// from direct thresholds on the input data, independent of risk factors.
// Output is sorted by descending numeric priority.
func (s *InterventionService) GenerateLearningRecommendations(data models.StudentPerformanceData, assessment models.RiskAssessment) []models.LearningRecommendation {
	now := s.now().UTC()
	var recommendations []models.LearningRecommendation

	if data.CurrentGrade < 75 {
		recommendations = append(recommendations, models.LearningRecommendation{
			ID:          s.newID(),
			StudentID:   data.StudentID,
			CourseID:    data.CourseID,
			Type:        models.RecommendContent,
			Title:       "Review Core Course Content",
			Description: "Revisit the foundational lessons for topics covered in recent assignments.",
			Reasoning:   fmt.Sprintf("Current grade of %.1f%% suggests gaps in core material", data.CurrentGrade),
			Resources: []models.LearningResource{
				{Type: models.ResourceVideo, Title: "Topic review playlist", EstimatedTime: 45},
				{Type: models.ResourcePractice, Title: "Foundation practice set", EstimatedTime: 30},
			},
			Priority:  priorityContentReview,
			CreatedAt: now,
			Status:    models.StatusPending,
		})
	}

	if data.Velocity.AverageTimePerAssignment > 120 {
		recommendations = append(recommendations, models.LearningRecommendation{
			ID:          s.newID(),
			StudentID:   data.StudentID,
			CourseID:    data.CourseID,
			Type:        models.RecommendStudyMethod,
			Title:       "Try a Different Study Approach",
			Description: "Break assignments into smaller timed blocks instead of long single sessions.",
			Reasoning:   fmt.Sprintf("Assignments take %.0f minutes on average, well above typical pace", data.Velocity.AverageTimePerAssignment),
			Resources: []models.LearningResource{
				{Type: models.ResourceGuide, Title: "Focused study techniques", EstimatedTime: 15},
			},
			Priority:  priorityStudyMethod,
			CreatedAt: now,
			Status:    models.StatusPending,
		})
	}

	if data.Engagement.LoginFrequency < 3 {
		recommendations = append(recommendations, models.LearningRecommendation{
			ID:          s.newID(),
			StudentID:   data.StudentID,
			CourseID:    data.CourseID,
			Type:        models.RecommendSchedule,
			Title:       "Build a Regular Study Schedule",
			Description: "Short, frequent sessions beat occasional long ones for retention.",
			Reasoning:   fmt.Sprintf("Only %.1f logins per week; frequent short sessions keep material fresh", data.Engagement.LoginFrequency),
			Resources: []models.LearningResource{
				{Type: models.ResourceGuide, Title: "Weekly planning template", EstimatedTime: 10},
			},
			Priority:  priorityScheduleFix,
			CreatedAt: now,
			Status:    models.StatusPending,
		})
	}

	if lowScores := countLowScores(data.AssignmentScores); lowScores > 2 {
		recommendations = append(recommendations, models.LearningRecommendation{
			ID:          s.newID(),
			StudentID:   data.StudentID,
			CourseID:    data.CourseID,
			Type:        models.RecommendResource,
			Title:       "Use Supplementary Materials",
			Description: "Extra worked examples and practice problems for the weakest topics.",
			Reasoning:   fmt.Sprintf("%d assignments scored below 70%% of the maximum", lowScores),
			Resources: []models.LearningResource{
				{Type: models.ResourceArticle, Title: "Worked example library", EstimatedTime: 25},
				{Type: models.ResourcePractice, Title: "Targeted drill set", EstimatedTime: 40},
			},
			Priority:  priorityExtraResource,
			CreatedAt: now,
			Status:    models.StatusPending,
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Priority > recommendations[j].Priority
	})
	return recommendations
}

func countLowScores(scores []models.AssignmentScore) int {
	count := 0
	for _, score := range scores {
		if score.MaxScore > 0 && score.Score < score.MaxScore*0.7 {
			count++
		}
	}
	return count
}
