package models

import "time"

// InterventionType groups interventions by the concern they address.
type InterventionType string

const (
	InterventionAcademic   InterventionType = "academic"
	InterventionAttendance InterventionType = "attendance"
	InterventionEngagement InterventionType = "engagement"
	InterventionBehavioral InterventionType = "behavioral"
)

// Priority ranks intervention urgency.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities from low (1) to urgent (4).
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Responsible names the party who owns a suggested action.
type Responsible string

const (
	ResponsibleTeacher Responsible = "teacher"
	ResponsibleStudent Responsible = "student"
)

// SuggestedAction is one concrete step inside an intervention.
type SuggestedAction struct {
	Action      string      `json:"action"`
	Timeline    string      `json:"timeline"`
	Responsible Responsible `json:"responsible"`
	Resources   []string    `json:"resources,omitempty"`
}

// RecommendationStatus tracks the lifecycle of a recommendation. The insight
// engines only ever emit the pending state; transitions belong to callers.
type RecommendationStatus string

const StatusPending RecommendationStatus = "pending"

// InterventionRecommendation is a structured, teacher-facing intervention.
type InterventionRecommendation struct {
	ID               string               `json:"id"`
	StudentID        string               `json:"student_id"`
	CourseID         string               `json:"course_id"`
	Type             InterventionType     `json:"type"`
	Priority         Priority             `json:"priority"`
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	SuggestedActions []SuggestedAction    `json:"suggested_actions"`
	ExpectedOutcome  string               `json:"expected_outcome"`
	CreatedAt        time.Time            `json:"created_at"`
	Status           RecommendationStatus `json:"status"`
}

// LearningResourceType classifies a recommended resource.
type LearningResourceType string

const (
	ResourceVideo    LearningResourceType = "video"
	ResourceArticle  LearningResourceType = "article"
	ResourcePractice LearningResourceType = "practice"
	ResourceGuide    LearningResourceType = "guide"
)

// LearningResource points a student at supporting material.
type LearningResource struct {
	Type          LearningResourceType `json:"type"`
	Title         string               `json:"title"`
	URL           string               `json:"url,omitempty"`
	EstimatedTime int                  `json:"estimated_time_minutes"`
}

// LearningRecommendationType groups learning recommendations.
type LearningRecommendationType string

const (
	RecommendContent     LearningRecommendationType = "content"
	RecommendStudyMethod LearningRecommendationType = "study_method"
	RecommendSchedule    LearningRecommendationType = "schedule"
	RecommendResource    LearningRecommendationType = "resource"
)

// LearningRecommendation is a student-facing study suggestion. Priority is
// numeric; higher values are more urgent.
type LearningRecommendation struct {
	ID          string                     `json:"id"`
	StudentID   string                     `json:"student_id"`
	CourseID    string                     `json:"course_id"`
	Type        LearningRecommendationType `json:"type"`
	Title       string                     `json:"title"`
	Description string                     `json:"description"`
	Reasoning   string                     `json:"reasoning"`
	Resources   []LearningResource         `json:"resources"`
	Priority    int                        `json:"priority"`
	CreatedAt   time.Time                  `json:"created_at"`
	Status      RecommendationStatus       `json:"status"`
}
