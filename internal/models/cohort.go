package models

// GradeDistributionBucket is one band of the cohort grade distribution.
type GradeDistributionBucket struct {
	Range      string  `json:"range"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CohortMetrics aggregates a course's students.
type CohortMetrics struct {
	AverageGrade      float64                   `json:"average_grade"`
	MedianGrade       float64                   `json:"median_grade"`
	GradeDistribution []GradeDistributionBucket `json:"grade_distribution"`
	AttendanceRate    float64                   `json:"attendance_rate"`
	CompletionRate    float64                   `json:"completion_rate"`
	EngagementScore   float64                   `json:"engagement_score"`
}

// StudentComparison positions one student against the cohort aggregate.
type StudentComparison struct {
	StudentID       string  `json:"student_id"`
	Grade           float64 `json:"grade"`
	GradeDelta      float64 `json:"grade_delta"`
	AttendanceDelta float64 `json:"attendance_delta"`
	EngagementDelta float64 `json:"engagement_delta"`
	Rank            int     `json:"rank"`
	Percentile      float64 `json:"percentile"`
}

// CohortComparison is the aggregate view of all students in a course.
type CohortComparison struct {
	CourseID           string              `json:"course_id"`
	Timeframe          Timeframe           `json:"timeframe"`
	Metrics            CohortMetrics       `json:"metrics"`
	StudentComparisons []StudentComparison `json:"student_comparisons"`
}

// CohortInsights carries prose findings derived from a cohort analysis.
type CohortInsights struct {
	Insights           []string `json:"insights"`
	Recommendations    []string `json:"recommendations"`
	ConcerningTrends   []string `json:"concerning_trends"`
	PositiveHighlights []string `json:"positive_highlights"`
}
