package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lumenlms/insights-api/internal/models"
	appErrors "github.com/lumenlms/insights-api/pkg/errors"
)

// PerformanceRepository assembles per-student performance snapshots from the
// read-only reporting tables. The insight engines treat the result as
// immutable input; nothing derived is ever written back.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository constructs a PerformanceRepository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

type enrollmentRow struct {
	StudentID      string  `db:"student_id"`
	CourseID       string  `db:"course_id"`
	CurrentGrade   float64 `db:"current_grade"`
	AttendanceRate float64 `db:"attendance_rate"`
}

type engagementRow struct {
	StudentID string `db:"student_id"`
	models.EngagementMetrics
	models.LearningVelocity
}

// GetByStudent loads the performance snapshot for one enrollment. Returns
// appErrors.ErrNotFound when the student is not enrolled in the course.
func (r *PerformanceRepository) GetByStudent(ctx context.Context, courseID, studentID string) (*models.StudentPerformanceData, error) {
	const query = `SELECT e.student_id, e.course_id, e.current_grade, e.attendance_rate
        FROM course_enrollments e
        WHERE e.course_id = $1 AND e.student_id = $2 AND e.status = 'active'`

	var enrollment enrollmentRow
	if err := r.db.GetContext(ctx, &enrollment, query, courseID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}

	scores, err := r.assignmentScores(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}

	engagement, err := r.engagementSnapshots(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}

	data := assemble(enrollment, scores[studentID], engagement[studentID])
	return &data, nil
}

// ListByCourse loads performance snapshots for every active enrollment in the
// course, ordered by student ID.
func (r *PerformanceRepository) ListByCourse(ctx context.Context, courseID string) ([]models.StudentPerformanceData, error) {
	const query = `SELECT e.student_id, e.course_id, e.current_grade, e.attendance_rate
        FROM course_enrollments e
        WHERE e.course_id = $1 AND e.status = 'active'
        ORDER BY e.student_id`

	var enrollments []enrollmentRow
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	scores, err := r.assignmentScores(ctx, courseID, "")
	if err != nil {
		return nil, err
	}

	engagement, err := r.engagementSnapshots(ctx, courseID, "")
	if err != nil {
		return nil, err
	}

	result := make([]models.StudentPerformanceData, 0, len(enrollments))
	for _, enrollment := range enrollments {
		result = append(result, assemble(enrollment, scores[enrollment.StudentID], engagement[enrollment.StudentID]))
	}
	return result, nil
}

func (r *PerformanceRepository) assignmentScores(ctx context.Context, courseID, studentID string) (map[string][]models.AssignmentScore, error) {
	query := `SELECT s.student_id, s.assignment_id, s.score, s.max_score, s.submitted_at, s.is_late, s.time_spent
        FROM assignment_submissions s
        WHERE s.course_id = $1`
	args := []interface{}{courseID}
	if studentID != "" {
		query += " AND s.student_id = $2"
		args = append(args, studentID)
	}
	query += " ORDER BY s.submitted_at ASC"

	type scoreRow struct {
		StudentID string `db:"student_id"`
		models.AssignmentScore
	}
	var rows []scoreRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list assignment submissions: %w", err)
	}

	grouped := make(map[string][]models.AssignmentScore, len(rows))
	for _, row := range rows {
		grouped[row.StudentID] = append(grouped[row.StudentID], row.AssignmentScore)
	}
	return grouped, nil
}

func (r *PerformanceRepository) engagementSnapshots(ctx context.Context, courseID, studentID string) (map[string]engagementRow, error) {
	query := `SELECT DISTINCT ON (g.student_id) g.student_id, g.login_frequency, g.time_on_platform,
        g.lesson_completion_rate, g.assignment_submission_rate, g.forum_participation, g.last_activity,
        g.avg_time_per_lesson, g.avg_time_per_assignment, g.completion_trend
        FROM engagement_snapshots g
        WHERE g.course_id = $1`
	args := []interface{}{courseID}
	if studentID != "" {
		query += " AND g.student_id = $2"
		args = append(args, studentID)
	}
	query += " ORDER BY g.student_id, g.recorded_at DESC"

	var rows []engagementRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list engagement snapshots: %w", err)
	}

	grouped := make(map[string]engagementRow, len(rows))
	for _, row := range rows {
		grouped[row.StudentID] = row
	}
	return grouped, nil
}

func assemble(enrollment enrollmentRow, scores []models.AssignmentScore, engagement engagementRow) models.StudentPerformanceData {
	if scores == nil {
		scores = []models.AssignmentScore{}
	}
	return models.StudentPerformanceData{
		StudentID:        enrollment.StudentID,
		CourseID:         enrollment.CourseID,
		CurrentGrade:     enrollment.CurrentGrade,
		AssignmentScores: scores,
		AttendanceRate:   enrollment.AttendanceRate,
		Engagement:       engagement.EngagementMetrics,
		Velocity:         engagement.LearningVelocity,
	}
}
