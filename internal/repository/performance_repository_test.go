package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/lumenlms/insights-api/pkg/errors"
)

func newPerformanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPerformanceRepositoryGetByStudent(t *testing.T) {
	db, mock, cleanup := newPerformanceMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	now := time.Now()

	mock.ExpectQuery("SELECT e.student_id, e.course_id, e.current_grade, e.attendance_rate").
		WithArgs("course-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "course_id", "current_grade", "attendance_rate"}).
			AddRow("student-1", "course-1", 82.5, 0.9))

	mock.ExpectQuery("SELECT s.student_id, s.assignment_id, s.score, s.max_score, s.submitted_at, s.is_late, s.time_spent").
		WithArgs("course-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "assignment_id", "score", "max_score", "submitted_at", "is_late", "time_spent"}).
			AddRow("student-1", "a-1", 85.0, 100.0, now, false, 30).
			AddRow("student-1", "a-2", 72.0, 100.0, now, true, 45))

	mock.ExpectQuery("SELECT DISTINCT ON \\(g.student_id\\) g.student_id").
		WithArgs("course-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"student_id", "login_frequency", "time_on_platform", "lesson_completion_rate",
			"assignment_submission_rate", "forum_participation", "last_activity",
			"avg_time_per_lesson", "avg_time_per_assignment", "completion_trend",
		}).AddRow("student-1", 4.0, 180.0, 0.8, 0.9, 2.0, now, 25.0, 40.0, "stable"))

	data, err := repo.GetByStudent(context.Background(), "course-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, "student-1", data.StudentID)
	assert.Equal(t, 82.5, data.CurrentGrade)
	assert.Len(t, data.AssignmentScores, 2)
	assert.Equal(t, 4.0, data.Engagement.LoginFrequency)
	assert.Equal(t, 25.0, data.Velocity.AverageTimePerLesson)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceRepositoryGetByStudentNotFound(t *testing.T) {
	db, mock, cleanup := newPerformanceMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	mock.ExpectQuery("SELECT e.student_id, e.course_id, e.current_grade, e.attendance_rate").
		WithArgs("course-1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "course_id", "current_grade", "attendance_rate"}))

	_, err := repo.GetByStudent(context.Background(), "course-1", "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newPerformanceMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	now := time.Now()

	mock.ExpectQuery("SELECT e.student_id, e.course_id, e.current_grade, e.attendance_rate").
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "course_id", "current_grade", "attendance_rate"}).
			AddRow("student-1", "course-1", 75.0, 0.85).
			AddRow("student-2", "course-1", 91.0, 0.95))

	mock.ExpectQuery("SELECT s.student_id, s.assignment_id, s.score, s.max_score, s.submitted_at, s.is_late, s.time_spent").
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "assignment_id", "score", "max_score", "submitted_at", "is_late", "time_spent"}).
			AddRow("student-1", "a-1", 70.0, 100.0, now, false, 30))

	mock.ExpectQuery("SELECT DISTINCT ON \\(g.student_id\\) g.student_id").
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"student_id", "login_frequency", "time_on_platform", "lesson_completion_rate",
			"assignment_submission_rate", "forum_participation", "last_activity",
			"avg_time_per_lesson", "avg_time_per_assignment", "completion_trend",
		}).AddRow("student-1", 3.0, 120.0, 0.7, 0.8, 1.0, now, 20.0, 35.0, "stable"))

	result, err := repo.ListByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Len(t, result[0].AssignmentScores, 1)
	// Students without submissions still get a non-nil empty slice.
	assert.NotNil(t, result[1].AssignmentScores)
	assert.Empty(t, result[1].AssignmentScores)
	assert.NoError(t, mock.ExpectationsWereMet())
}
