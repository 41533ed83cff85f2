package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

func TestEnrollmentRepositoryListActiveCohort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"enrollment_id", "student_id", "student_name", "student_nis"}).
		AddRow("enr-1", "s1", "Ada", "1001").
		AddRow("enr-2", "s2", "Bola", "1002")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.class_id = $1 AND e.term_id = $2 AND e.status = $3")).
		WithArgs("class-1", "term-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	cohort, err := repo.ListActiveCohort(context.Background(), "class-1", "term-1")
	require.NoError(t, err)
	require.Len(t, cohort, 2)
	assert.Equal(t, "enr-2", cohort[1].EnrollmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryListByEnrollments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	rows := sqlmock.NewRows([]string{"enrollment_id", "student_id", "subject_id", "ca_score", "exam_score"}).
		AddRow("enr-1", "s1", "math", 35.0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.enrollment_id = ANY($1)")).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)

	marks, err := repo.ListByEnrollments(context.Background(), []string{"enr-1"})
	require.NoError(t, err)
	require.Len(t, marks, 1)
	require.NotNil(t, marks[0].CAScore)
	assert.Equal(t, 35.0, *marks[0].CAScore)
	assert.Nil(t, marks[0].ExamScore)
	require.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.ListByEnrollments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAttendanceRepositoryYearSummaries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "present", "absent", "total"}).AddRow("s1", 160, 20, 180)
	mock.ExpectQuery("FROM daily_attendance da").
		WithArgs(sqlmock.AnyArg(), "2025/2026", "H").
		WillReturnRows(rows)

	summaries, err := repo.YearSummaries(context.Background(), []string{"s1", "s2"}, "2025/2026")
	require.NoError(t, err)
	assert.Equal(t, 180, summaries["s1"].Total)
	_, ok := summaries["s2"]
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListSubjects(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"class_id", "subject_id", "subject_code", "subject_name", "ca_max", "exam_max"}).
		AddRow("class-1", "math", "MTH", "Mathematics", 30.0, 70.0).
		AddRow("class-1", "eng", "ENG", "English", 0.0, 0.0)
	mock.ExpectQuery("FROM class_subjects cs").WithArgs("class-1").WillReturnRows(rows)

	subjects, err := repo.ListSubjects(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, 70.0, subjects[0].ExamMax)
	require.NoError(t, mock.ExpectationsWereMet())
}
