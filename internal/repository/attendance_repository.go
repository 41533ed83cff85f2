package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

// attendancePresent is the daily attendance status code for present.
const attendancePresent = "H"

// AttendanceRepository aggregates daily attendance from the attendance store.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new repository instance.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// YearSummaries returns per-student attendance totals for an academic year.
// Students without any tracked day are absent from the map.
func (r *AttendanceRepository) YearSummaries(ctx context.Context, studentIDs []string, academicYear string) (map[string]models.AttendanceSummary, error) {
	result := make(map[string]models.AttendanceSummary, len(studentIDs))
	if len(studentIDs) == 0 {
		return result, nil
	}
	const query = `SELECT e.student_id,
        COUNT(*) FILTER (WHERE da.status = $3) AS present,
        COUNT(*) FILTER (WHERE da.status <> $3) AS absent,
        COUNT(*) AS total
        FROM daily_attendance da
        JOIN enrollments e ON e.id = da.enrollment_id
        JOIN terms t ON t.id = e.term_id
        WHERE e.student_id = ANY($1) AND t.academic_year = $2
        GROUP BY e.student_id`
	var rows []models.AttendanceSummary
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs), academicYear, attendancePresent); err != nil {
		return nil, fmt.Errorf("attendance year summaries: %w", err)
	}
	for _, row := range rows {
		result[row.StudentID] = row
	}
	return result, nil
}
