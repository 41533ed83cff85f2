package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

// EnrollmentRepository reads class membership from the enrollment directory.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new repository instance.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListActiveCohort returns the active students of a class in a term.
func (r *EnrollmentRepository) ListActiveCohort(ctx context.Context, classID, termID string) ([]models.CohortStudent, error) {
	const query = `SELECT e.id AS enrollment_id, e.student_id, st.full_name AS student_name, st.nis AS student_nis
        FROM enrollments e
        JOIN students st ON st.id = e.student_id
        WHERE e.class_id = $1 AND e.term_id = $2 AND e.status = $3
        ORDER BY st.full_name, e.student_id`
	var cohort []models.CohortStudent
	if err := r.db.SelectContext(ctx, &cohort, query, classID, termID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active cohort: %w", err)
	}
	return cohort, nil
}

// ListActiveCohortForYear returns students actively enrolled in a class in
// any term of an academic year, using their latest enrollment.
func (r *EnrollmentRepository) ListActiveCohortForYear(ctx context.Context, classID, academicYear string) ([]models.CohortStudent, error) {
	const query = `SELECT DISTINCT ON (e.student_id) e.id AS enrollment_id, e.student_id, st.full_name AS student_name, st.nis AS student_nis
        FROM enrollments e
        JOIN terms t ON t.id = e.term_id
        JOIN students st ON st.id = e.student_id
        WHERE e.class_id = $1 AND t.academic_year = $2 AND e.status = $3
        ORDER BY e.student_id, t.sequence DESC`
	var cohort []models.CohortStudent
	if err := r.db.SelectContext(ctx, &cohort, query, classID, academicYear, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active cohort for year: %w", err)
	}
	return cohort, nil
}
