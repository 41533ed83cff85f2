package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

// MarkRepository reads raw CA and exam scores from the mark entry store.
// It never writes marks.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new repository instance.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// ListByEnrollments returns marks recorded for the given enrollments.
func (r *MarkRepository) ListByEnrollments(ctx context.Context, enrollmentIDs []string) ([]models.MarkEntry, error) {
	if len(enrollmentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT m.enrollment_id, e.student_id, m.subject_id, m.ca_score, m.exam_score
        FROM mark_entries m
        JOIN enrollments e ON e.id = m.enrollment_id
        WHERE m.enrollment_id = ANY($1)`
	var marks []models.MarkEntry
	if err := r.db.SelectContext(ctx, &marks, query, pq.Array(enrollmentIDs)); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}
