package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

// ClassRepository reads classes and their subject assignments from the
// classroom directory.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new repository instance.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, level, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListSubjects returns the subjects taught in a class with their maxima.
// Missing maxima are returned as zero.
func (r *ClassRepository) ListSubjects(ctx context.Context, classID string) ([]models.ClassSubject, error) {
	const query = `SELECT cs.class_id, cs.subject_id, s.code AS subject_code, s.name AS subject_name,
        COALESCE(cs.ca_max, 0) AS ca_max, COALESCE(cs.exam_max, 0) AS exam_max
        FROM class_subjects cs
        JOIN subjects s ON s.id = cs.subject_id
        WHERE cs.class_id = $1
        ORDER BY s.name`
	var subjects []models.ClassSubject
	if err := r.db.SelectContext(ctx, &subjects, query, classID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return subjects, nil
}
