package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

const termColumns = `id, name, academic_year, sequence, start_date, end_date, is_active`

// TermRepository reads academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository creates a new repository instance.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// FindByID returns a term by id.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT ` + termColumns + ` FROM terms WHERE id = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// ListByYear returns the terms of an academic year in sequence order.
func (r *TermRepository) ListByYear(ctx context.Context, academicYear string) ([]models.Term, error) {
	const query = `SELECT ` + termColumns + ` FROM terms WHERE academic_year = $1 ORDER BY sequence`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, academicYear); err != nil {
		return nil, fmt.Errorf("list terms by year: %w", err)
	}
	return terms, nil
}
