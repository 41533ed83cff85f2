package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

const gradeScaleColumns = `id, name, version, is_default, bands, created_by, created_at`

// GradeScaleRepository persists versioned grade scales. Rows are never
// updated except for the default flag.
type GradeScaleRepository struct {
	db *sqlx.DB
}

// NewGradeScaleRepository creates a new repository instance.
func NewGradeScaleRepository(db *sqlx.DB) *GradeScaleRepository {
	return &GradeScaleRepository{db: db}
}

// List returns scales, newest version first.
func (r *GradeScaleRepository) List(ctx context.Context, filter models.GradeScaleFilter) ([]models.GradeScale, error) {
	query := `SELECT ` + gradeScaleColumns + ` FROM grade_scales WHERE 1=1`
	args := []interface{}{}
	if filter.Name != "" {
		query += fmt.Sprintf(" AND name = $%d", len(args)+1)
		args = append(args, filter.Name)
	}
	query += " ORDER BY name, version DESC"

	var scales []models.GradeScale
	if err := r.db.SelectContext(ctx, &scales, query, args...); err != nil {
		return nil, fmt.Errorf("list grade scales: %w", err)
	}
	return scales, nil
}

// FindByID returns a scale by id.
func (r *GradeScaleRepository) FindByID(ctx context.Context, id string) (*models.GradeScale, error) {
	const query = `SELECT ` + gradeScaleColumns + ` FROM grade_scales WHERE id = $1`
	var scale models.GradeScale
	if err := r.db.GetContext(ctx, &scale, query, id); err != nil {
		return nil, err
	}
	return &scale, nil
}

// FindDefault returns the default scale.
func (r *GradeScaleRepository) FindDefault(ctx context.Context) (*models.GradeScale, error) {
	const query = `SELECT ` + gradeScaleColumns + ` FROM grade_scales WHERE is_default = TRUE LIMIT 1`
	var scale models.GradeScale
	if err := r.db.GetContext(ctx, &scale, query); err != nil {
		return nil, err
	}
	return &scale, nil
}

// Create inserts a new version of the named scale. When the scale is the
// default, the previous default is cleared in the same transaction.
func (r *GradeScaleRepository) Create(ctx context.Context, scale *models.GradeScale) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	const nextVersion = `SELECT COALESCE(MAX(version), 0) + 1 FROM grade_scales WHERE name = $1`
	if err := tx.GetContext(ctx, &scale.Version, nextVersion, scale.Name); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("next grade scale version: %w", err)
	}
	if scale.ID == "" {
		scale.ID = uuid.NewString()
	}
	if scale.CreatedAt.IsZero() {
		scale.CreatedAt = time.Now().UTC()
	}
	if scale.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE grade_scales SET is_default = FALSE WHERE is_default = TRUE`); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("clear default grade scale: %w", err)
		}
	}

	const insert = `INSERT INTO grade_scales (id, name, version, is_default, bands, created_by, created_at)
        VALUES (:id, :name, :version, :is_default, :bands, :created_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, scale); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert grade scale: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade scale: %w", err)
	}
	return nil
}

// SetDefault makes id the only default scale.
func (r *GradeScaleRepository) SetDefault(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE grade_scales SET is_default = FALSE WHERE is_default = TRUE AND id <> $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear default grade scale: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE grade_scales SET is_default = TRUE WHERE id = $1`, id)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("set default grade scale: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit default grade scale: %w", err)
	}
	return nil
}
