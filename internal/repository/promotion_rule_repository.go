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

const promotionRuleColumns = `id, from_level, to_level, version, is_active, min_annual_average, use_term_weights, term_weights,
        require_core_subjects, core_subject_ids, min_passed_subjects, min_subject_pass_percent, min_attendance_percent,
        conditional_band, requires_approval, created_by, created_at`

// PromotionRuleRepository persists versioned promotion rules.
type PromotionRuleRepository struct {
	db *sqlx.DB
}

// NewPromotionRuleRepository creates a new repository instance.
func NewPromotionRuleRepository(db *sqlx.DB) *PromotionRuleRepository {
	return &PromotionRuleRepository{db: db}
}

// List returns rules, optionally narrowed to a level pair.
func (r *PromotionRuleRepository) List(ctx context.Context, fromLevel, toLevel string) ([]models.PromotionRule, error) {
	query := `SELECT ` + promotionRuleColumns + ` FROM promotion_rules WHERE 1=1`
	args := []interface{}{}
	if fromLevel != "" {
		query += fmt.Sprintf(" AND from_level = $%d", len(args)+1)
		args = append(args, fromLevel)
	}
	if toLevel != "" {
		query += fmt.Sprintf(" AND to_level = $%d", len(args)+1)
		args = append(args, toLevel)
	}
	query += " ORDER BY from_level, to_level, version DESC"

	var rules []models.PromotionRule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		return nil, fmt.Errorf("list promotion rules: %w", err)
	}
	return rules, nil
}

// FindByID returns a rule by id.
func (r *PromotionRuleRepository) FindByID(ctx context.Context, id string) (*models.PromotionRule, error) {
	const query = `SELECT ` + promotionRuleColumns + ` FROM promotion_rules WHERE id = $1`
	var rule models.PromotionRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListActiveByLevel returns the active rules for students leaving fromLevel.
func (r *PromotionRuleRepository) ListActiveByLevel(ctx context.Context, fromLevel string) ([]models.PromotionRule, error) {
	const query = `SELECT ` + promotionRuleColumns + ` FROM promotion_rules WHERE from_level = $1 AND is_active = TRUE ORDER BY to_level`
	var rules []models.PromotionRule
	if err := r.db.SelectContext(ctx, &rules, query, fromLevel); err != nil {
		return nil, fmt.Errorf("list active promotion rules: %w", err)
	}
	return rules, nil
}

// Create inserts the next version for the rule's level pair. An active rule
// deactivates the pair's previous versions in the same transaction.
func (r *PromotionRuleRepository) Create(ctx context.Context, rule *models.PromotionRule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	const nextVersion = `SELECT COALESCE(MAX(version), 0) + 1 FROM promotion_rules WHERE from_level = $1 AND to_level = $2`
	if err := tx.GetContext(ctx, &rule.Version, nextVersion, rule.FromLevel, rule.ToLevel); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("next promotion rule version: %w", err)
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	if rule.IsActive {
		if err := deactivateRulesTx(ctx, tx, rule.FromLevel, rule.ToLevel); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
	}

	const insert = `INSERT INTO promotion_rules (id, from_level, to_level, version, is_active, min_annual_average, use_term_weights,
            term_weights, require_core_subjects, core_subject_ids, min_passed_subjects, min_subject_pass_percent,
            min_attendance_percent, conditional_band, requires_approval, created_by, created_at)
        VALUES (:id, :from_level, :to_level, :version, :is_active, :min_annual_average, :use_term_weights,
            :term_weights, :require_core_subjects, :core_subject_ids, :min_passed_subjects, :min_subject_pass_percent,
            :min_attendance_percent, :conditional_band, :requires_approval, :created_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, rule); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert promotion rule: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit promotion rule: %w", err)
	}
	return nil
}

// Activate makes id the only active version of its level pair.
func (r *PromotionRuleRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	var pair struct {
		FromLevel string `db:"from_level"`
		ToLevel   string `db:"to_level"`
	}
	if err := tx.GetContext(ctx, &pair, `SELECT from_level, to_level FROM promotion_rules WHERE id = $1 FOR UPDATE`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("load promotion rule: %w", err)
	}
	if err := deactivateRulesTx(ctx, tx, pair.FromLevel, pair.ToLevel); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE promotion_rules SET is_active = TRUE WHERE id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("activate promotion rule: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit promotion rule activation: %w", err)
	}
	return nil
}

func deactivateRulesTx(ctx context.Context, tx *sqlx.Tx, fromLevel, toLevel string) error {
	const query = `UPDATE promotion_rules SET is_active = FALSE WHERE from_level = $1 AND to_level = $2 AND is_active = TRUE`
	if _, err := tx.ExecContext(ctx, query, fromLevel, toLevel); err != nil {
		return fmt.Errorf("deactivate promotion rules: %w", err)
	}
	return nil
}
