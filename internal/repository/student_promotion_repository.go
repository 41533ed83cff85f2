package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-results/internal/models"
	"github.com/noah-isme/sma-adp-results/pkg/database"
)

const studentPromotionColumns = `id, student_id, class_id, academic_year, term_averages, annual_average, subjects_passed, subjects_failed,
        core_subjects, attendance_percent, days_present, days_tracked, status, recommended, source, override_reason, rule_id,
        rule_version, approved_by, executed_by, criteria_met, criteria_failed, supersedes_id, created_at`

const insertStudentPromotion = `INSERT INTO student_promotions (id, student_id, class_id, academic_year, term_averages, annual_average,
            subjects_passed, subjects_failed, core_subjects, attendance_percent, days_present, days_tracked, status, recommended,
            source, override_reason, rule_id, rule_version, approved_by, executed_by, criteria_met, criteria_failed,
            supersedes_id, created_at)
        VALUES (:id, :student_id, :class_id, :academic_year, :term_averages, :annual_average,
            :subjects_passed, :subjects_failed, :core_subjects, :attendance_percent, :days_present, :days_tracked, :status, :recommended,
            :source, :override_reason, :rule_id, :rule_version, :approved_by, :executed_by, :criteria_met, :criteria_failed,
            :supersedes_id, :created_at)`

// StudentPromotionRepository stores append-only promotion records.
type StudentPromotionRepository struct {
	db *sqlx.DB
}

// NewStudentPromotionRepository creates a new repository instance.
func NewStudentPromotionRepository(db *sqlx.DB) *StudentPromotionRepository {
	return &StudentPromotionRepository{db: db}
}

// ExistingStudentIDs returns which of the students already have a decision
// for the academic year.
func (r *StudentPromotionRepository) ExistingStudentIDs(ctx context.Context, studentIDs []string, academicYear string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(studentIDs) == 0 {
		return result, nil
	}
	const query = `SELECT DISTINCT student_id FROM student_promotions WHERE student_id = ANY($1) AND academic_year = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(studentIDs), academicYear); err != nil {
		return nil, fmt.Errorf("existing promotions: %w", err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// CreateBatch writes every record in a single transaction.
func (r *StudentPromotionRepository) CreateBatch(ctx context.Context, records []models.StudentPromotion) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range records {
			prepareStudentPromotion(&records[i], now)
			if _, err := tx.NamedExecContext(ctx, insertStudentPromotion, records[i]); err != nil {
				return fmt.Errorf("insert student promotion: %w", err)
			}
		}
		return nil
	})
}

// Create appends a single record, used for corrections.
func (r *StudentPromotionRepository) Create(ctx context.Context, record *models.StudentPromotion) error {
	prepareStudentPromotion(record, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertStudentPromotion, record); err != nil {
		return fmt.Errorf("insert student promotion: %w", err)
	}
	return nil
}

// FindByID returns one record.
func (r *StudentPromotionRepository) FindByID(ctx context.Context, id string) (*models.StudentPromotion, error) {
	const query = `SELECT ` + studentPromotionColumns + ` FROM student_promotions WHERE id = $1`
	var record models.StudentPromotion
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// IsSuperseded reports whether a later record supersedes id.
func (r *StudentPromotionRepository) IsSuperseded(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM student_promotions WHERE supersedes_id = $1)`, id); err != nil {
		return false, fmt.Errorf("check superseded promotion: %w", err)
	}
	return exists, nil
}

// List returns records matching filter, oldest first.
func (r *StudentPromotionRepository) List(ctx context.Context, filter models.PromotionFilter) ([]models.StudentPromotion, error) {
	query := `SELECT ` + studentPromotionColumns + ` FROM student_promotions WHERE 1=1`
	args := []interface{}{}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.AcademicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, filter.AcademicYear)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	query += " ORDER BY created_at, student_id"

	var records []models.StudentPromotion
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list student promotions: %w", err)
	}
	return records, nil
}

func prepareStudentPromotion(record *models.StudentPromotion, now time.Time) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.CriteriaMet == nil {
		record.CriteriaMet = pq.StringArray{}
	}
	if record.CriteriaFailed == nil {
		record.CriteriaFailed = pq.StringArray{}
	}
	if record.TermAverages == nil {
		record.TermAverages = pq.Float64Array{}
	}
}
