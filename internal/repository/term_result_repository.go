package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

const termResultColumns = `tr.id, tr.term_id, tr.class_id, tr.student_id, tr.enrollment_id, COALESCE(st.full_name, '') AS student_name,
        tr.grade_scale_id, tr.total_marks, tr.total_possible, tr.percentage, tr.grade, tr.gpa, tr.position, tr.class_size,
        tr.pending, tr.is_published, tr.published_at, tr.computed_at, tr.remarks`

const subjectResultColumns = `id, term_result_id, subject_id, subject_code, subject_name, ca_score, ca_max, exam_score, exam_max,
        ca_assessed, exam_assessed, total, max_total, percentage, grade, grade_point, rank, cohort_average, cohort_highest, cohort_lowest`

// TermResultRepository persists computed term results and their subject rows.
type TermResultRepository struct {
	db *sqlx.DB
}

// NewTermResultRepository constructs repository.
func NewTermResultRepository(db *sqlx.DB) *TermResultRepository {
	return &TermResultRepository{db: db}
}

// PublishState counts results for a class and term and how many are published.
func (r *TermResultRepository) PublishState(ctx context.Context, termID, classID string) (total int, published int, err error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_published) AS published
        FROM term_results WHERE term_id = $1 AND class_id = $2`
	var state struct {
		Total     int `db:"total"`
		Published int `db:"published"`
	}
	if err := r.db.GetContext(ctx, &state, query, termID, classID); err != nil {
		return 0, 0, fmt.Errorf("term result publish state: %w", err)
	}
	return state.Total, state.Published, nil
}

// ReplaceClassResults swaps the class's result set for a term in one
// transaction. Existing rows keep their id and remarks, every row ends up
// unpublished, and students no longer in the set lose their result.
func (r *TermResultRepository) ReplaceClassResults(ctx context.Context, termID, classID string, results []models.TermResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	existing := make(map[string]string)
	rows, err := tx.QueryxContext(ctx, `SELECT id, student_id FROM term_results WHERE term_id = $1 AND class_id = $2 FOR UPDATE`, termID, classID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("lock term results: %w", err)
	}
	for rows.Next() {
		var id, studentID string
		if err := rows.Scan(&id, &studentID); err != nil {
			rows.Close()
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("scan term result: %w", err)
		}
		existing[studentID] = id
	}
	rows.Close()

	const upsert = `INSERT INTO term_results (id, term_id, class_id, student_id, enrollment_id, grade_scale_id, total_marks, total_possible,
            percentage, grade, gpa, position, class_size, pending, is_published, published_at, computed_at)
        VALUES (:id, :term_id, :class_id, :student_id, :enrollment_id, :grade_scale_id, :total_marks, :total_possible,
            :percentage, :grade, :gpa, :position, :class_size, :pending, FALSE, NULL, :computed_at)
        ON CONFLICT (id) DO UPDATE SET enrollment_id = EXCLUDED.enrollment_id, grade_scale_id = EXCLUDED.grade_scale_id,
            total_marks = EXCLUDED.total_marks, total_possible = EXCLUDED.total_possible, percentage = EXCLUDED.percentage,
            grade = EXCLUDED.grade, gpa = EXCLUDED.gpa, position = EXCLUDED.position, class_size = EXCLUDED.class_size,
            pending = EXCLUDED.pending, is_published = FALSE, published_at = NULL, computed_at = EXCLUDED.computed_at`
	const insertSubject = `INSERT INTO subject_results (id, term_result_id, subject_id, subject_code, subject_name, ca_score, ca_max,
            exam_score, exam_max, ca_assessed, exam_assessed, total, max_total, percentage, grade, grade_point, rank,
            cohort_average, cohort_highest, cohort_lowest)
        VALUES (:id, :term_result_id, :subject_id, :subject_code, :subject_name, :ca_score, :ca_max,
            :exam_score, :exam_max, :ca_assessed, :exam_assessed, :total, :max_total, :percentage, :grade, :grade_point, :rank,
            :cohort_average, :cohort_highest, :cohort_lowest)`

	now := time.Now().UTC()
	ids := make([]string, 0, len(results))
	for i := range results {
		result := &results[i]
		if id, ok := existing[result.StudentID]; ok {
			result.ID = id
		} else if result.ID == "" {
			result.ID = uuid.NewString()
		}
		if result.ComputedAt.IsZero() {
			result.ComputedAt = now
		}
		result.TermID, result.ClassID = termID, classID
		result.IsPublished, result.PublishedAt = false, nil
		ids = append(ids, result.ID)

		if _, err := tx.NamedExecContext(ctx, upsert, result); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert term result: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM subject_results WHERE term_result_id IN (SELECT id FROM term_results WHERE term_id = $1 AND class_id = $2)`, termID, classID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear subject results: %w", err)
	}
	for i := range results {
		for j := range results[i].Subjects {
			subject := &results[i].Subjects[j]
			subject.ID = uuid.NewString()
			subject.TermResultID = results[i].ID
			if _, err := tx.NamedExecContext(ctx, insertSubject, subject); err != nil {
				tx.Rollback() //nolint:errcheck
				return fmt.Errorf("insert subject result: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM term_results WHERE term_id = $1 AND class_id = $2 AND NOT (id = ANY($3))`, termID, classID, pq.Array(ids)); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete stale term results: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit term results: %w", err)
	}
	return nil
}

// SetPublished toggles visibility for every result of a class and term.
// Publishing keeps the first publish timestamp of rows already published.
func (r *TermResultRepository) SetPublished(ctx context.Context, termID, classID string, publish bool, at time.Time) (int64, error) {
	const query = `UPDATE term_results
        SET is_published = $1, published_at = CASE WHEN $1 THEN COALESCE(published_at, $2) ELSE NULL END
        WHERE term_id = $3 AND class_id = $4`
	res, err := r.db.ExecContext(ctx, query, publish, at, termID, classID)
	if err != nil {
		return 0, fmt.Errorf("set term results published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("term results affected: %w", err)
	}
	return affected, nil
}

// UpdateRemarks sets the free-text remarks of one result.
func (r *TermResultRepository) UpdateRemarks(ctx context.Context, id string, remarks *string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE term_results SET remarks = $1 WHERE id = $2`, remarks, id); err != nil {
		return fmt.Errorf("update remarks: %w", err)
	}
	return nil
}

// FindByID returns a result with its subjects.
func (r *TermResultRepository) FindByID(ctx context.Context, id string) (*models.TermResult, error) {
	query := `SELECT ` + termResultColumns + `
        FROM term_results tr
        LEFT JOIN students st ON st.id = tr.student_id
        WHERE tr.id = $1`
	var result models.TermResult
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	subjects, err := r.loadSubjects(ctx, []string{result.ID})
	if err != nil {
		return nil, err
	}
	result.Subjects = subjects[result.ID]
	return &result, nil
}

// List returns results matching filter ordered by class position.
func (r *TermResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.TermResult, error) {
	query := `SELECT ` + termResultColumns + `
        FROM term_results tr
        LEFT JOIN students st ON st.id = tr.student_id
        WHERE 1=1`
	args := []interface{}{}
	if filter.TermID != "" {
		query += fmt.Sprintf(" AND tr.term_id = $%d", len(args)+1)
		args = append(args, filter.TermID)
	}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND tr.class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND tr.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.PublishedOnly {
		query += " AND tr.is_published = TRUE"
	}
	query += " ORDER BY tr.position, tr.student_id"

	var results []models.TermResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("list term results: %w", err)
	}
	return r.attachSubjects(ctx, results)
}

// ListPublishedForYear returns published results of the given students for
// every term of an academic year, with term sequence populated.
func (r *TermResultRepository) ListPublishedForYear(ctx context.Context, studentIDs []string, academicYear string) ([]models.TermResult, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + termResultColumns + `, t.sequence AS term_sequence
        FROM term_results tr
        JOIN terms t ON t.id = tr.term_id
        LEFT JOIN students st ON st.id = tr.student_id
        WHERE tr.student_id = ANY($1) AND t.academic_year = $2 AND tr.is_published = TRUE
        ORDER BY tr.student_id, t.sequence`
	var results []models.TermResult
	if err := r.db.SelectContext(ctx, &results, query, pq.Array(studentIDs), academicYear); err != nil {
		return nil, fmt.Errorf("list term results for year: %w", err)
	}
	return r.attachSubjects(ctx, results)
}

func (r *TermResultRepository) attachSubjects(ctx context.Context, results []models.TermResult) ([]models.TermResult, error) {
	if len(results) == 0 {
		return results, nil
	}
	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].ID
	}
	subjects, err := r.loadSubjects(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Subjects = subjects[results[i].ID]
	}
	return results, nil
}

func (r *TermResultRepository) loadSubjects(ctx context.Context, termResultIDs []string) (map[string][]models.SubjectResult, error) {
	query := `SELECT ` + subjectResultColumns + ` FROM subject_results WHERE term_result_id = ANY($1) ORDER BY subject_name, subject_id`
	var rows []models.SubjectResult
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(termResultIDs)); err != nil {
		return nil, fmt.Errorf("load subject results: %w", err)
	}
	grouped := make(map[string][]models.SubjectResult, len(termResultIDs))
	for _, row := range rows {
		grouped[row.TermResultID] = append(grouped[row.TermResultID], row)
	}
	return grouped, nil
}
