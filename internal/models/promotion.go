package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PromotionStatus is the outcome of a promotion decision.
type PromotionStatus string

const (
	PromotionStatusPromoted    PromotionStatus = "PROMOTED"
	PromotionStatusRepeated    PromotionStatus = "REPEATED"
	PromotionStatusConditional PromotionStatus = "CONDITIONAL"
	PromotionStatusGraduated   PromotionStatus = "GRADUATED"
)

// Valid returns true for a supported status.
func (s PromotionStatus) Valid() bool {
	switch s {
	case PromotionStatusPromoted, PromotionStatusRepeated, PromotionStatusConditional, PromotionStatusGraduated:
		return true
	default:
		return false
	}
}

// PromotionSource records whether a decision was derived or overridden.
type PromotionSource string

const (
	PromotionSourceAuto       PromotionSource = "AUTO"
	PromotionSourceOverride   PromotionSource = "OVERRIDE"
	PromotionSourceCorrection PromotionSource = "CORRECTION"
)

// PromotionRule configures promotion from one class level to the next.
// ToLevel is empty for a graduating level. TermWeights are indexed by term
// sequence and must sum to 1 when UseTermWeights is set.
type PromotionRule struct {
	ID                    string          `db:"id" json:"id"`
	FromLevel             string          `db:"from_level" json:"from_level"`
	ToLevel               string          `db:"to_level" json:"to_level"`
	Version               int             `db:"version" json:"version"`
	IsActive              bool            `db:"is_active" json:"is_active"`
	MinAnnualAverage      float64         `db:"min_annual_average" json:"min_annual_average"`
	UseTermWeights        bool            `db:"use_term_weights" json:"use_term_weights"`
	TermWeights           pq.Float64Array `db:"term_weights" json:"term_weights"`
	RequireCoreSubjects   bool            `db:"require_core_subjects" json:"require_core_subjects"`
	CoreSubjectIDs        pq.StringArray  `db:"core_subject_ids" json:"core_subject_ids"`
	MinPassedSubjects     int             `db:"min_passed_subjects" json:"min_passed_subjects"`
	MinSubjectPassPercent float64         `db:"min_subject_pass_percent" json:"min_subject_pass_percent"`
	MinAttendancePercent  float64         `db:"min_attendance_percent" json:"min_attendance_percent"`
	ConditionalBand       float64         `db:"conditional_band" json:"conditional_band"`
	RequiresApproval      bool            `db:"requires_approval" json:"requires_approval"`
	CreatedBy             *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
}

// Graduating reports whether students promoted under this rule leave the school.
func (r PromotionRule) Graduating() bool {
	return r.ToLevel == ""
}

// CoreSubjectOutcome records the pass state of one core subject.
type CoreSubjectOutcome struct {
	SubjectID   string   `json:"subject_id"`
	SubjectName string   `json:"subject_name,omitempty"`
	Best        *float64 `json:"best,omitempty"`
	Passed      bool     `json:"passed"`
}

// CoreSubjectOutcomes is stored as a JSONB column.
type CoreSubjectOutcomes []CoreSubjectOutcome

// Value implements driver.Valuer.
func (c CoreSubjectOutcomes) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *CoreSubjectOutcomes) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported core subject outcomes type %T", src)
	}
}

// StudentPromotion is the immutable record of one promotion decision.
// Corrections append a new record that supersedes the earlier one.
type StudentPromotion struct {
	ID                string              `db:"id" json:"id"`
	StudentID         string              `db:"student_id" json:"student_id"`
	ClassID           string              `db:"class_id" json:"class_id"`
	AcademicYear      string              `db:"academic_year" json:"academic_year"`
	TermAverages      pq.Float64Array     `db:"term_averages" json:"term_averages"`
	AnnualAverage     float64             `db:"annual_average" json:"annual_average"`
	SubjectsPassed    int                 `db:"subjects_passed" json:"subjects_passed"`
	SubjectsFailed    int                 `db:"subjects_failed" json:"subjects_failed"`
	CoreSubjects      CoreSubjectOutcomes `db:"core_subjects" json:"core_subjects"`
	AttendancePercent *float64            `db:"attendance_percent" json:"attendance_percent,omitempty"`
	DaysPresent       int                 `db:"days_present" json:"days_present"`
	DaysTracked       int                 `db:"days_tracked" json:"days_tracked"`
	Status            PromotionStatus     `db:"status" json:"status"`
	Recommended       PromotionStatus     `db:"recommended" json:"recommended"`
	Source            PromotionSource     `db:"source" json:"source"`
	OverrideReason    *string             `db:"override_reason" json:"override_reason,omitempty"`
	RuleID            string              `db:"rule_id" json:"rule_id"`
	RuleVersion       int                 `db:"rule_version" json:"rule_version"`
	ApprovedBy        *string             `db:"approved_by" json:"approved_by,omitempty"`
	ExecutedBy        string              `db:"executed_by" json:"executed_by"`
	CriteriaMet       pq.StringArray      `db:"criteria_met" json:"criteria_met"`
	CriteriaFailed    pq.StringArray      `db:"criteria_failed" json:"criteria_failed"`
	SupersedesID      *string             `db:"supersedes_id" json:"supersedes_id,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
}

// PromotionFilter scopes promotion history listings.
type PromotionFilter struct {
	ClassID      string
	AcademicYear string
	StudentID    string
}
