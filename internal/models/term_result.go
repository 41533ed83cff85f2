package models

import "time"

// SubjectResult is one student's computed score in one subject for a term.
type SubjectResult struct {
	ID            string  `db:"id" json:"id"`
	TermResultID  string  `db:"term_result_id" json:"term_result_id"`
	SubjectID     string  `db:"subject_id" json:"subject_id"`
	SubjectCode   string  `db:"subject_code" json:"subject_code"`
	SubjectName   string  `db:"subject_name" json:"subject_name"`
	CAScore       float64 `db:"ca_score" json:"ca_score"`
	CAMax         float64 `db:"ca_max" json:"ca_max"`
	ExamScore     float64 `db:"exam_score" json:"exam_score"`
	ExamMax       float64 `db:"exam_max" json:"exam_max"`
	CAAssessed    bool    `db:"ca_assessed" json:"ca_assessed"`
	ExamAssessed  bool    `db:"exam_assessed" json:"exam_assessed"`
	Total         float64 `db:"total" json:"total"`
	MaxTotal      float64 `db:"max_total" json:"max_total"`
	Percentage    float64 `db:"percentage" json:"percentage"`
	Grade         string  `db:"grade" json:"grade"`
	GradePoint    float64 `db:"grade_point" json:"grade_point"`
	Rank          *int    `db:"rank" json:"rank,omitempty"`
	CohortAverage float64 `db:"cohort_average" json:"cohort_average"`
	CohortHighest float64 `db:"cohort_highest" json:"cohort_highest"`
	CohortLowest  float64 `db:"cohort_lowest" json:"cohort_lowest"`
}

// Pending reports whether a component has not been assessed yet.
func (s SubjectResult) Pending() bool {
	return !s.CAAssessed || !s.ExamAssessed
}

// TermResult is one student's result for one class and term. It owns its
// SubjectResults.
type TermResult struct {
	ID            string          `db:"id" json:"id"`
	TermID        string          `db:"term_id" json:"term_id"`
	ClassID       string          `db:"class_id" json:"class_id"`
	StudentID     string          `db:"student_id" json:"student_id"`
	EnrollmentID  string          `db:"enrollment_id" json:"enrollment_id"`
	StudentName   string          `db:"student_name" json:"student_name,omitempty"`
	TermSequence  int             `db:"term_sequence" json:"term_sequence,omitempty"`
	GradeScaleID  string          `db:"grade_scale_id" json:"grade_scale_id"`
	TotalMarks    float64         `db:"total_marks" json:"total_marks"`
	TotalPossible float64         `db:"total_possible" json:"total_possible"`
	Percentage    float64         `db:"percentage" json:"percentage"`
	Grade         string          `db:"grade" json:"grade"`
	GPA           float64         `db:"gpa" json:"gpa"`
	Position      int             `db:"position" json:"position"`
	ClassSize     int             `db:"class_size" json:"class_size"`
	Pending       bool            `db:"pending" json:"pending"`
	IsPublished   bool            `db:"is_published" json:"is_published"`
	PublishedAt   *time.Time      `db:"published_at" json:"published_at,omitempty"`
	ComputedAt    time.Time       `db:"computed_at" json:"computed_at"`
	Remarks       *string         `db:"remarks" json:"remarks,omitempty"`
	Subjects      []SubjectResult `db:"-" json:"subjects,omitempty"`
}

// ResultFilter scopes term result listings.
type ResultFilter struct {
	TermID        string
	ClassID       string
	StudentID     string
	PublishedOnly bool
}

// PublishAction toggles result visibility.
type PublishAction string

const (
	PublishActionPublish   PublishAction = "publish"
	PublishActionUnpublish PublishAction = "unpublish"
)

// ResultError reports a per-student fault collected during a batch run.
type ResultError struct {
	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// ComputeSummary is returned by a compute run.
type ComputeSummary struct {
	TermID       string        `json:"term_id"`
	ClassID      string        `json:"class_id"`
	GradeScaleID string        `json:"grade_scale_id"`
	Computed     int           `json:"computed"`
	Failed       int           `json:"failed"`
	Errors       []ResultError `json:"errors"`
	ComputedAt   time.Time     `json:"computed_at"`
}

// PublishSummary acknowledges a publish or unpublish call.
type PublishSummary struct {
	TermID      string        `json:"term_id"`
	ClassID     string        `json:"class_id"`
	Action      PublishAction `json:"action"`
	Affected    int           `json:"affected"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
}
