package models

// MarkEntry is a raw CA/exam score pair from the mark entry store. Nil scores
// have not been entered yet.
type MarkEntry struct {
	EnrollmentID string   `db:"enrollment_id" json:"enrollment_id"`
	StudentID    string   `db:"student_id" json:"student_id"`
	SubjectID    string   `db:"subject_id" json:"subject_id"`
	CAScore      *float64 `db:"ca_score" json:"ca_score,omitempty"`
	ExamScore    *float64 `db:"exam_score" json:"exam_score,omitempty"`
}
