package models

import "time"

// Class represents a classroom at a given level, e.g. "JSS2 Blue" at level "JSS2".
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassSubject is a subject taught in a class with its assessment maxima.
// A zero maximum means the configured default applies.
type ClassSubject struct {
	ClassID     string  `db:"class_id" json:"class_id"`
	SubjectID   string  `db:"subject_id" json:"subject_id"`
	SubjectCode string  `db:"subject_code" json:"subject_code"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	CAMax       float64 `db:"ca_max" json:"ca_max"`
	ExamMax     float64 `db:"exam_max" json:"exam_max"`
}
