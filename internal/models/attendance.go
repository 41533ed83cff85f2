package models

// AttendanceSummary aggregates a student's daily attendance for an academic year.
type AttendanceSummary struct {
	StudentID string `db:"student_id" json:"student_id"`
	Present   int    `db:"present" json:"present"`
	Absent    int    `db:"absent" json:"absent"`
	Total     int    `db:"total" json:"total"`
}

// Recorded reports whether any attendance day was tracked.
func (s *AttendanceSummary) Recorded() bool {
	return s != nil && s.Total > 0
}
