package dto

import "github.com/noah-isme/sma-adp-results/internal/models"

// PromotionQuery scopes promotion preview and history reads.
type PromotionQuery struct {
	ClassID      string `form:"classId" validate:"required"`
	AcademicYear string `form:"yearId" validate:"required"`
}

// PromotionOverride replaces the recommended status for one student.
type PromotionOverride struct {
	StudentID string                 `json:"student_id" validate:"required"`
	Status    models.PromotionStatus `json:"status" validate:"required,oneof=PROMOTED REPEATED CONDITIONAL GRADUATED"`
	Reason    string                 `json:"reason" validate:"required,max=500"`
}

// ExecutePromotionsRequest captures POST /promotions/execute payload.
type ExecutePromotionsRequest struct {
	ClassID      string              `json:"class_id" validate:"required"`
	AcademicYear string              `json:"year_id" validate:"required"`
	Overrides    []PromotionOverride `json:"overrides" validate:"omitempty,dive"`
}

// CorrectPromotionRequest captures POST /promotions/:id/corrections payload.
type CorrectPromotionRequest struct {
	Status models.PromotionStatus `json:"status" validate:"required,oneof=PROMOTED REPEATED CONDITIONAL GRADUATED"`
	Reason string                 `json:"reason" validate:"required,max=500"`
}

// PromotionRowError is a per-student fault in a preview or execution.
type PromotionRowError struct {
	StudentID string `json:"student_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// PromotionCandidate is one student's recommended decision.
type PromotionCandidate struct {
	StudentID         string                      `json:"student_id"`
	StudentName       string                      `json:"student_name"`
	Recommended       models.PromotionStatus      `json:"recommended"`
	Status            models.PromotionStatus      `json:"status"`
	TermAverages      []float64                   `json:"term_averages"`
	AnnualAverage     float64                     `json:"annual_average"`
	SubjectsPassed    int                         `json:"subjects_passed"`
	SubjectsFailed    int                         `json:"subjects_failed"`
	CoreSubjects      []models.CoreSubjectOutcome `json:"core_subjects"`
	AttendancePercent *float64                    `json:"attendance_percent,omitempty"`
	CriteriaMet       []string                    `json:"criteria_met"`
	CriteriaFailed    []string                    `json:"criteria_failed"`
	RuleID            string                      `json:"rule_id"`
	RuleVersion       int                         `json:"rule_version"`
	RequiresApproval  bool                        `json:"requires_approval"`
}

// PromotionPreview groups candidates by recommended status.
type PromotionPreview struct {
	ClassID      string                                          `json:"class_id"`
	AcademicYear string                                          `json:"academic_year"`
	FromLevel    string                                          `json:"from_level"`
	Groups       map[models.PromotionStatus][]PromotionCandidate `json:"groups"`
	Counts       map[models.PromotionStatus]int                  `json:"counts"`
	Errors       []PromotionRowError                             `json:"errors"`
}

// ExecutePromotionsResponse summarises a bulk execution.
type ExecutePromotionsResponse struct {
	ClassID      string                         `json:"class_id"`
	AcademicYear string                         `json:"academic_year"`
	Written      int                            `json:"written"`
	Counts       map[models.PromotionStatus]int `json:"counts"`
	Records      []models.StudentPromotion      `json:"records"`
	Errors       []PromotionRowError            `json:"errors"`
}
