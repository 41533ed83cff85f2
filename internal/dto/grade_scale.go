package dto

import "github.com/noah-isme/sma-adp-results/internal/models"

// CreateGradeScaleRequest creates a grade scale, or a new version of an
// existing one when the name is already taken.
type CreateGradeScaleRequest struct {
	Name      string             `json:"name" validate:"required,max=100"`
	IsDefault bool               `json:"is_default"`
	Bands     []models.GradeBand `json:"bands" validate:"required,min=1,dive"`
}

// CreatePromotionRuleRequest creates a new version of the rule for a level pair.
type CreatePromotionRuleRequest struct {
	FromLevel             string    `json:"from_level" validate:"required,max=50"`
	ToLevel               string    `json:"to_level" validate:"max=50"`
	MinAnnualAverage      float64   `json:"min_annual_average" validate:"gte=0,lte=100"`
	UseTermWeights        bool      `json:"use_term_weights"`
	TermWeights           []float64 `json:"term_weights" validate:"omitempty,dive,gte=0,lte=1"`
	RequireCoreSubjects   bool      `json:"require_core_subjects"`
	CoreSubjectIDs        []string  `json:"core_subject_ids" validate:"omitempty,dive,required"`
	MinPassedSubjects     int       `json:"min_passed_subjects" validate:"gte=0"`
	MinSubjectPassPercent float64   `json:"min_subject_pass_percent" validate:"gte=0,lte=100"`
	MinAttendancePercent  float64   `json:"min_attendance_percent" validate:"gte=0,lte=100"`
	ConditionalBand       float64   `json:"conditional_band" validate:"gte=0,lte=100"`
	RequiresApproval      bool      `json:"requires_approval"`
	Activate              bool      `json:"activate"`
}
