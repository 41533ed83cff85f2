package dto

import "github.com/noah-isme/sma-adp-results/internal/models"

// ComputeResultsRequest captures POST /results/compute payload.
type ComputeResultsRequest struct {
	TermID  string `json:"term_id" validate:"required"`
	ClassID string `json:"class_id" validate:"required"`
	Force   bool   `json:"force"`
}

// PublishResultsRequest captures POST /results/publish payload.
type PublishResultsRequest struct {
	TermID  string               `json:"term_id" validate:"required"`
	ClassID string               `json:"class_id" validate:"required"`
	Action  models.PublishAction `json:"action" validate:"required,oneof=publish unpublish"`
}

// UpdateRemarksRequest captures PATCH /results/:id/remarks payload. An
// empty remark clears it.
type UpdateRemarksRequest struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

// ResultQuery scopes result reads.
type ResultQuery struct {
	TermID  string `form:"termId" validate:"required"`
	ClassID string `form:"classId"`
}

// ClassResultsResponse lists a class's results for one term.
type ClassResultsResponse struct {
	TermID    string              `json:"term_id"`
	ClassID   string              `json:"class_id"`
	Published bool                `json:"published"`
	Results   []models.TermResult `json:"results"`
}
