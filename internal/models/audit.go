package models

import "time"

// Audit actions recorded by the results engine.
const (
	AuditActionResultsCompute    = "RESULTS_COMPUTE"
	AuditActionResultsPublish    = "RESULTS_PUBLISH"
	AuditActionResultsUnpublish  = "RESULTS_UNPUBLISH"
	AuditActionResultRemarks     = "RESULT_REMARKS"
	AuditActionGradeScaleCreate  = "GRADE_SCALE_CREATE"
	AuditActionGradeScaleDefault = "GRADE_SCALE_DEFAULT"
	AuditActionRuleCreate        = "PROMOTION_RULE_CREATE"
	AuditActionRuleActivate      = "PROMOTION_RULE_ACTIVATE"
	AuditActionPromotionsExecute = "PROMOTIONS_EXECUTE"
	AuditActionPromotionCorrect  = "PROMOTION_CORRECT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
