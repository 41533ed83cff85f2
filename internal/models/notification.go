package models

import "time"

// Notification event types emitted to the external notifier.
const (
	EventResultPublished  = "result.published"
	EventPromotionDecided = "promotion.decided"
)

// NotificationEvent is published once per affected student.
type NotificationEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	StudentID  string                 `json:"student_id"`
	ClassID    string                 `json:"class_id"`
	Reference  string                 `json:"reference"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}
