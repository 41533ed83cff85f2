package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-results/internal/models"
	"github.com/noah-isme/sma-adp-results/pkg/jobs"
)

// EventPublisher is the subset of the Redis client used for pub/sub.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NotificationConfig tunes the dispatcher.
type NotificationConfig struct {
	Enabled    bool
	Channel    string
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService dispatches domain events to the external notifier
// without ever blocking or failing the caller. Events that do not fit the
// queue are dropped, logged and counted.
type NotificationService struct {
	publisher EventPublisher
	channel   string
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
	enabled   bool
}

// NewNotificationService builds a dispatcher. A nil publisher disables it.
func NewNotificationService(publisher EventPublisher, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Channel == "" {
		cfg.Channel = "sma:notifications"
	}
	svc := &NotificationService{
		publisher: publisher,
		channel:   cfg.Channel,
		metrics:   metrics,
		logger:    logger,
		enabled:   cfg.Enabled && publisher != nil,
	}
	svc.queue = jobs.NewQueue("notifications", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		OnGiveUp:   svc.abandon,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop waits for in-flight deliveries.
func (s *NotificationService) Stop() {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Stop()
}

// Notify queues events for delivery.
func (s *NotificationService) Notify(events ...models.NotificationEvent) {
	if s == nil || !s.enabled {
		return
	}
	now := time.Now().UTC()
	for _, event := range events {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.OccurredAt.IsZero() {
			event.OccurredAt = now
		}
		err := s.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: event.Type, Payload: event})
		if err != nil {
			s.metrics.RecordNotification(event.Type, "dropped")
			level := s.logger.Warn
			if !errors.Is(err, jobs.ErrQueueFull) {
				level = s.logger.Error
			}
			level("notification dropped",
				zap.String("event_id", event.ID),
				zap.String("type", event.Type),
				zap.String("student_id", event.StudentID),
				zap.Error(err))
			continue
		}
		s.metrics.RecordNotification(event.Type, "queued")
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.NotificationEvent)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.metrics.RecordNotification(event.Type, "failed")
		return nil
	}
	if err := s.publisher.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.metrics.RecordNotification(event.Type, "failed")
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	s.metrics.RecordNotification(event.Type, "sent")
	return nil
}

func (s *NotificationService) abandon(job jobs.Job, err error) {
	s.metrics.RecordNotification(job.Type, "abandoned")
	s.logger.Warn("notification abandoned",
		zap.String("event_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempt),
		zap.Error(err))
}

// ResultPublishedEvents builds one event per student of a published class.
func ResultPublishedEvents(results []models.TermResult, at time.Time) []models.NotificationEvent {
	events := make([]models.NotificationEvent, 0, len(results))
	for _, r := range results {
		events = append(events, models.NotificationEvent{
			Type:      models.EventResultPublished,
			StudentID: r.StudentID,
			ClassID:   r.ClassID,
			Reference: r.ID,
			Data: map[string]interface{}{
				"term_id":    r.TermID,
				"percentage": r.Percentage,
				"grade":      r.Grade,
				"position":   r.Position,
				"class_size": r.ClassSize,
			},
			OccurredAt: at,
		})
	}
	return events
}

// PromotionDecidedEvents builds one event per written promotion record.
func PromotionDecidedEvents(records []models.StudentPromotion) []models.NotificationEvent {
	events := make([]models.NotificationEvent, 0, len(records))
	for _, r := range records {
		events = append(events, models.NotificationEvent{
			Type:      models.EventPromotionDecided,
			StudentID: r.StudentID,
			ClassID:   r.ClassID,
			Reference: r.ID,
			Data: map[string]interface{}{
				"academic_year": r.AcademicYear,
				"status":        string(r.Status),
				"source":        string(r.Source),
			},
			OccurredAt: r.CreatedAt,
		})
	}
	return events
}
