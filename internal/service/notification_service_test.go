package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

type mockPublisher struct {
	mu       sync.Mutex
	messages chan []byte
	fail     bool
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{messages: make(chan []byte, 16)}
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return redis.NewIntResult(0, errors.New("connection refused"))
	}
	m.messages <- message.([]byte)
	return redis.NewIntResult(1, nil)
}

func TestNotificationServicePublishesEvents(t *testing.T) {
	publisher := newMockPublisher()
	metrics := NewMetricsService()
	svc := NewNotificationService(publisher, NotificationConfig{Enabled: true, Workers: 1, BufferSize: 4}, metrics, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.Notify(models.NotificationEvent{Type: models.EventResultPublished, StudentID: "s1", ClassID: "c1", Reference: "r1"})

	select {
	case raw := <-publisher.messages:
		var event models.NotificationEvent
		require.NoError(t, json.Unmarshal(raw, &event))
		assert.Equal(t, models.EventResultPublished, event.Type)
		assert.Equal(t, "s1", event.StudentID)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.OccurredAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

func TestNotificationServiceDropsWhenQueueUnavailable(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(newMockPublisher(), NotificationConfig{Enabled: true}, metrics, nil)

	// not started: every event is dropped without blocking
	svc.Notify(
		models.NotificationEvent{Type: models.EventPromotionDecided, StudentID: "s1"},
		models.NotificationEvent{Type: models.EventPromotionDecided, StudentID: "s2"},
	)
	assert.Equal(t, uint64(2), metrics.Snapshot().NotificationsDropped)
}

func TestNotificationServiceDisabledIsNoop(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(nil, NotificationConfig{Enabled: true}, metrics, nil)
	svc.Start(context.Background())
	svc.Notify(models.NotificationEvent{Type: models.EventResultPublished, StudentID: "s1"})
	svc.Stop()
	assert.Zero(t, metrics.Snapshot().NotificationsDropped)

	var nilSvc *NotificationService
	nilSvc.Notify(models.NotificationEvent{Type: models.EventResultPublished})
}

func TestResultPublishedEvents(t *testing.T) {
	at := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	events := ResultPublishedEvents([]models.TermResult{
		{ID: "r1", TermID: "t1", ClassID: "c1", StudentID: "s1", Percentage: 81.5, Grade: "A", Position: 1, ClassSize: 2},
		{ID: "r2", TermID: "t1", ClassID: "c1", StudentID: "s2", Percentage: 60, Grade: "C", Position: 2, ClassSize: 2},
	}, at)
	require.Len(t, events, 2)
	assert.Equal(t, "r1", events[0].Reference)
	assert.Equal(t, "A", events[0].Data["grade"])
	assert.Equal(t, at, events[1].OccurredAt)
}
