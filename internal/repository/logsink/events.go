// Package logsink records storefront events to the structured log when no
// database is configured.
package logsink

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
)

// recentLimit bounds the in-memory tail kept for the admin endpoint
const recentLimit = 200

type eventRepository struct {
	logger *zap.Logger

	mu     sync.Mutex
	recent []*domain.StorefrontEvent
}

// NewEventRepository creates an event repository that writes to the logger
func NewEventRepository(logger *zap.Logger) *eventRepository {
	return &eventRepository{logger: logger}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.StorefrontEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	r.logger.Info("Storefront event",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.String("session_id", event.SessionID),
		zap.String("customer_id", event.CustomerID),
		zap.Any("event_data", event.EventData),
	)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recent = append(r.recent, event)
	if len(r.recent) > recentLimit {
		r.recent = r.recent[len(r.recent)-recentLimit:]
	}
	return nil
}

// ListBySession returns the newest events first
func (r *eventRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*domain.StorefrontEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []*domain.StorefrontEvent
	for i := len(r.recent) - 1; i >= 0 && len(events) < limit; i-- {
		if r.recent[i].SessionID == sessionID {
			events = append(events, r.recent[i])
		}
	}
	return events, nil
}
