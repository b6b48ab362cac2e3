package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
)

type eventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEventRepository creates a new storefront event repository
func NewEventRepository(db *sql.DB, logger *zap.Logger) *eventRepository {
	return &eventRepository{
		db:     db,
		logger: logger,
	}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.StorefrontEvent) error {
	query := `
		INSERT INTO storefront_events (id, session_id, customer_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var eventDataJSON []byte
	var err error
	if event.EventData != nil {
		eventDataJSON, err = json.Marshal(event.EventData)
		if err != nil {
			return err
		}
	}

	var customerID sql.NullString
	if event.CustomerID != "" {
		customerID = sql.NullString{String: event.CustomerID, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.SessionID,
		customerID,
		event.EventType,
		eventDataJSON,
		event.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create storefront event", zap.Error(err))
		return err
	}

	return nil
}

func (r *eventRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*domain.StorefrontEvent, error) {
	query := `
		SELECT id, session_id, customer_id, event_type, event_data, created_at
		FROM storefront_events
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		r.logger.Error("Failed to list storefront events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []*domain.StorefrontEvent
	for rows.Next() {
		var event domain.StorefrontEvent
		var customerID sql.NullString
		var eventDataJSON []byte

		if err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&customerID,
			&event.EventType,
			&eventDataJSON,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}

		event.CustomerID = customerID.String
		if len(eventDataJSON) > 0 {
			if err := json.Unmarshal(eventDataJSON, &event.EventData); err != nil {
				return nil, err
			}
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
