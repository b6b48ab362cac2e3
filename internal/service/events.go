package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
)

const (
	EventCartQuantityChanged = "cart.quantity_changed"
	EventCartItemAdded       = "cart.item_added"
	EventCartItemRemoved     = "cart.item_removed"
	EventCartMovedToWishlist = "cart.moved_to_wishlist"
	EventCartRolledBack      = "cart.rolled_back"
	EventPaymentCreated      = "payment.created"
	EventPaymentVerified     = "payment.verified"
	EventOrderCancelled      = "order.cancelled"
	EventLogin               = "auth.login"
	EventLogout              = "auth.logout"
)

// recordEvent appends to the audit log. Failures are logged and never fail
// the operation being recorded.
func recordEvent(ctx context.Context, repos *repository.Repositories, logger *zap.Logger, sessionID, customerID, eventType string, data map[string]interface{}) {
	if repos == nil || repos.Event == nil {
		return
	}
	event := &domain.StorefrontEvent{
		SessionID:  sessionID,
		CustomerID: customerID,
		EventType:  eventType,
		EventData:  data,
	}
	if err := repos.Event.Create(ctx, event); err != nil {
		logger.Warn("Failed to record storefront event",
			zap.String("event_type", eventType),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}
