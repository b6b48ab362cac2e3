package repository

import (
	"context"
	"time"

	"github.com/jafarshop/storefront/internal/domain"
)

// SessionRepository stores per-browser storefront state
type SessionRepository interface {
	// Cart view is the locally rendered cart including optimistic edits
	GetCartView(ctx context.Context, sessionID string) ([]domain.CartLineItem, bool, error)
	SaveCartView(ctx context.Context, sessionID string, items []domain.CartLineItem) error

	// Cart snapshot is the server cart as last fetched from the backend
	GetCartSnapshot(ctx context.Context, sessionID string) ([]domain.CartLineItem, bool, error)
	SaveCartSnapshot(ctx context.Context, sessionID string, items []domain.CartLineItem) error

	GetBuyNow(ctx context.Context, sessionID string) (*domain.BuyNowItem, error)
	SaveBuyNow(ctx context.Context, sessionID string, item *domain.BuyNowItem) error
	ClearBuyNow(ctx context.Context, sessionID string) error

	GetCheckout(ctx context.Context, sessionID string) (*domain.CheckoutState, error)
	SaveCheckout(ctx context.Context, sessionID string, state *domain.CheckoutState) error

	GetOTPState(ctx context.Context, sessionID string) (*domain.OTPState, error)
	SaveOTPState(ctx context.Context, sessionID string, state *domain.OTPState) error
	ClearOTPState(ctx context.Context, sessionID string) error

	GetSelectedAddress(ctx context.Context, sessionID string) (string, error)
	SaveSelectedAddress(ctx context.Context, sessionID string, addressID string) error

	GetAppliedCoupon(ctx context.Context, sessionID string) (*domain.AppliedCoupon, error)
	SaveAppliedCoupon(ctx context.Context, sessionID string, coupon *domain.AppliedCoupon) error
	ClearAppliedCoupon(ctx context.Context, sessionID string) error

	GetBackendCookie(ctx context.Context, sessionID string) (string, error)
	SaveBackendCookie(ctx context.Context, sessionID string, cookie string) error

	// Lock serializes mutations for one session; the returned func releases it
	Lock(ctx context.Context, sessionID string, ttl time.Duration) (func(), error)

	Dump(ctx context.Context, sessionID string) (map[string]string, error)
	Destroy(ctx context.Context, sessionID string) error
}

// EventRepository defines storefront event data access methods
type EventRepository interface {
	Create(ctx context.Context, event *domain.StorefrontEvent) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*domain.StorefrontEvent, error)
}

// Repositories aggregates all repositories
type Repositories struct {
	Session SessionRepository
	Event   EventRepository
}
