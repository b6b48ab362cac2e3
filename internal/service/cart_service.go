package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/pricing"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

// DefaultLockTTL bounds how long one cart mutation may hold the session
const DefaultLockTTL = 15 * time.Second

// CartLine is one rendered cart row
type CartLine struct {
	Item        domain.CartLineItem `json:"item"`
	StockStatus domain.StockStatus  `json:"stock_status"`
	Totals      pricing.LineTotals  `json:"totals"`
}

// CartView is the cart as the page renders it, newest line first
type CartView struct {
	Lines   []CartLine      `json:"lines"`
	Summary pricing.Summary `json:"summary"`
}

// AddResult reports the outcome of adding from the product page
type AddResult struct {
	InCart bool      `json:"in_cart"`
	Cart   *CartView `json:"cart"`
}

// CheckoutSelection is what the cart hands to checkout
type CheckoutSelection struct {
	Items []CheckoutItem `json:"items"`
	Query string         `json:"query"`
}

type cartService struct {
	client  *backend.Client
	repos   *repository.Repositories
	logger  *zap.Logger
	lockTTL time.Duration
}

// NewCartService creates a new cart service
func NewCartService(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) *cartService {
	return &cartService{
		client:  client,
		repos:   repos,
		logger:  logger,
		lockTTL: DefaultLockTTL,
	}
}

// View refreshes the server snapshot and reseeds the local view from it
func (s *cartService) View(ctx context.Context, sessionID string) (*CartView, error) {
	items, err := s.refresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return buildCartView(items), nil
}

// refresh fetches the server cart and makes it both snapshot and local view
func (s *cartService) refresh(ctx context.Context, sessionID string) ([]domain.CartLineItem, error) {
	customer, err := s.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Session.SaveCartSnapshot(ctx, sessionID, customer.Cart); err != nil {
		return nil, err
	}
	if err := s.repos.Session.SaveCartView(ctx, sessionID, customer.Cart); err != nil {
		return nil, err
	}
	return customer.Cart, nil
}

// localView returns the session's local view, seeding it from the server when absent
func (s *cartService) localView(ctx context.Context, sessionID string) ([]domain.CartLineItem, error) {
	items, found, err := s.repos.Session.GetCartView(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return s.refresh(ctx, sessionID)
	}
	return items, nil
}

// rollback restores the local view to the list shown before the failed
// mutation. Only backend calls that succeeded move the snapshot.
func (s *cartService) rollback(ctx context.Context, sessionID, customerID, op string, previous []domain.CartLineItem, cause error) {
	if err := s.repos.Session.SaveCartView(ctx, sessionID, previous); err != nil {
		s.logger.Error("Failed to roll back cart view",
			zap.String("session_id", sessionID),
			zap.String("operation", op),
			zap.Error(err),
		)
	}
	recordEvent(ctx, s.repos, s.logger, sessionID, customerID, EventCartRolledBack, map[string]interface{}{
		"operation": op,
		"cause":     cause.Error(),
	})
}

// commit records a confirmed backend mutation as the new server snapshot so a
// failed refresh cannot leave a stale baseline behind
func (s *cartService) commit(ctx context.Context, sessionID string, items []domain.CartLineItem) {
	if err := s.repos.Session.SaveCartSnapshot(ctx, sessionID, items); err != nil {
		s.logger.Warn("Failed to save cart snapshot", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// ChangeQuantity sets a line to target, sending the difference to the backend
func (s *cartService) ChangeQuantity(ctx context.Context, sessionID, customerID string, req ChangeQuantityRequest) (*CartView, error) {
	unlock, err := s.repos.Session.Lock(ctx, sessionID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	items, err := s.localView(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	idx := findLine(items, req.ProductID, req.VariantID)
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "cart item", ID: req.ProductID}
	}
	line := items[idx]

	if err := validateQuantity(req.Quantity, line.ProductID.Stock()); err != nil {
		return nil, err
	}

	delta := req.Quantity - line.Quantity
	if delta == 0 {
		return buildCartView(items), nil
	}

	updated := make([]domain.CartLineItem, len(items))
	copy(updated, items)
	updated[idx].Quantity = req.Quantity
	if err := s.repos.Session.SaveCartView(ctx, sessionID, updated); err != nil {
		return nil, err
	}

	err = s.client.AddToCart(ctx, customerID, backend.AddToCartRequest{
		ProductID:   line.ProductID.ID,
		VariantID:   variantPtr(line.VariantKey()),
		Quantity:    delta,
		PriceAtTime: line.PriceAtTime,
	})
	if err != nil {
		s.logger.Warn("Cart quantity update failed",
			zap.String("session_id", sessionID),
			zap.String("product_id", line.ProductID.ID),
			zap.Int("delta", delta),
			zap.Error(err),
		)
		s.rollback(ctx, sessionID, customerID, "change_quantity", items, err)
		return nil, err
	}
	s.commit(ctx, sessionID, updated)

	recordEvent(ctx, s.repos, s.logger, sessionID, customerID, EventCartQuantityChanged, map[string]interface{}{
		"product_id": line.ProductID.ID,
		"variant_id": line.VariantKey(),
		"from":       line.Quantity,
		"to":         req.Quantity,
		"delta":      delta,
	})

	fresh, err := s.refresh(ctx, sessionID)
	if err != nil {
		return buildCartView(updated), nil
	}
	return buildCartView(fresh), nil
}

// Remove drops a line optimistically and restores the pre-removal list on failure
func (s *cartService) Remove(ctx context.Context, sessionID, customerID string, req LineRequest) (*CartView, error) {
	unlock, err := s.repos.Session.Lock(ctx, sessionID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	items, err := s.localView(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	idx := findLine(items, req.ProductID, req.VariantID)
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "cart item", ID: req.ProductID}
	}
	line := items[idx]

	remaining := withoutLine(items, idx)
	if err := s.repos.Session.SaveCartView(ctx, sessionID, remaining); err != nil {
		return nil, err
	}

	if err := s.client.RemoveFromCart(ctx, customerID, line.ProductID.ID, variantPtr(line.VariantKey())); err != nil {
		s.rollback(ctx, sessionID, customerID, "remove", items, err)
		return nil, err
	}
	s.commit(ctx, sessionID, remaining)

	recordEvent(ctx, s.repos, s.logger, sessionID, customerID, EventCartItemRemoved, map[string]interface{}{
		"product_id": line.ProductID.ID,
		"variant_id": line.VariantKey(),
		"quantity":   line.Quantity,
	})

	fresh, err := s.refresh(ctx, sessionID)
	if err != nil {
		return buildCartView(remaining), nil
	}
	return buildCartView(fresh), nil
}

// MoveToWishlist wishlists the product and removes the line from the cart
func (s *cartService) MoveToWishlist(ctx context.Context, sessionID, customerID string, req LineRequest) (*CartView, error) {
	unlock, err := s.repos.Session.Lock(ctx, sessionID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	items, err := s.localView(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	idx := findLine(items, req.ProductID, req.VariantID)
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "cart item", ID: req.ProductID}
	}
	line := items[idx]

	if pricing.StockStatus(line.ProductID.Stock()) == domain.StockOut {
		return nil, &errors.ErrValidation{Message: "Out of stock items cannot be moved to wishlist"}
	}

	remaining := withoutLine(items, idx)
	if err := s.repos.Session.SaveCartView(ctx, sessionID, remaining); err != nil {
		return nil, err
	}

	if _, err := s.client.ToggleWishlist(ctx, customerID, line.ProductID.ID); err != nil {
		s.rollback(ctx, sessionID, customerID, "move_to_wishlist", items, err)
		return nil, err
	}
	if err := s.client.RemoveFromCart(ctx, customerID, line.ProductID.ID, variantPtr(line.VariantKey())); err != nil {
		s.rollback(ctx, sessionID, customerID, "move_to_wishlist", items, err)
		return nil, err
	}
	s.commit(ctx, sessionID, remaining)

	recordEvent(ctx, s.repos, s.logger, sessionID, customerID, EventCartMovedToWishlist, map[string]interface{}{
		"product_id": line.ProductID.ID,
		"variant_id": line.VariantKey(),
	})

	fresh, err := s.refresh(ctx, sessionID)
	if err != nil {
		return buildCartView(remaining), nil
	}
	return buildCartView(fresh), nil
}

// Add puts one unit in the cart unless the (product, variant) is already there
func (s *cartService) Add(ctx context.Context, sessionID, customerID string, req AddToCartRequest) (*AddResult, error) {
	unlock, err := s.repos.Session.Lock(ctx, sessionID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	items, err := s.refresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if findLine(items, req.ProductID, req.VariantID) >= 0 {
		return &AddResult{InCart: true, Cart: buildCartView(items)}, nil
	}

	err = s.client.AddToCart(ctx, customerID, backend.AddToCartRequest{
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
		Quantity:    1,
		PriceAtTime: req.PriceAtTime,
	})
	if err != nil {
		return nil, err
	}

	recordEvent(ctx, s.repos, s.logger, sessionID, customerID, EventCartItemAdded, map[string]interface{}{
		"product_id": req.ProductID,
		"variant_id": derefString(req.VariantID),
	})

	fresh, err := s.refresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &AddResult{InCart: true, Cart: buildCartView(fresh)}, nil
}

// CheckoutItems returns the in-stock lines and the query string for a cart checkout
func (s *cartService) CheckoutItems(ctx context.Context, sessionID string) (*CheckoutSelection, error) {
	items, err := s.localView(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	selected := make([]CheckoutItem, 0, len(items))
	for i := range items {
		line := &items[i]
		stock := line.ProductID.Stock()
		if stock <= 0 || line.Quantity > stock {
			continue
		}
		selected = append(selected, CheckoutItem{
			ProductID:   line.ProductID.ID,
			VariantID:   variantPtr(line.VariantKey()),
			Quantity:    line.Quantity,
			PriceAtTime: line.PriceAtTime,
		})
	}
	if len(selected) == 0 {
		return nil, &errors.ErrValidation{Message: "No items available for checkout"}
	}

	encoded, err := EncodeCheckoutItems(selected)
	if err != nil {
		return nil, err
	}

	query := "mode=" + string(domain.CheckoutModeCart) + "&items=" + encoded
	return &CheckoutSelection{Items: selected, Query: query}, nil
}

// EncodeCheckoutItems renders items as the URL-encoded JSON list checkout accepts
func EncodeCheckoutItems(items []CheckoutItem) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode checkout items: %w", err)
	}
	return url.QueryEscape(string(data)), nil
}

// validateQuantity enforces 1 <= qty <= stock
func validateQuantity(qty, stock int) error {
	if qty < 1 {
		return &errors.ErrValidation{
			Message: "Quantity must be at least 1",
			Fields:  map[string]string{"quantity": "min 1"},
		}
	}
	if qty > stock {
		return &errors.ErrValidation{
			Message: fmt.Sprintf("Only %d products are in stock", stock),
			Fields:  map[string]string{"quantity": fmt.Sprintf("max %d", stock)},
		}
	}
	return nil
}

func buildCartView(items []domain.CartLineItem) *CartView {
	lines := make([]CartLine, 0, len(items))
	pricingLines := make([]pricing.Line, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		pl := pricing.LineFromCart(item)
		pricingLines = append(pricingLines, pl)
		lines = append(lines, CartLine{
			Item:        item,
			StockStatus: pricing.StockStatus(pl.Stock),
			Totals:      pl.Totals(),
		})
	}
	return &CartView{Lines: lines, Summary: pricing.SummarizeCart(pricingLines)}
}

func findLine(items []domain.CartLineItem, productID string, variantID *string) int {
	key := derefString(variantID)
	for i := range items {
		if items[i].Matches(productID, key) {
			return i
		}
	}
	return -1
}

func withoutLine(items []domain.CartLineItem, idx int) []domain.CartLineItem {
	out := make([]domain.CartLineItem, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...)
}

func variantPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
