package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/pricing"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

// CheckoutLineView is one rendered checkout row
type CheckoutLineView struct {
	Line        domain.CheckoutLine `json:"line"`
	StockStatus domain.StockStatus  `json:"stock_status"`
	Totals      pricing.LineTotals  `json:"totals"`
}

// CheckoutView is the checkout page model
type CheckoutView struct {
	Mode              domain.CheckoutMode   `json:"mode"`
	Lines             []CheckoutLineView    `json:"lines"`
	Summary           pricing.Summary       `json:"summary"`
	Coupons           []domain.Coupon       `json:"coupons"`
	AppliedCoupon     *domain.AppliedCoupon `json:"applied_coupon,omitempty"`
	Payable           float64               `json:"payable"`
	Addresses         []domain.Address      `json:"addresses"`
	SelectedAddressID string                `json:"selected_address_id,omitempty"`
}

// PaymentIntent is everything the client-side payment script needs
type PaymentIntent struct {
	Key      string  `json:"key"`
	OrderID  string  `json:"order_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Name     string  `json:"name"`
	Prefill  Prefill `json:"prefill"`
}

type Prefill struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// PaymentResult is the thank-you page redirect data
type PaymentResult struct {
	PaymentGroupID string   `json:"payment_group_id"`
	OrderIDs       []string `json:"order_ids"`
}

type checkoutService struct {
	client  *backend.Client
	repos   *repository.Repositories
	payment config.PaymentConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(client *backend.Client, repos *repository.Repositories, payment config.PaymentConfig, logger *zap.Logger) *checkoutService {
	return &checkoutService{
		client:  client,
		repos:   repos,
		payment: payment,
		logger:  logger,
		now:     time.Now,
	}
}

// Load sources the checkout lines for mode and stores them in the session
func (s *checkoutService) Load(ctx context.Context, sessionID string, customer *domain.Customer, mode domain.CheckoutMode, itemsParam string) (*CheckoutView, error) {
	if !mode.IsValid() {
		return nil, &errors.ErrValidation{
			Message: "Unknown checkout mode",
			Fields:  map[string]string{"mode": "must be buy-now or cart"},
		}
	}

	var lines []domain.CheckoutLine
	switch mode {
	case domain.CheckoutModeBuyNow:
		item, err := s.repos.Session.GetBuyNow(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if item != nil {
			lines = []domain.CheckoutLine{{
				Product:     item.Product,
				VariantID:   item.VariantID,
				Quantity:    item.Quantity,
				PriceAtTime: item.Price,
			}}
		}
	case domain.CheckoutModeCart:
		var err error
		lines, err = cartCheckoutLines(customer.Cart, itemsParam)
		if err != nil {
			return nil, err
		}
	}
	if lines == nil {
		lines = []domain.CheckoutLine{}
	}

	state := &domain.CheckoutState{Mode: mode, Lines: lines}
	if err := s.repos.Session.SaveCheckout(ctx, sessionID, state); err != nil {
		return nil, err
	}
	if err := s.repos.Session.ClearAppliedCoupon(ctx, sessionID); err != nil {
		return nil, err
	}

	return s.view(ctx, sessionID, customer, state)
}

// cartCheckoutLines matches requested items against the server cart, or takes
// the whole cart when none were requested. Lines that cannot be fulfilled are dropped.
func cartCheckoutLines(cart []domain.CartLineItem, itemsParam string) ([]domain.CheckoutLine, error) {
	var lines []domain.CheckoutLine

	if itemsParam == "" {
		for i := range cart {
			item := &cart[i]
			stock := item.ProductID.Stock()
			if stock > 0 && item.Quantity <= stock {
				lines = append(lines, checkoutLineFromCart(item, item.Quantity, item.PriceAtTime))
			}
		}
		return lines, nil
	}

	requested, err := decodeCheckoutItems(itemsParam)
	if err != nil {
		return nil, err
	}
	for _, req := range requested {
		var match *domain.CartLineItem
		for i := range cart {
			if cart[i].ProductID.ID == req.ProductID {
				match = &cart[i]
				break
			}
		}
		if match == nil {
			continue
		}
		stock := match.ProductID.Stock()
		if stock == 0 || req.Quantity > stock {
			continue
		}
		lines = append(lines, checkoutLineFromCart(match, req.Quantity, req.PriceAtTime))
	}
	return lines, nil
}

// decodeCheckoutItems accepts the items parameter with or without its URL encoding
func decodeCheckoutItems(param string) ([]CheckoutItem, error) {
	raw := param
	if decoded, err := url.QueryUnescape(param); err == nil {
		raw = decoded
	}
	var items []CheckoutItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, &errors.ErrValidation{
			Message: "Invalid checkout items",
			Fields:  map[string]string{"items": err.Error()},
		}
	}
	return items, nil
}

func checkoutLineFromCart(item *domain.CartLineItem, qty int, priceAtTime float64) domain.CheckoutLine {
	return domain.CheckoutLine{
		Product:     item.Product(),
		VariantID:   variantPtr(item.VariantKey()),
		Quantity:    qty,
		PriceAtTime: priceAtTime,
	}
}

// SetBuyNow stores the single buy-now item for the session
func (s *checkoutService) SetBuyNow(ctx context.Context, sessionID string, product *domain.Product, variantID *string, qty int) (*domain.BuyNowItem, error) {
	if pricing.StockStatus(product.Stock) == domain.StockOut {
		return nil, &errors.ErrValidation{Message: "Product is out of stock"}
	}
	if qty == 0 {
		qty = 1
	}
	if err := validateQuantity(qty, product.Stock); err != nil {
		return nil, err
	}

	item := &domain.BuyNowItem{
		Product:   *product,
		VariantID: variantID,
		Quantity:  qty,
		Price:     product.Price,
	}
	if err := s.repos.Session.SaveBuyNow(ctx, sessionID, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ChangeQuantity changes a checkout line without touching the server cart.
// In buy-now mode the stored buy-now item follows.
func (s *checkoutService) ChangeQuantity(ctx context.Context, sessionID string, customer *domain.Customer, req ChangeQuantityRequest) (*CheckoutView, error) {
	state, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	idx := findCheckoutLine(state.Lines, req.ProductID, req.VariantID)
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "checkout item", ID: req.ProductID}
	}
	if err := validateQuantity(req.Quantity, state.Lines[idx].Product.Stock); err != nil {
		return nil, err
	}
	state.Lines[idx].Quantity = req.Quantity

	if err := s.repos.Session.SaveCheckout(ctx, sessionID, state); err != nil {
		return nil, err
	}

	if state.Mode == domain.CheckoutModeBuyNow {
		item, err := s.repos.Session.GetBuyNow(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if item != nil {
			item.Quantity = req.Quantity
			if err := s.repos.Session.SaveBuyNow(ctx, sessionID, item); err != nil {
				return nil, err
			}
		}
	}

	return s.view(ctx, sessionID, customer, state)
}

// RemoveLine removes a line from the server cart and from the checkout
func (s *checkoutService) RemoveLine(ctx context.Context, sessionID string, customer *domain.Customer, req LineRequest) (*CheckoutView, error) {
	state, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	idx := findCheckoutLine(state.Lines, req.ProductID, req.VariantID)
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "checkout item", ID: req.ProductID}
	}
	line := state.Lines[idx]

	if err := s.client.RemoveFromCart(ctx, customer.ID, line.Product.ID, line.VariantID); err != nil {
		return nil, err
	}

	if err := s.dropLine(ctx, sessionID, state, idx); err != nil {
		return nil, err
	}
	recordEvent(ctx, s.repos, s.logger, sessionID, customer.ID, EventCartItemRemoved, map[string]interface{}{
		"product_id": line.Product.ID,
		"variant_id": line.VariantKey(),
		"source":     "checkout",
	})
	return s.view(ctx, sessionID, customer, state)
}

// MoveToWishlist wishlists a checkout line, then removes it from the server
// cart and from the checkout
func (s *checkoutService) MoveToWishlist(ctx context.Context, sessionID string, customer *domain.Customer, req LineRequest) (*CheckoutView, error) {
	state, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	idx := findCheckoutLine(state.Lines, req.ProductID, req.VariantID)
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "checkout item", ID: req.ProductID}
	}
	line := state.Lines[idx]

	if pricing.StockStatus(line.Product.Stock) == domain.StockOut {
		return nil, &errors.ErrValidation{Message: "Out of stock items cannot be moved to wishlist"}
	}

	if _, err := s.client.ToggleWishlist(ctx, customer.ID, line.Product.ID); err != nil {
		return nil, err
	}
	if err := s.client.RemoveFromCart(ctx, customer.ID, line.Product.ID, line.VariantID); err != nil {
		return nil, err
	}

	if err := s.dropLine(ctx, sessionID, state, idx); err != nil {
		return nil, err
	}
	recordEvent(ctx, s.repos, s.logger, sessionID, customer.ID, EventCartMovedToWishlist, map[string]interface{}{
		"product_id": line.Product.ID,
		"variant_id": line.VariantKey(),
		"source":     "checkout",
	})
	return s.view(ctx, sessionID, customer, state)
}

// dropLine removes state.Lines[idx] and, in buy-now mode, forgets the stored
// buy-now item when it is that line
func (s *checkoutService) dropLine(ctx context.Context, sessionID string, state *domain.CheckoutState, idx int) error {
	line := state.Lines[idx]
	state.Lines = append(state.Lines[:idx], state.Lines[idx+1:]...)
	if err := s.repos.Session.SaveCheckout(ctx, sessionID, state); err != nil {
		return err
	}
	if state.Mode != domain.CheckoutModeBuyNow {
		return nil
	}

	item, err := s.repos.Session.GetBuyNow(ctx, sessionID)
	if err != nil {
		return err
	}
	if item == nil || item.Product.ID != line.Product.ID || derefString(item.VariantID) != line.VariantKey() {
		return nil
	}
	return s.repos.Session.ClearBuyNow(ctx, sessionID)
}

// Summary renders the current checkout
func (s *checkoutService) Summary(ctx context.Context, sessionID string, customer *domain.Customer) (*CheckoutView, error) {
	state, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sessionID, customer, state)
}

// ApplyCoupon applies code when it is among the coupons available for this order
func (s *checkoutService) ApplyCoupon(ctx context.Context, sessionID string, customer *domain.Customer, code string) (*CheckoutView, error) {
	state, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := pricing.Summarize(checkoutPricingLines(state.Lines))

	coupons, err := s.availableCoupons(ctx, summary.Final)
	if err != nil {
		return nil, err
	}

	coupon, ok := pricing.FindCoupon(coupons, code)
	if !ok {
		if err := s.repos.Session.ClearAppliedCoupon(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, &errors.ErrValidation{
			Message: "Invalid or ineligible coupon",
			Fields:  map[string]string{"code": strings.TrimSpace(code)},
		}
	}

	applied := &domain.AppliedCoupon{
		Coupon:   coupon,
		Discount: pricing.CouponDiscount(coupon, summary.Final),
	}
	if err := s.repos.Session.SaveAppliedCoupon(ctx, sessionID, applied); err != nil {
		return nil, err
	}
	return s.view(ctx, sessionID, customer, state)
}

// RemoveCoupon clears the applied coupon
func (s *checkoutService) RemoveCoupon(ctx context.Context, sessionID string, customer *domain.Customer) (*CheckoutView, error) {
	if err := s.repos.Session.ClearAppliedCoupon(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.Summary(ctx, sessionID, customer)
}

// SelectAddress stores the delivery address choice for the session
func (s *checkoutService) SelectAddress(ctx context.Context, sessionID string, customer *domain.Customer, addressID string) (*domain.Address, error) {
	for i := range customer.Addresses {
		if customer.Addresses[i].ID == addressID {
			if err := s.repos.Session.SaveSelectedAddress(ctx, sessionID, addressID); err != nil {
				return nil, err
			}
			return &customer.Addresses[i], nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "address", ID: addressID}
}

// CreatePayment opens a gateway order for the payable amount
func (s *checkoutService) CreatePayment(ctx context.Context, sessionID string, customer *domain.Customer) (*PaymentIntent, error) {
	view, err := s.Summary(ctx, sessionID, customer)
	if err != nil {
		return nil, err
	}
	if view.Summary.HasOutOfStock {
		return nil, &errors.ErrValidation{Message: "Please remove out-of-stock items before payment"}
	}
	if view.Summary.AvailableLines == 0 || view.Payable <= 0 {
		return nil, &errors.ErrValidation{Message: "Nothing to pay for"}
	}
	if view.SelectedAddressID == "" {
		return nil, &errors.ErrValidation{Message: "Please add a delivery address"}
	}

	resp, err := s.client.CreatePayment(ctx, backend.CreatePaymentRequest{
		Amount:   view.Payable,
		Currency: s.payment.Currency,
	})
	if err != nil {
		return nil, err
	}

	recordEvent(ctx, s.repos, s.logger, sessionID, customer.ID, EventPaymentCreated, map[string]interface{}{
		"razorpay_order_id": resp.Order.ID,
		"amount":            view.Payable,
		"mode":              string(view.Mode),
	})

	return &PaymentIntent{
		Key:      resp.Key,
		OrderID:  resp.Order.ID,
		Amount:   resp.Order.Amount,
		Currency: resp.Order.Currency,
		Name:     s.payment.MerchantName,
		Prefill: Prefill{
			Name:    customer.Name,
			Contact: customer.Mobile,
		},
	}, nil
}

// VerifyPayment confirms the gateway payment with the backend, which creates the orders
func (s *checkoutService) VerifyPayment(ctx context.Context, sessionID string, customer *domain.Customer, in VerifyPaymentInput) (*PaymentResult, error) {
	view, err := s.Summary(ctx, sessionID, customer)
	if err != nil {
		return nil, err
	}

	address := selectAddress(customer.Addresses, view.SelectedAddressID)

	items := make([]backend.VerifyPaymentItem, 0, len(view.Lines))
	for _, l := range view.Lines {
		items = append(items, backend.VerifyPaymentItem{
			Product:  l.Line.Product.ID,
			Quantity: l.Line.Quantity,
			Price:    l.Line.Product.Price,
		})
	}

	req := backend.VerifyPaymentRequest{
		RazorpayOrderID:   in.RazorpayOrderID,
		RazorpayPaymentID: in.RazorpayPaymentID,
		RazorpaySignature: in.RazorpaySignature,
		Customer:          customer.ID,
		Mobile:            customer.Mobile,
		Address:           address,
		Items:             items,
		OrderValue:        view.Payable,
	}
	if view.AppliedCoupon != nil {
		req.CouponCode = view.AppliedCoupon.Coupon.Code
		req.CouponDiscount = view.AppliedCoupon.Discount
	}

	resp, err := s.client.VerifyPayment(ctx, req)
	if err != nil {
		return nil, err
	}

	if view.Mode == domain.CheckoutModeBuyNow {
		s.clearBuyNow(ctx, sessionID, customer.ID)
	}
	if err := s.repos.Session.ClearAppliedCoupon(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to clear applied coupon", zap.String("session_id", sessionID), zap.Error(err))
	}

	recordEvent(ctx, s.repos, s.logger, sessionID, customer.ID, EventPaymentVerified, map[string]interface{}{
		"payment_group_id": resp.PaymentGroupID,
		"orders":           resp.Orders,
		"order_value":      view.Payable,
	})

	return &PaymentResult{PaymentGroupID: resp.PaymentGroupID, OrderIDs: resp.Orders}, nil
}

// clearBuyNow removes the bought item from the server cart and forgets it.
// The payment already succeeded, so failures here are only logged.
func (s *checkoutService) clearBuyNow(ctx context.Context, sessionID, customerID string) {
	item, err := s.repos.Session.GetBuyNow(ctx, sessionID)
	if err != nil || item == nil {
		return
	}
	if err := s.client.RemoveFromCart(ctx, customerID, item.Product.ID, item.VariantID); err != nil {
		s.logger.Warn("Failed to remove buy-now item from cart",
			zap.String("session_id", sessionID),
			zap.String("product_id", item.Product.ID),
			zap.Error(err),
		)
		return
	}
	if err := s.repos.Session.ClearBuyNow(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to clear buy-now item", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *checkoutService) state(ctx context.Context, sessionID string) (*domain.CheckoutState, error) {
	state, err := s.repos.Session.GetCheckout(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, &errors.ErrNotFound{Resource: "checkout", ID: sessionID}
	}
	return state, nil
}

// availableCoupons lists coupons the backend offers for final, skipping the call for empty orders
func (s *checkoutService) availableCoupons(ctx context.Context, final float64) ([]domain.Coupon, error) {
	if final <= 0 {
		return []domain.Coupon{}, nil
	}
	now := s.now()
	coupons, err := s.client.AvailableCoupons(ctx, final, now)
	if err != nil {
		return nil, err
	}
	eligible := make([]domain.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if pricing.CouponEligible(c, final, now) {
			eligible = append(eligible, c)
		}
	}
	return eligible, nil
}

func (s *checkoutService) view(ctx context.Context, sessionID string, customer *domain.Customer, state *domain.CheckoutState) (*CheckoutView, error) {
	pricingLines := checkoutPricingLines(state.Lines)
	summary := pricing.Summarize(pricingLines)

	lines := make([]CheckoutLineView, 0, len(state.Lines))
	for i, l := range state.Lines {
		lines = append(lines, CheckoutLineView{
			Line:        l,
			StockStatus: pricing.StockStatus(l.Product.Stock),
			Totals:      pricingLines[i].Totals(),
		})
	}

	coupons, err := s.availableCoupons(ctx, summary.Final)
	if err != nil {
		s.logger.Warn("Failed to fetch coupons", zap.Error(err))
		coupons = []domain.Coupon{}
	}

	applied, err := s.repos.Session.GetAppliedCoupon(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if applied != nil {
		// Re-price against the current total; drop it once the order no longer qualifies
		if !pricing.CouponEligible(applied.Coupon, summary.Final, s.now()) {
			applied = nil
			if err := s.repos.Session.ClearAppliedCoupon(ctx, sessionID); err != nil {
				return nil, err
			}
		} else {
			applied.Discount = pricing.CouponDiscount(applied.Coupon, summary.Final)
		}
	}

	var discount float64
	if applied != nil {
		discount = applied.Discount
	}

	saved, err := s.repos.Session.GetSelectedAddress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var selectedID string
	if addr := selectAddress(customer.Addresses, saved); addr != nil {
		selectedID = addr.ID
	}

	addresses := customer.Addresses
	if addresses == nil {
		addresses = []domain.Address{}
	}

	return &CheckoutView{
		Mode:              state.Mode,
		Lines:             lines,
		Summary:           summary,
		Coupons:           coupons,
		AppliedCoupon:     applied,
		Payable:           pricing.Payable(summary.Final, discount),
		Addresses:         addresses,
		SelectedAddressID: selectedID,
	}, nil
}

// selectAddress honors a saved choice that still exists, else the home address, else the first
func selectAddress(addresses []domain.Address, savedID string) *domain.Address {
	if savedID != "" {
		for i := range addresses {
			if addresses[i].ID == savedID {
				return &addresses[i]
			}
		}
	}
	for i := range addresses {
		if strings.EqualFold(addresses[i].Type, "home") {
			return &addresses[i]
		}
	}
	if len(addresses) > 0 {
		return &addresses[0]
	}
	return nil
}

func checkoutPricingLines(lines []domain.CheckoutLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, pricing.Line{
			MRP:      l.Product.MRP,
			Price:    l.Product.Price,
			Discount: l.Product.Discount,
			Stock:    l.Product.Stock,
			Quantity: l.Quantity,
		})
	}
	return out
}

func findCheckoutLine(lines []domain.CheckoutLine, productID string, variantID *string) int {
	key := derefString(variantID)
	for i := range lines {
		if lines[i].Product.ID == productID && lines[i].VariantKey() == key {
			return i
		}
	}
	return -1
}
