package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jafarshop/storefront/internal/domain"
)

// CreatePaymentRequest asks the backend to open a Razorpay order
type CreatePaymentRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// RazorpayOrder is the gateway order created by the backend
type RazorpayOrder struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CreatePaymentResponse carries the gateway order and the public key id
type CreatePaymentResponse struct {
	Success bool          `json:"success"`
	Order   RazorpayOrder `json:"order"`
	Key     string        `json:"key"`
}

// CreatePayment handles POST /order/razorpay/create
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/order/razorpay/create", nil, req)
	if err != nil {
		return nil, err
	}
	if err := requireSuccess(resp, "Failed to create Razorpay order"); err != nil {
		return nil, err
	}
	var out CreatePaymentResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPaymentItem is one purchased line sent for order creation
type VerifyPaymentItem struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// VerifyPaymentRequest confirms a gateway payment and creates the orders
type VerifyPaymentRequest struct {
	RazorpayOrderID   string              `json:"razorpay_order_id"`
	RazorpayPaymentID string              `json:"razorpay_payment_id"`
	RazorpaySignature string              `json:"razorpay_signature"`
	Customer          string              `json:"customer"`
	Mobile            string              `json:"mobile"`
	Address           *domain.Address     `json:"address"`
	Items             []VerifyPaymentItem `json:"items"`
	CouponCode        string              `json:"couponCode,omitempty"`
	CouponDiscount    float64             `json:"couponDiscount"`
	OrderValue        float64             `json:"orderValue"`
}

// VerifyPaymentResponse lists the orders created for a verified payment
type VerifyPaymentResponse struct {
	Success        bool     `json:"success"`
	PaymentGroupID string   `json:"paymentGroupId"`
	Orders         []string `json:"orders"`
	Message        string   `json:"message,omitempty"`
}

// VerifyPayment handles POST /order/razorpay/verify
func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/order/razorpay/verify", nil, req)
	if err != nil {
		return nil, err
	}
	var out VerifyPaymentResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderList is one page of a customer's orders
type OrderList struct {
	Success    bool           `json:"success"`
	Data       []domain.Order `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// CustomerOrders handles GET /order/customers/:id
func (c *Client) CustomerOrders(ctx context.Context, customerID string, page, limit int) (*OrderList, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/order/customers/%s", url.PathEscape(customerID)), q, nil)
	if err != nil {
		return nil, err
	}
	var out OrderList
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrderRequest is a customer-initiated order change
type UpdateOrderRequest struct {
	Status       domain.OrderStatus `json:"status"`
	CancelReason string             `json:"cancelReason,omitempty"`
}

// UpdateOrder handles PUT /order/:id
func (c *Client) UpdateOrder(ctx context.Context, orderID string, req UpdateOrderRequest) error {
	resp, err := c.do(ctx, http.MethodPut, "/order/"+url.PathEscape(orderID), nil, req)
	if err != nil {
		return err
	}
	return requireSuccess(resp, "Failed to cancel order")
}

// AvailableCoupons handles GET /coupon?min=&expire=. A minAmount of zero or
// less lists coupons regardless of order value.
func (c *Client) AvailableCoupons(ctx context.Context, minAmount float64, at time.Time) ([]domain.Coupon, error) {
	q := url.Values{}
	if minAmount > 0 {
		q.Set("min", strconv.FormatFloat(minAmount, 'f', -1, 64))
	}
	q.Set("expire", at.UTC().Format(time.RFC3339))
	resp, err := c.do(ctx, http.MethodGet, "/coupon", q, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Coupons []domain.Coupon `json:"coupons"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Coupons == nil {
		return []domain.Coupon{}, nil
	}
	return out.Coupons, nil
}
