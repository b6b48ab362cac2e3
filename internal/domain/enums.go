package domain

// OrderStatus represents the status of a customer order as assigned by the backend
type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusConfirmed      OrderStatus = "Confirmed"
	OrderStatusShipped        OrderStatus = "Shipped"
	OrderStatusInTransit      OrderStatus = "InTransit"
	OrderStatusOutForDelivery OrderStatus = "OutForDelivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
	OrderStatusRTO            OrderStatus = "RTO"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusProcessing,
		OrderStatusConfirmed,
		OrderStatusShipped,
		OrderStatusInTransit,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRTO:
		return true
	default:
		return false
	}
}

// IsTerminalFailure reports whether the order stopped outside the delivery flow
func (s OrderStatus) IsTerminalFailure() bool {
	return s == OrderStatusCancelled || s == OrderStatusRTO
}

// CanTransitionTo checks if a customer-requested status change is allowed.
// The storefront only ever requests cancellation, and only before the order
// is confirmed.
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusProcessing:
		return newStatus == OrderStatusCancelled
	default:
		return false
	}
}

// StockStatus is the availability badge shown next to a product or cart line
type StockStatus string

const (
	StockAvailable StockStatus = "available"
	StockLow       StockStatus = "low"
	StockOut       StockStatus = "out"
)

// DiscountType is the kind of reduction a coupon grants
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// CheckoutMode selects where checkout items come from
type CheckoutMode string

const (
	CheckoutModeBuyNow CheckoutMode = "buy-now"
	CheckoutModeCart   CheckoutMode = "cart"
)

// IsValid checks if the checkout mode is known
func (m CheckoutMode) IsValid() bool {
	return m == CheckoutModeBuyNow || m == CheckoutModeCart
}

// LoginStep is the position in the OTP login flow
type LoginStep string

const (
	LoginStepMobile LoginStep = "MOBILE"
	LoginStepOTP    LoginStep = "OTP"
)

// PaymentStatus mirrors the backend payment record status
type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "Created"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentFailed   PaymentStatus = "Failed"
	PaymentRefunded PaymentStatus = "Refunded"
)
