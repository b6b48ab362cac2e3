package service

// ChangeQuantityRequest sets a cart or checkout line to an absolute quantity
type ChangeQuantityRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
}

// LineRequest identifies a cart line by its (productId, variantId) key
type LineRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	VariantID *string `json:"variantId,omitempty"`
}

// AddToCartRequest adds one unit of a product from the product page
type AddToCartRequest struct {
	ProductID   string  `json:"productId" binding:"required"`
	VariantID   *string `json:"variantId,omitempty"`
	PriceAtTime float64 `json:"priceAtTime" binding:"min=0"`
}

// CheckoutItem is the wire shape of a cart line handed to checkout
type CheckoutItem struct {
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId,omitempty"`
	Quantity    int     `json:"quantity"`
	PriceAtTime float64 `json:"priceAtTime"`
}

// BuyNowRequest starts a buy-now checkout
type BuyNowRequest struct {
	Slug      string  `json:"slug" binding:"required"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
}

type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

type SelectAddressRequest struct {
	AddressID string `json:"addressId" binding:"required"`
}

// VerifyPaymentInput is what the client-side checkout script hands back
type VerifyPaymentInput struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

type SendOTPRequest struct {
	Mobile string `json:"mobile" binding:"required"`
}

type VerifyOTPRequest struct {
	OTP          string `json:"otp" binding:"required"`
	UpdateMobile bool   `json:"updateMobile"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// AddressRequest is the address form payload
type AddressRequest struct {
	Type            string `json:"type"`
	Name            string `json:"name"`
	Mobile          string `json:"mobile"`
	Area            string `json:"area"`
	City            string `json:"city"`
	State           string `json:"state"`
	Pin             string `json:"pin"`
	Landmark        string `json:"landmark"`
	AlternateMobile string `json:"alternateMobile,omitempty"`
}

type ProfileRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Gender string `json:"gender"`
}

// ReviewRequest carries the text fields of a review form; images travel as multipart parts
type ReviewRequest struct {
	ProductID   string `form:"productId"`
	Title       string `form:"title"`
	Description string `form:"description"`
	Rating      int    `form:"rating"`
}
