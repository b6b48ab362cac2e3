package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Image is a hosted asset reference
type Image struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Variable is a named product attribute such as Color or Size
type Variable struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Specification is one row of the product specification table
type Specification struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

// Brand of a product
type Brand struct {
	BrandID string `json:"brandId"`
	Name    string `json:"name"`
	Image   Image  `json:"image"`
}

// ProductReview is a review embedded in a product document
type ProductReview struct {
	ID   string `json:"_id"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
	Rating          int     `json:"rating"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	SupportingFiles []Image `json:"supporting_files,omitempty"`
}

// Product is a catalog entity; read-only from the storefront's perspective
type Product struct {
	ID               string          `json:"_id"`
	ProductID        string          `json:"productId,omitempty"`
	Slug             string          `json:"slug"`
	Name             string          `json:"name"`
	ShortDescription string          `json:"shortDescription,omitempty"`
	LongDescription  string          `json:"longDescription,omitempty"`
	CoverImage       Image           `json:"coverImage"`
	Images           []Image         `json:"images,omitempty"`
	Category         *Category       `json:"category,omitempty"`
	SubCategory      string          `json:"subCategory,omitempty"`
	Brand            *Brand          `json:"brand,omitempty"`
	Attributes       []string        `json:"attributes,omitempty"`
	Variables        []Variable      `json:"variables,omitempty"`
	IsVariant        bool            `json:"isVariant,omitempty"`
	Variants         []Product       `json:"variants,omitempty"`
	Pickup           string          `json:"pickup,omitempty"`
	AverageRating    float64         `json:"averageRating"`
	RatingCount      int             `json:"ratingCount"`
	RatingBreakdown  map[string]int  `json:"ratingBreakdown,omitempty"`
	Specifications   []Specification `json:"specifications,omitempty"`
	MRP              float64         `json:"mrp"`
	Price            float64         `json:"price"`
	Discount         float64         `json:"discount"`
	Stock            int             `json:"stock"`
	Reviews          []ProductReview `json:"reviews,omitempty"`
	Status           bool            `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// VariableValue returns the first value of the named variable
func (p *Product) VariableValue(name string) (string, bool) {
	for _, v := range p.Variables {
		if v.Name == name && len(v.Values) > 0 {
			return v.Values[0], true
		}
	}
	return "", false
}

// ProductRef is a product reference that the backend returns either as a bare id
// or as a populated product document.
type ProductRef struct {
	ID      string
	Product *Product
}

// UnmarshalJSON accepts both "id" and {...product...}
func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ProductRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = ProductRef{ID: id}
		return nil
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ProductRef{ID: p.ID, Product: &p}
	return nil
}

// MarshalJSON writes the populated product when known, else the id
func (r ProductRef) MarshalJSON() ([]byte, error) {
	if r.Product != nil {
		return json.Marshal(r.Product)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// Stock returns the populated product's stock, 0 when unknown
func (r *ProductRef) Stock() int {
	if r == nil || r.Product == nil {
		return 0
	}
	return r.Product.Stock
}

// CartLineItem is one entry of the customer's server-held cart
type CartLineItem struct {
	ProductID   ProductRef  `json:"productId"`
	VariantID   *ProductRef `json:"variantId,omitempty"`
	Quantity    int         `json:"quantity"`
	PriceAtTime float64     `json:"priceAtTime"`
}

// VariantKey returns the variant id or "" when the line has no variant
func (c *CartLineItem) VariantKey() string {
	if c.VariantID == nil {
		return ""
	}
	return c.VariantID.ID
}

// Matches reports whether the line has the given (productId, variantId) key
func (c *CartLineItem) Matches(productID, variantID string) bool {
	return c.ProductID.ID == productID && c.VariantKey() == variantID
}

// Product returns the populated product document, or an empty one
func (c *CartLineItem) Product() Product {
	if c.ProductID.Product == nil {
		return Product{ID: c.ProductID.ID}
	}
	return *c.ProductID.Product
}

// Address is a customer delivery address
type Address struct {
	ID              string `json:"_id,omitempty"`
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

// WishlistItem is one wishlist entry
type WishlistItem struct {
	ID      string  `json:"_id"`
	Product Product `json:"product"`
	Status  bool    `json:"status"`
}

// Customer is the logged-in shopper as returned by the backend
type Customer struct {
	ID          string         `json:"_id"`
	CustomerID  string         `json:"customerId"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Gender      string         `json:"gender,omitempty"`
	Mobile      string         `json:"mobile"`
	Avatar      *Image         `json:"avatar,omitempty"`
	Addresses   []Address      `json:"addresses"`
	Cart        []CartLineItem `json:"cart"`
	Wishlist    []WishlistItem `json:"wishlist"`
	TotalOrders int            `json:"totalOrders"`
	TotalSpent  float64        `json:"totalSpent"`
	Status      bool           `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Coupon is a discount code offered by the backend
type Coupon struct {
	ID                string       `json:"_id"`
	CouponID          string       `json:"couponId"`
	Name              string       `json:"name"`
	Code              string       `json:"code"`
	DiscountType      DiscountType `json:"discountType"`
	DiscountValue     float64      `json:"discountValue"`
	MinOrderAmount    float64      `json:"minOrderAmount"`
	MaxDiscountAmount float64      `json:"maxDiscountAmount"`
	UsageLimit        int          `json:"usageLimit"`
	Status            bool         `json:"status"`
	StartDate         *time.Time   `json:"startDate,omitempty"`
	ExpirationDate    *time.Time   `json:"expirationDate,omitempty"`
}

// TrackingEntry is one courier scan in an order's tracking history
type TrackingEntry struct {
	Date        string `json:"date"`
	Status      string `json:"status"`
	Location    string `json:"location"`
	Timestamp   string `json:"timestamp,omitempty"`
	Action      string `json:"action,omitempty"`
	Description string `json:"description,omitempty"`
}

// Shipping holds courier details for an order
type Shipping struct {
	ShipmozoOrderID      string          `json:"shipmozoOrderId,omitempty"`
	CourierID            int             `json:"courierId,omitempty"`
	CourierName          string          `json:"courierName,omitempty"`
	AWBNumber            string          `json:"awbNumber,omitempty"`
	TrackingURL          string          `json:"trackingUrl,omitempty"`
	CurrentStatus        string          `json:"currentStatus,omitempty"`
	ExpectedDeliveryDate string          `json:"expectedDeliveryDate,omitempty"`
	TrackingHistory      []TrackingEntry `json:"trackingHistory,omitempty"`
}

// Order is a single-SKU customer order
type Order struct {
	ID             string      `json:"_id"`
	OrderID        string      `json:"orderId"`
	Mobile         string      `json:"mobile"`
	Address        Address     `json:"address"`
	Product        Product     `json:"product"`
	Quantity       int         `json:"quantity"`
	Price          float64     `json:"price"`
	OrderValue     float64     `json:"orderValue"`
	CouponCode     string      `json:"couponCode,omitempty"`
	CouponDiscount float64     `json:"couponDiscount,omitempty"`
	Status         OrderStatus `json:"status"`
	PaymentStatus  string      `json:"paymentStatus"`
	Shipping       Shipping    `json:"shipping"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Review is a customer's review of a purchased product
type Review struct {
	ID              string  `json:"_id"`
	Product         Product `json:"product"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Rating          int     `json:"rating"`
	SupportingFiles []Image `json:"supporting_files,omitempty"`
}

// CategoryLevel is a node in the category tree
type CategoryLevel struct {
	ID       string          `json:"id,omitempty"`
	Type     string          `json:"type"`
	Name     string          `json:"name,omitempty"`
	Image    *Image          `json:"image,omitempty"`
	Children []CategoryLevel `json:"children,omitempty"`
	Status   *bool           `json:"status,omitempty"`
}

// Category is a top-level catalog category
type Category struct {
	CategoryID string          `json:"categoryId,omitempty"`
	Name       string          `json:"name"`
	Image      *Image          `json:"image,omitempty"`
	Status     bool            `json:"status,omitempty"`
	Children   []CategoryLevel `json:"children,omitempty"`
}

// SearchItem is one search hit
type SearchItem struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Slug  string `json:"slug,omitempty"`
	Image string `json:"image,omitempty"`
}

// BuyNowItem is the single item checked out through the buy-now flow
type BuyNowItem struct {
	Product   Product `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// CheckoutLine is one item being checked out. Product is the populated
// product document as of load time.
type CheckoutLine struct {
	Product     Product `json:"product"`
	VariantID   *string `json:"variantId,omitempty"`
	Quantity    int     `json:"quantity"`
	PriceAtTime float64 `json:"priceAtTime"`
}

// VariantKey returns the variant id or "" when the line has no variant
func (l *CheckoutLine) VariantKey() string {
	if l.VariantID == nil {
		return ""
	}
	return *l.VariantID
}

// CheckoutState is the checkout a session is currently looking at
type CheckoutState struct {
	Mode  CheckoutMode   `json:"mode"`
	Lines []CheckoutLine `json:"lines"`
}

// AppliedCoupon is the coupon currently applied to a session's checkout
type AppliedCoupon struct {
	Coupon   Coupon  `json:"coupon"`
	Discount float64 `json:"discount"`
}

// OTPState is the persisted position of a session in the OTP login flow
type OTPState struct {
	Step          LoginStep  `json:"step"`
	Mobile        string     `json:"mobile,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}

// StorefrontEvent is an audit record of a storefront mutation
type StorefrontEvent struct {
	ID         uuid.UUID
	SessionID  string
	CustomerID string
	EventType  string
	EventData  map[string]interface{} // JSONB
	CreatedAt  time.Time
}
