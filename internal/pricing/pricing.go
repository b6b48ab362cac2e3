// Package pricing computes cart and checkout totals and coupon discounts.
//
// All amounts are in major currency units. Per-unit MRP discounts are rounded
// to whole units before being multiplied by quantity, which is what the
// payment gateway is charged against.
package pricing

import (
	"math"
	"strings"
	"time"

	"github.com/jafarshop/storefront/internal/domain"
)

// LowStockThreshold is the stock level at or below which a product is flagged low
const LowStockThreshold = 3

// StockStatus classifies a stock level
func StockStatus(stock int) domain.StockStatus {
	switch {
	case stock <= 0:
		return domain.StockOut
	case stock <= LowStockThreshold:
		return domain.StockLow
	default:
		return domain.StockAvailable
	}
}

// Line is the pricing view of one cart or checkout line
type Line struct {
	MRP      float64
	Price    float64
	Discount float64 // percent off MRP
	Stock    int
	Quantity int
}

// LineFromCart builds a pricing line from a cart entry
func LineFromCart(item domain.CartLineItem) Line {
	p := item.Product()
	return Line{
		MRP:      p.MRP,
		Price:    p.Price,
		Discount: p.Discount,
		Stock:    p.Stock,
		Quantity: item.Quantity,
	}
}

// InStock reports whether the line counts towards totals
func (l Line) InStock() bool {
	return StockStatus(l.Stock) != domain.StockOut
}

// LineTotals is what a single line renders
type LineTotals struct {
	LinePrice float64 `json:"line_price"`
	LineMRP   float64 `json:"line_mrp"`
}

// Totals returns price × qty and mrp × qty for the line
func (l Line) Totals() LineTotals {
	return LineTotals{
		LinePrice: l.Price * float64(l.Quantity),
		LineMRP:   l.MRP * float64(l.Quantity),
	}
}

// Summary aggregates the in-stock lines of a cart or checkout
type Summary struct {
	TotalMRP       float64 `json:"total_mrp"`
	TotalDiscount  float64 `json:"total_discount"`
	Final          float64 `json:"final"`
	TotalAmount    float64 `json:"total_amount"`
	TotalItems     int     `json:"total_items"`
	AvailableLines int     `json:"available_lines"`
	HasOutOfStock  bool    `json:"has_out_of_stock"`
}

// Summarize computes checkout totals over in-stock lines; out-of-stock lines
// only set HasOutOfStock. MRP line totals and per-unit discounts are rounded to
// whole units.
func Summarize(lines []Line) Summary {
	return summarize(lines, math.Round)
}

// SummarizeCart computes the cart page totals. Sums are exact; rounding is
// left to display.
func SummarizeCart(lines []Line) Summary {
	return summarize(lines, func(v float64) float64 { return v })
}

func summarize(lines []Line, round func(float64) float64) Summary {
	var s Summary
	for _, l := range lines {
		if !l.InStock() {
			s.HasOutOfStock = true
			continue
		}
		qty := float64(l.Quantity)
		s.TotalMRP += round(l.MRP * qty)
		s.TotalDiscount += round(l.MRP*l.Discount/100) * qty
		s.TotalAmount += l.Price * qty
		s.TotalItems += l.Quantity
		s.AvailableLines++
	}
	s.Final = s.TotalMRP - s.TotalDiscount
	return s
}

// CouponDiscount computes the discount a coupon grants against the final price
func CouponDiscount(c domain.Coupon, final float64) float64 {
	var discount float64
	if strings.EqualFold(string(c.DiscountType), string(domain.DiscountPercentage)) {
		discount = math.Round(final * c.DiscountValue / 100)
	} else {
		discount = math.Round(c.DiscountValue)
	}
	if c.MaxDiscountAmount > 0 {
		discount = math.Min(discount, c.MaxDiscountAmount)
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// Payable is the amount charged after the coupon, floored at zero
func Payable(final, couponDiscount float64) float64 {
	return math.Max(math.Round(final-couponDiscount), 0)
}

// CouponEligible reports whether a coupon may be applied to an order of the given final price at now
func CouponEligible(c domain.Coupon, final float64, now time.Time) bool {
	if !c.Status {
		return false
	}
	if c.MinOrderAmount > 0 && final < c.MinOrderAmount {
		return false
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return false
	}
	if c.ExpirationDate != nil && now.After(*c.ExpirationDate) {
		return false
	}
	return true
}

// FindCoupon matches a code case-insensitively
func FindCoupon(coupons []domain.Coupon, code string) (domain.Coupon, bool) {
	code = strings.TrimSpace(code)
	for _, c := range coupons {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return domain.Coupon{}, false
}
