package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jafarshop/storefront/internal/domain"
)

// AddToCartRequest adds quantity units of a product to the server cart.
// Quantity may be negative: the backend applies it as a delta.
type AddToCartRequest struct {
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId,omitempty"`
	Quantity    int     `json:"quantity"`
	PriceAtTime float64 `json:"priceAtTime,omitempty"`
}

type removeFromCartRequest struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
}

// AddToCart handles POST /customer/:id/cart
func (c *Client) AddToCart(ctx context.Context, customerID string, req AddToCartRequest) error {
	path := fmt.Sprintf("/customer/%s/cart", url.PathEscape(customerID))
	_, err := c.do(ctx, http.MethodPost, path, nil, req)
	return err
}

// RemoveFromCart handles DELETE /customer/:id/cart
func (c *Client) RemoveFromCart(ctx context.Context, customerID, productID string, variantID *string) error {
	path := fmt.Sprintf("/customer/%s/cart", url.PathEscape(customerID))
	_, err := c.do(ctx, http.MethodDelete, path, nil, removeFromCartRequest{
		ProductID: productID,
		VariantID: variantID,
	})
	return err
}

// ToggleWishlistResponse is the backend reply to a wishlist toggle
type ToggleWishlistResponse struct {
	Message  string                `json:"message"`
	Wishlist []domain.WishlistItem `json:"wishlist"`
}

// ToggleWishlist handles POST /customer/:id/wishlist
func (c *Client) ToggleWishlist(ctx context.Context, customerID, productID string) (*ToggleWishlistResponse, error) {
	path := fmt.Sprintf("/customer/%s/wishlist", url.PathEscape(customerID))
	resp, err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"productId": productID})
	if err != nil {
		return nil, err
	}
	var out ToggleWishlistResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveWishlist handles DELETE /customer/remove-wishlist/:id/:productId
func (c *Client) RemoveWishlist(ctx context.Context, customerID, productID string) error {
	path := fmt.Sprintf("/customer/remove-wishlist/%s/%s", url.PathEscape(customerID), url.PathEscape(productID))
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}
