package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jafarshop/storefront/internal/domain"
)

// ProductQuery filters the product listing
type ProductQuery struct {
	Page      int
	Limit     int
	Category  string
	Brand     string
	Attribute string
	Search    string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	v.Set("status", "Active")
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Brand != "" {
		v.Set("brand", q.Brand)
	}
	if q.Attribute != "" {
		v.Set("attribute", q.Attribute)
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	return v
}

// ProductList is one page of the product listing
type ProductList struct {
	Data       []domain.Product `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// ListProducts handles GET /product
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*ProductList, error) {
	resp, err := c.do(ctx, http.MethodGet, "/product", q.values(), nil)
	if err != nil {
		return nil, err
	}
	var out ProductList
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductBySlug handles GET /product/:slug
func (c *Client) ProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, "/product/"+url.PathEscape(slug), nil, nil)
	if err != nil {
		return nil, err
	}
	// The backend answers either with the product or with {data: product}
	var wrapped struct {
		Data *domain.Product `json:"data"`
	}
	if err := decode(resp, &wrapped); err == nil && wrapped.Data != nil && wrapped.Data.ID != "" {
		return wrapped.Data, nil
	}
	var out domain.Product
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RelatedProducts handles GET /product/:slug/related
func (c *Client) RelatedProducts(ctx context.Context, slug string) ([]domain.Product, error) {
	q := url.Values{}
	q.Set("status", "Active")
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/product/%s/related", url.PathEscape(slug)), q, nil)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Data []domain.Product `json:"data"`
	}
	if err := decode(resp, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	var out []domain.Product
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductVariants is the product with its sibling variants
type ProductVariants struct {
	SelectedProduct domain.Product   `json:"selectedProduct"`
	Variants        []domain.Product `json:"variants"`
}

// ProductVariants handles GET /product/variants/:slug
func (c *Client) ProductVariants(ctx context.Context, slug string) (*ProductVariants, error) {
	resp, err := c.do(ctx, http.MethodGet, "/product/variants/"+url.PathEscape(slug), nil, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data ProductVariants `json:"data"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ListCategories handles GET /category
func (c *Client) ListCategories(ctx context.Context, page, limit int) ([]domain.Category, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	resp, err := c.do(ctx, http.MethodGet, "/category", q, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Categories []domain.Category `json:"categories"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

type searchResponse struct {
	Success bool                `json:"success"`
	Results []domain.SearchItem `json:"results"`
}

// Search handles GET /search
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchItem, error) {
	q := url.Values{}
	q.Set("q", query)
	return c.search(ctx, "/search", q)
}

// Suggestions handles GET /search/suggestions
func (c *Client) Suggestions(ctx context.Context) ([]domain.SearchItem, error) {
	return c.search(ctx, "/search/suggestions", nil)
}

func (c *Client) search(ctx context.Context, path string, q url.Values) ([]domain.SearchItem, error) {
	resp, err := c.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	var out searchResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return []domain.SearchItem{}, nil
	}
	return out.Results, nil
}
