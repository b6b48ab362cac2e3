package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jafarshop/storefront/internal/domain"
)

// ReviewImage is an uploaded supporting file
type ReviewImage struct {
	Filename string
	Content  io.Reader
}

// ReviewInput is the payload for creating or editing a review
type ReviewInput struct {
	ProductID   string
	CustomerID  string
	Title       string
	Description string
	Rating      int
	Images      []ReviewImage
}

// CustomerReviews handles GET /review?user=
func (c *Client) CustomerReviews(ctx context.Context, customerID string) ([]domain.Review, error) {
	q := url.Values{}
	q.Set("user", customerID)
	resp, err := c.do(ctx, http.MethodGet, "/review", q, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []domain.Review `json:"data"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateReview handles POST /review (multipart/form-data)
func (c *Client) CreateReview(ctx context.Context, in ReviewInput) error {
	return c.sendReview(ctx, http.MethodPost, "/review", in)
}

// UpdateReview handles PUT /review/:id (multipart/form-data)
func (c *Client) UpdateReview(ctx context.Context, reviewID string, in ReviewInput) error {
	return c.sendReview(ctx, http.MethodPut, "/review/"+url.PathEscape(reviewID), in)
}

// DeleteReview handles DELETE /review/:id
func (c *Client) DeleteReview(ctx context.Context, reviewID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/review/"+url.PathEscape(reviewID), nil, nil)
	return err
}

func (c *Client) sendReview(ctx context.Context, method, path string, in ReviewInput) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":       in.Title,
		"description": in.Description,
		"rating":      strconv.Itoa(in.Rating),
	}
	if in.ProductID != "" {
		fields["productId"] = in.ProductID
	}
	if in.CustomerID != "" {
		fields["customerId"] = in.CustomerID
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	for _, img := range in.Images {
		part, err := w.CreateFormFile("images", img.Filename)
		if err != nil {
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, img.Content); err != nil {
			return fmt.Errorf("failed to copy image %s: %w", img.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, nil), &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	_, err = c.send(req, path)
	return err
}
