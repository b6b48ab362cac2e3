package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

const (
	reviewTitleMax       = 70
	reviewDescriptionMax = 300
)

// AddressList is the address book after a mutation
type AddressList struct {
	Addresses []domain.Address `json:"addresses"`
}

type accountService struct {
	client *backend.Client
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) *accountService {
	return &accountService{
		client: client,
		repos:  repos,
		logger: logger,
	}
}

// ValidateAddress checks the address form
func ValidateAddress(req AddressRequest) error {
	fields := map[string]string{}
	required := map[string]string{
		"name":     req.Name,
		"mobile":   req.Mobile,
		"pin":      req.Pin,
		"area":     req.Area,
		"city":     req.City,
		"state":    req.State,
		"landmark": req.Landmark,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[name] = "required"
		}
	}
	if req.Mobile != "" && !mobilePattern.MatchString(req.Mobile) {
		fields["mobile"] = "10 digits"
	}
	if req.AlternateMobile != "" && !mobilePattern.MatchString(req.AlternateMobile) {
		fields["alternateMobile"] = "10 digits"
	}
	if req.Pin != "" && !pinPattern.MatchString(req.Pin) {
		fields["pin"] = "6 digits"
	}
	if len(fields) > 0 {
		return &errors.ErrValidation{Message: "Please fill all required fields", Fields: fields}
	}
	return nil
}

func addressFromRequest(id string, req AddressRequest) domain.Address {
	return domain.Address{
		ID:              id,
		Type:            strings.TrimSpace(req.Type),
		Name:            strings.TrimSpace(req.Name),
		Mobile:          req.Mobile,
		Area:            strings.TrimSpace(req.Area),
		City:            strings.TrimSpace(req.City),
		State:           strings.TrimSpace(req.State),
		Pin:             req.Pin,
		Landmark:        strings.TrimSpace(req.Landmark),
		AlternateMobile: req.AlternateMobile,
	}
}

// AddAddress validates and saves a new address
func (s *accountService) AddAddress(ctx context.Context, customer *domain.Customer, req AddressRequest) (*domain.Address, error) {
	if err := ValidateAddress(req); err != nil {
		return nil, err
	}
	return s.client.AddAddress(ctx, customer.ID, addressFromRequest("", req))
}

// UpdateAddress validates and saves changes to an existing address
func (s *accountService) UpdateAddress(ctx context.Context, customer *domain.Customer, addressID string, req AddressRequest) (*domain.Address, error) {
	if err := ValidateAddress(req); err != nil {
		return nil, err
	}
	if findAddress(customer.Addresses, addressID) < 0 {
		return nil, &errors.ErrNotFound{Resource: "address", ID: addressID}
	}
	return s.client.UpdateAddress(ctx, customer.ID, addressFromRequest(addressID, req))
}

// DeleteAddress removes an address and returns the remaining list. Nothing is
// stored before the backend confirms, so on failure the caller's unchanged list
// comes back with the error.
func (s *accountService) DeleteAddress(ctx context.Context, sessionID string, customer *domain.Customer, addressID string) (*AddressList, error) {
	idx := findAddress(customer.Addresses, addressID)
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "address", ID: addressID}
	}

	original := append([]domain.Address{}, customer.Addresses...)
	remaining := make([]domain.Address, 0, len(original)-1)
	remaining = append(remaining, original[:idx]...)
	remaining = append(remaining, original[idx+1:]...)

	if err := s.client.DeleteAddress(ctx, customer.ID, addressID); err != nil {
		s.logger.Warn("Failed to delete address", zap.String("address_id", addressID), zap.Error(err))
		return &AddressList{Addresses: original}, err
	}

	selected, err := s.repos.Session.GetSelectedAddress(ctx, sessionID)
	if err == nil && selected == addressID {
		if err := s.repos.Session.SaveSelectedAddress(ctx, sessionID, ""); err != nil {
			s.logger.Warn("Failed to reset selected address", zap.Error(err))
		}
	}

	return &AddressList{Addresses: remaining}, nil
}

// UpdateProfile saves name, email and gender
func (s *accountService) UpdateProfile(ctx context.Context, customer *domain.Customer, req ProfileRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &errors.ErrValidation{
			Message: "Name is required",
			Fields:  map[string]string{"name": "required"},
		}
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, &errors.ErrValidation{
			Message: "Enter a valid email",
			Fields:  map[string]string{"email": "invalid"},
		}
	}
	return s.client.UpdateProfile(ctx, customer.ID, backend.ProfileUpdate{
		Name:   name,
		Email:  email,
		Gender: strings.TrimSpace(req.Gender),
	})
}

// Wishlist returns the active wishlist entries
func (s *accountService) Wishlist(customer *domain.Customer) []domain.WishlistItem {
	items := make([]domain.WishlistItem, 0, len(customer.Wishlist))
	for _, w := range customer.Wishlist {
		if w.Product.ID == "" {
			continue
		}
		items = append(items, w)
	}
	return items
}

// ToggleWishlist adds or removes a product from the wishlist
func (s *accountService) ToggleWishlist(ctx context.Context, customer *domain.Customer, productID string) ([]domain.WishlistItem, error) {
	resp, err := s.client.ToggleWishlist(ctx, customer.ID, productID)
	if err != nil {
		return nil, err
	}
	if resp.Wishlist == nil {
		return []domain.WishlistItem{}, nil
	}
	return resp.Wishlist, nil
}

// RemoveWishlist drops a product from the wishlist
func (s *accountService) RemoveWishlist(ctx context.Context, customer *domain.Customer, productID string) error {
	return s.client.RemoveWishlist(ctx, customer.ID, productID)
}

// ValidateReview checks the review form
func ValidateReview(req ReviewRequest) error {
	fields := map[string]string{}
	title := strings.TrimSpace(req.Title)
	if n := utf8.RuneCountInString(title); n == 0 || n > reviewTitleMax {
		fields["title"] = "1 to 70 characters"
	}
	desc := strings.TrimSpace(req.Description)
	if n := utf8.RuneCountInString(desc); n == 0 || n > reviewDescriptionMax {
		fields["description"] = "1 to 300 characters"
	}
	if req.Rating < 1 || req.Rating > 5 {
		fields["rating"] = "1 to 5"
	}
	if len(fields) > 0 {
		return &errors.ErrValidation{Message: "Invalid review", Fields: fields}
	}
	return nil
}

// Reviews lists the customer's own reviews
func (s *accountService) Reviews(ctx context.Context, customer *domain.Customer) ([]domain.Review, error) {
	reviews, err := s.client.CustomerReviews(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, nil
}

// CreateReview posts a review with its images
func (s *accountService) CreateReview(ctx context.Context, customer *domain.Customer, req ReviewRequest, images []backend.ReviewImage) error {
	if strings.TrimSpace(req.ProductID) == "" {
		return &errors.ErrValidation{Message: "Product is required", Fields: map[string]string{"productId": "required"}}
	}
	if err := ValidateReview(req); err != nil {
		return err
	}
	return s.client.CreateReview(ctx, reviewInput(customer.ID, req, images))
}

// UpdateReview edits a review
func (s *accountService) UpdateReview(ctx context.Context, customer *domain.Customer, reviewID string, req ReviewRequest, images []backend.ReviewImage) error {
	if err := ValidateReview(req); err != nil {
		return err
	}
	return s.client.UpdateReview(ctx, reviewID, reviewInput(customer.ID, req, images))
}

// DeleteReview deletes a review
func (s *accountService) DeleteReview(ctx context.Context, reviewID string) error {
	return s.client.DeleteReview(ctx, reviewID)
}

func reviewInput(customerID string, req ReviewRequest, images []backend.ReviewImage) backend.ReviewInput {
	return backend.ReviewInput{
		ProductID:   strings.TrimSpace(req.ProductID),
		CustomerID:  customerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Rating:      req.Rating,
		Images:      images,
	}
}

func findAddress(addresses []domain.Address, id string) int {
	for i := range addresses {
		if addresses[i].ID == id {
			return i
		}
	}
	return -1
}
