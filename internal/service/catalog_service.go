package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/pricing"
	"github.com/jafarshop/storefront/internal/resource"
	"github.com/jafarshop/storefront/pkg/errors"
)

const (
	// BrowsePageSize is the product listing page size
	BrowsePageSize = 12

	// CategoryPlaceholderImage is shown for categories without an image
	CategoryPlaceholderImage = "/assets/home/category/plants.png"

	categoryFetchLimit = 100
)

// BrowseFilter narrows the product listing
type BrowseFilter struct {
	Category  string
	Brand     string
	Attribute string
	Search    string
	// Seen holds ids the client already shows; later pages skip them
	Seen []string
}

// BrowsePage is one page of the product listing
type BrowsePage struct {
	Products   []domain.Product `json:"products"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	HasMore    bool             `json:"has_more"`
	Replace    bool             `json:"replace"`
}

// VariantGroup is the variants sharing one attribute value
type VariantGroup struct {
	Value    string           `json:"value"`
	Products []domain.Product `json:"products"`
}

// RatingBar is one star row of the rating summary
type RatingBar struct {
	Stars   int     `json:"stars"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// RatingSummary is the product page review header
type RatingSummary struct {
	Average float64     `json:"average"`
	Count   int         `json:"count"`
	Bars    []RatingBar `json:"bars"`
}

// ProductPage is the product detail page model
type ProductPage struct {
	Product      domain.Product     `json:"product"`
	StockStatus  domain.StockStatus `json:"stock_status"`
	Related      []domain.Product   `json:"related"`
	ShowVariants bool               `json:"show_variants"`
	Colors       []VariantGroup     `json:"colors,omitempty"`
	Sizes        []VariantGroup     `json:"sizes,omitempty"`
	Rating       RatingSummary      `json:"rating"`
	Coupons      []domain.Coupon    `json:"coupons"`
}

// CategoryRef is a parent or sub category as the menu shows it
type CategoryRef struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// CategoryGroup is a parent category with its visible sub categories
type CategoryGroup struct {
	Parent        CategoryRef   `json:"parent"`
	SubCategories []CategoryRef `json:"sub_categories"`
}

// Delivery is the result of a pincode serviceability check
type Delivery struct {
	Charge       float64 `json:"charge"`
	Courier      string  `json:"courier"`
	ETD          string  `json:"etd"`
	DeliveryDate string  `json:"delivery_date,omitempty"`
}

// Location is the city and state of a pincode
type Location struct {
	City  string `json:"city"`
	State string `json:"state"`
}

type catalogService struct {
	client     *backend.Client
	categories *resource.Resource[[]CategoryGroup]
	logger     *zap.Logger
	now        func() time.Time
}

// NewCatalogService creates a new catalog service. categories is shared across requests.
func NewCatalogService(client *backend.Client, categories *resource.Resource[[]CategoryGroup], logger *zap.Logger) *catalogService {
	return &catalogService{
		client:     client,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

// NewCategoryResource creates the process-wide category tree resource
func NewCategoryResource(client *backend.Client, logger *zap.Logger) *resource.Resource[[]CategoryGroup] {
	return resource.New("categories", func(ctx context.Context) ([]CategoryGroup, error) {
		categories, err := client.ListCategories(ctx, 1, categoryFetchLimit)
		if err != nil {
			return nil, err
		}
		return GroupCategories(categories), nil
	}, resource.WithLogger(logger))
}

// Browse returns one listing page. Page 1 replaces what the client shows;
// later pages only carry products it has not seen.
func (s *catalogService) Browse(ctx context.Context, filter BrowseFilter, page int) (*BrowsePage, error) {
	if page < 1 {
		page = 1
	}
	list, err := s.client.ListProducts(ctx, backend.ProductQuery{
		Page:      page,
		Limit:     BrowsePageSize,
		Category:  strings.TrimSpace(filter.Category),
		Brand:     strings.TrimSpace(filter.Brand),
		Attribute: strings.TrimSpace(filter.Attribute),
		Search:    strings.TrimSpace(filter.Search),
	})
	if err != nil {
		return nil, err
	}

	products := list.Data
	if page > 1 {
		products = MergeProducts(nil, filter.Seen, list.Data)
	}
	if products == nil {
		products = []domain.Product{}
	}

	return &BrowsePage{
		Products:   products,
		Page:       page,
		TotalPages: list.Pagination.TotalPages,
		HasMore:    page < list.Pagination.TotalPages,
		Replace:    page == 1,
	}, nil
}

// MergeProducts appends incoming to existing, skipping ids already in existing or seen
func MergeProducts(existing []domain.Product, seen []string, incoming []domain.Product) []domain.Product {
	ids := make(map[string]struct{}, len(existing)+len(seen))
	for _, p := range existing {
		ids[p.ID] = struct{}{}
	}
	for _, id := range seen {
		ids[id] = struct{}{}
	}
	out := existing
	for _, p := range incoming {
		if _, dup := ids[p.ID]; dup {
			continue
		}
		ids[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ProductPage loads the product, its related products, its variants and the
// current coupons concurrently. Only the product itself is required.
func (s *catalogService) ProductPage(ctx context.Context, slug string) (*ProductPage, error) {
	var (
		product  *domain.Product
		related  []domain.Product
		variants *backend.ProductVariants
		coupons  []domain.Coupon
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.client.ProductBySlug(gctx, slug)
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	g.Go(func() error {
		r, err := s.client.RelatedProducts(gctx, slug)
		if err != nil {
			s.logger.Warn("Failed to fetch related products", zap.String("slug", slug), zap.Error(err))
			return nil
		}
		related = r
		return nil
	})
	g.Go(func() error {
		v, err := s.client.ProductVariants(gctx, slug)
		if err != nil {
			s.logger.Warn("Failed to fetch product variants", zap.String("slug", slug), zap.Error(err))
			return nil
		}
		variants = v
		return nil
	})
	g.Go(func() error {
		c, err := s.client.AvailableCoupons(gctx, 0, s.now())
		if err != nil {
			s.logger.Warn("Failed to fetch coupons", zap.String("slug", slug), zap.Error(err))
			return nil
		}
		coupons = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	current := *product
	if variants != nil {
		if variants.SelectedProduct.ID != "" {
			current = variants.SelectedProduct
		}
		current.Variants = variants.Variants
	}
	if related == nil {
		related = []domain.Product{}
	}
	if coupons == nil {
		coupons = []domain.Coupon{}
	}

	page := &ProductPage{
		Product:      current,
		StockStatus:  pricing.StockStatus(current.Stock),
		Related:      related,
		ShowVariants: len(current.Variants) > 1,
		Rating:       Rating(current),
		Coupons:      coupons,
	}
	if page.ShowVariants {
		page.Colors = GroupVariants(current.Variants, "Color")
		page.Sizes = GroupVariants(current.Variants, "Size")
	}
	return page, nil
}

// Product returns a product by slug
func (s *catalogService) Product(ctx context.Context, slug string) (*domain.Product, error) {
	return s.client.ProductBySlug(ctx, slug)
}

// variantValue is the group key of a variant for attr; "" means the variant is not grouped
func variantValue(p *domain.Product, attr string) string {
	if v, ok := p.VariableValue(attr); ok {
		return v
	}
	if !p.IsVariant && attr == "Color" {
		return " "
	}
	return ""
}

// GroupVariants groups variants by the first value of the named variable, in first-seen order
func GroupVariants(variants []domain.Product, attr string) []VariantGroup {
	var groups []VariantGroup
	index := make(map[string]int)
	for i := range variants {
		value := variantValue(&variants[i], attr)
		if value == "" {
			continue
		}
		idx, ok := index[value]
		if !ok {
			idx = len(groups)
			index[value] = idx
			groups = append(groups, VariantGroup{Value: value})
		}
		groups[idx].Products = append(groups[idx].Products, variants[i])
	}
	return groups
}

// Rating builds the five-to-one star summary of a product
func Rating(p domain.Product) RatingSummary {
	summary := RatingSummary{Average: p.AverageRating, Count: p.RatingCount}
	for stars := 5; stars >= 1; stars-- {
		count := p.RatingBreakdown[strconv.Itoa(stars)]
		var percent float64
		if p.RatingCount > 0 {
			percent = float64(count) / float64(p.RatingCount) * 100
		}
		summary.Bars = append(summary.Bars, RatingBar{Stars: stars, Count: count, Percent: percent})
	}
	return summary
}

// Categories returns the grouped category tree, fetching it on first use
func (s *catalogService) Categories(ctx context.Context, refresh bool) ([]CategoryGroup, error) {
	if refresh {
		if err := s.categories.Refresh(ctx, true); err != nil {
			return nil, err
		}
	}
	groups, err := s.categories.Data(ctx)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		return []CategoryGroup{}, nil
	}
	return *groups, nil
}

// GroupCategories maps backend categories to parent/sub groups
func GroupCategories(categories []domain.Category) []CategoryGroup {
	grouped := make([]CategoryGroup, 0, len(categories))
	for _, parent := range categories {
		parentImage := CategoryPlaceholderImage
		if parent.Image != nil && parent.Image.URL != "" {
			parentImage = parent.Image.URL
		}

		subs := []CategoryRef{}
		for _, child := range parent.Children {
			if !strings.EqualFold(child.Type, "sub") || child.Name == "" {
				continue
			}
			if child.Status != nil && !*child.Status {
				continue
			}
			image := parentImage
			if child.Image != nil && child.Image.URL != "" {
				image = child.Image.URL
			}
			subs = append(subs, CategoryRef{ID: child.ID, Name: child.Name, Image: image})
		}

		grouped = append(grouped, CategoryGroup{
			Parent:        CategoryRef{ID: parent.CategoryID, Name: parent.Name, Image: parentImage},
			SubCategories: subs,
		})
	}
	return grouped
}

// CheckPincode reports whether the pincode is serviceable and by when
func (s *catalogService) CheckPincode(ctx context.Context, pin string) (*Delivery, error) {
	pin = strings.TrimSpace(pin)
	if !pinPattern.MatchString(pin) {
		return nil, &errors.ErrValidation{
			Message: "Please enter a valid 6 digit pincode",
			Fields:  map[string]string{"pincode": "6 digits"},
		}
	}

	resp, err := s.client.Serviceability(ctx, pin)
	if err != nil {
		return nil, err
	}
	if resp.BestCourier == nil {
		return nil, &errors.ErrUpstream{Status: 200, Message: "Service not available at this location"}
	}

	out := &Delivery{
		Charge:  resp.BestCourier.Rate,
		Courier: resp.BestCourier.CourierName,
		ETD:     resp.BestCourier.ETD,
	}
	if out.ETD == "" {
		out.ETD = "N/A"
	}
	if days, ok := leadingInt(resp.BestCourier.ETD); ok {
		out.DeliveryDate = s.now().AddDate(0, 0, days).Format("Monday, 02 Jan 2006")
	}
	return out, nil
}

// LookupPincode resolves a pincode to the city and state of its first post office
func (s *catalogService) LookupPincode(ctx context.Context, pin string) (*Location, error) {
	pin = strings.TrimSpace(pin)
	if !pinPattern.MatchString(pin) {
		return nil, &errors.ErrValidation{
			Message: "Please enter a valid 6 digit pincode",
			Fields:  map[string]string{"pin": "6 digits"},
		}
	}
	offices, err := s.client.PincodeLocation(ctx, pin)
	if err != nil {
		return nil, err
	}
	if len(offices) == 0 {
		return nil, &errors.ErrNotFound{Resource: "pincode", ID: pin}
	}
	return &Location{City: offices[0].District, State: offices[0].State}, nil
}

// Search runs a trimmed free-text search; an empty query returns nothing
func (s *catalogService) Search(ctx context.Context, q string) ([]domain.SearchItem, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.SearchItem{}, nil
	}
	return s.client.Search(ctx, q)
}

// Suggestions returns the search box suggestions
func (s *catalogService) Suggestions(ctx context.Context) ([]domain.SearchItem, error) {
	return s.client.Suggestions(ctx)
}

// leadingInt parses the digits a string starts with, e.g. "2 Days" is 2
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && unicode.IsDigit(rune(s[end])) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
