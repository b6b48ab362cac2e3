package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/pkg/errors"
)

func newCatalogFixture(t *testing.T) (*fakeBackend, *catalogService) {
	t.Helper()
	fb, client := newFakeBackend(t, domain.Customer{})
	svc := NewCatalogService(client, NewCategoryResource(client, zap.NewNop()), zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return fb, svc
}

func variant(id, color, size string) domain.Product {
	p := domain.Product{ID: id, IsVariant: true}
	if color != "" {
		p.Variables = append(p.Variables, domain.Variable{Name: "Color", Values: []string{color}})
	}
	if size != "" {
		p.Variables = append(p.Variables, domain.Variable{Name: "Size", Values: []string{size}})
	}
	return p
}

func TestCatalogService_BrowseDedupesLaterPages(t *testing.T) {
	fb, svc := newCatalogFixture(t)
	fb.handle(http.MethodGet, "/product", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"data":       []domain.Product{{ID: "p-1"}, {ID: "p-2"}, {ID: "p-3"}},
			"pagination": map[string]interface{}{"totalPages": 3},
		})
	})
	ctx := context.Background()

	first, err := svc.Browse(ctx, BrowseFilter{Category: " Indoor "}, 1)
	require.NoError(t, err)
	assert.True(t, first.Replace)
	assert.True(t, first.HasMore)
	assert.Len(t, first.Products, 3)

	calls := fb.calls(http.MethodGet, "/product")
	require.Len(t, calls, 1)
	assert.Equal(t, "category=Indoor&limit=12&page=1&status=Active", calls[0].Query)

	next, err := svc.Browse(ctx, BrowseFilter{Seen: []string{"p-1", "p-3"}}, 3)
	require.NoError(t, err)
	assert.False(t, next.Replace)
	assert.False(t, next.HasMore)
	require.Len(t, next.Products, 1)
	assert.Equal(t, "p-2", next.Products[0].ID)
}

func TestMergeProducts(t *testing.T) {
	existing := []domain.Product{{ID: "a"}, {ID: "b"}}
	incoming := []domain.Product{{ID: "b"}, {ID: "c"}, {ID: "c"}, {ID: "d"}}

	merged := MergeProducts(existing, []string{"d"}, incoming)
	ids := make([]string, 0, len(merged))
	for _, p := range merged {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestGroupVariants(t *testing.T) {
	variants := []domain.Product{
		variant("v-1", "Green", "Small"),
		variant("v-2", "White", "Small"),
		variant("v-3", "Green", "Large"),
		variant("v-4", "", ""),
		{ID: "base"},
	}

	colors := GroupVariants(variants, "Color")
	require.Len(t, colors, 3)
	assert.Equal(t, "Green", colors[0].Value)
	assert.Len(t, colors[0].Products, 2)
	assert.Equal(t, "White", colors[1].Value)
	// The base product groups under a blank color
	assert.Equal(t, " ", colors[2].Value)
	assert.Equal(t, "base", colors[2].Products[0].ID)

	sizes := GroupVariants(variants, "Size")
	require.Len(t, sizes, 2)
	assert.Equal(t, "Small", sizes[0].Value)
	assert.Equal(t, "Large", sizes[1].Value)
}

func TestRating(t *testing.T) {
	p := domain.Product{
		AverageRating:   4.2,
		RatingCount:     10,
		RatingBreakdown: map[string]int{"5": 5, "4": 3, "1": 2},
	}

	summary := Rating(p)
	require.Len(t, summary.Bars, 5)
	assert.Equal(t, 5, summary.Bars[0].Stars)
	assert.Equal(t, 50.0, summary.Bars[0].Percent)
	assert.Equal(t, 30.0, summary.Bars[1].Percent)
	assert.Equal(t, 0.0, summary.Bars[2].Percent)
	assert.Equal(t, 1, summary.Bars[4].Stars)
	assert.Equal(t, 20.0, summary.Bars[4].Percent)

	empty := Rating(domain.Product{})
	for _, bar := range empty.Bars {
		assert.Zero(t, bar.Percent)
	}
}

func TestGroupCategories(t *testing.T) {
	hidden := false
	categories := []domain.Category{
		{
			CategoryID: "c-1",
			Name:       "Plants",
			Image:      &domain.Image{URL: "https://cdn.example.com/plants.png"},
			Children: []domain.CategoryLevel{
				{ID: "s-1", Type: "sub", Name: "Indoor"},
				{ID: "s-2", Type: "SUB", Name: "Outdoor", Image: &domain.Image{URL: "https://cdn.example.com/outdoor.png"}},
				{ID: "s-3", Type: "sub", Name: "Retired", Status: &hidden},
				{ID: "t-1", Type: "type", Name: "Succulent"},
				{ID: "s-4", Type: "sub"},
			},
		},
		{CategoryID: "c-2", Name: "Pots"},
	}

	groups := GroupCategories(categories)
	require.Len(t, groups, 2)

	plants := groups[0]
	assert.Equal(t, "https://cdn.example.com/plants.png", plants.Parent.Image)
	require.Len(t, plants.SubCategories, 2)
	assert.Equal(t, "https://cdn.example.com/plants.png", plants.SubCategories[0].Image)
	assert.Equal(t, "https://cdn.example.com/outdoor.png", plants.SubCategories[1].Image)

	assert.Equal(t, CategoryPlaceholderImage, groups[1].Parent.Image)
	assert.Empty(t, groups[1].SubCategories)
}

func TestCatalogService_CategoriesFetchedOnce(t *testing.T) {
	fb, svc := newCatalogFixture(t)
	fb.handle(http.MethodGet, "/category", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"categories": []domain.Category{{CategoryID: "c-1", Name: "Plants"}}})
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		groups, err := svc.Categories(ctx, false)
		require.NoError(t, err)
		require.Len(t, groups, 1)
	}
	assert.Len(t, fb.calls(http.MethodGet, "/category"), 1)

	_, err := svc.Categories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, fb.calls(http.MethodGet, "/category"), 2)
}

func TestCatalogService_ProductPage(t *testing.T) {
	fb, svc := newCatalogFixture(t)
	fb.handle(http.MethodGet, "/product/fern", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"data": domain.Product{ID: "p-fern", Slug: "fern", Stock: 2}})
	})
	fb.handle(http.MethodGet, "/product/variants/fern", func(w http.ResponseWriter, r *http.Request) {
		selected := variant("v-1", "Green", "Small")
		selected.Stock = 8
		writeJSON(w, map[string]interface{}{"data": map[string]interface{}{
			"selectedProduct": selected,
			"variants":        []domain.Product{selected, variant("v-2", "White", "Small")},
		}})
	})
	fb.failWith(http.MethodGet, "/product/fern/related", http.StatusInternalServerError)

	page, err := svc.ProductPage(context.Background(), "fern")
	require.NoError(t, err)

	assert.Equal(t, "v-1", page.Product.ID)
	assert.Equal(t, domain.StockAvailable, page.StockStatus)
	assert.Empty(t, page.Related)
	assert.True(t, page.ShowVariants)
	assert.Len(t, page.Colors, 2)
	assert.Len(t, page.Sizes, 1)
	assert.Empty(t, page.Coupons)
}

func TestCatalogService_ProductPageCoupons(t *testing.T) {
	fb, svc := newCatalogFixture(t)
	fb.handle(http.MethodGet, "/product/fern", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"data": domain.Product{ID: "p-fern", Slug: "fern", Stock: 2}})
	})
	fb.handle(http.MethodGet, "/coupon", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"coupons": []domain.Coupon{{Code: "GREEN10", Status: true}}})
	})

	page, err := svc.ProductPage(context.Background(), "fern")
	require.NoError(t, err)
	require.Len(t, page.Coupons, 1)
	assert.Equal(t, "GREEN10", page.Coupons[0].Code)

	calls := fb.calls(http.MethodGet, "/coupon")
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].Query, "min=")
	assert.Contains(t, calls[0].Query, "expire=")
}

func TestCatalogService_ProductPageWithoutCoupons(t *testing.T) {
	fb, svc := newCatalogFixture(t)
	fb.handle(http.MethodGet, "/product/fern", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"data": domain.Product{ID: "p-fern", Slug: "fern", Stock: 2}})
	})
	fb.failWith(http.MethodGet, "/coupon", http.StatusInternalServerError)

	page, err := svc.ProductPage(context.Background(), "fern")
	require.NoError(t, err)
	assert.Equal(t, "p-fern", page.Product.ID)
	assert.NotNil(t, page.Coupons)
	assert.Empty(t, page.Coupons)
}

func TestCatalogService_ProductPageMissingProduct(t *testing.T) {
	fb, svc := newCatalogFixture(t)
	fb.failWith(http.MethodGet, "/product/ghost", http.StatusNotFound)

	_, err := svc.ProductPage(context.Background(), "ghost")
	var nf *errors.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestCatalogService_CheckPincode(t *testing.T) {
	fb, svc := newCatalogFixture(t)
	fb.handle(http.MethodPost, "/shiprocket/serviceability", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"success":      true,
			"best_courier": map[string]interface{}{"courier_name": "Delhivery", "rate": 49.5, "etd": "3 Days"},
		})
	})
	ctx := context.Background()

	_, err := svc.CheckPincode(ctx, "4110")
	var validation *errors.ErrValidation
	require.ErrorAs(t, err, &validation)

	delivery, err := svc.CheckPincode(ctx, " 411001 ")
	require.NoError(t, err)
	assert.Equal(t, "Delhivery", delivery.Courier)
	assert.Equal(t, 49.5, delivery.Charge)
	assert.Equal(t, "Wednesday, 04 Mar 2026", delivery.DeliveryDate)

	calls := fb.calls(http.MethodPost, "/shiprocket/serviceability")
	require.Len(t, calls, 1)
	assert.Equal(t, "411001", calls[0].Body["delivery_postcode"])
}

func TestCatalogService_CheckPincodeNotServiceable(t *testing.T) {
	fb, svc := newCatalogFixture(t)
	fb.handle(http.MethodPost, "/shiprocket/serviceability", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"success": false})
	})

	_, err := svc.CheckPincode(context.Background(), "411001")
	var upstream *errors.ErrUpstream
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "Service not available at this location", upstream.Message)
}

func TestCatalogService_LookupPincode(t *testing.T) {
	fb, svc := newCatalogFixture(t)
	fb.handle(http.MethodGet, "/pickup/location/411001", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]interface{}{{
			"PostOffice": []map[string]string{{"Name": "Shivajinagar", "District": "Pune", "State": "Maharashtra"}},
		}})
	})
	fb.handle(http.MethodGet, "/pickup/location/999999", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"PostOffice": nil})
	})
	ctx := context.Background()

	loc, err := svc.LookupPincode(ctx, "411001")
	require.NoError(t, err)
	assert.Equal(t, &Location{City: "Pune", State: "Maharashtra"}, loc)

	_, err = svc.LookupPincode(ctx, "999999")
	var nf *errors.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestCatalogService_SearchIgnoresBlankQuery(t *testing.T) {
	fb, svc := newCatalogFixture(t)

	items, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, fb.calls(http.MethodGet, "/search"))
}

func TestLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"3 Days", 3, true},
		{" 12", 12, true},
		{"N/A", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		n, ok := leadingInt(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, n, tt.in)
	}
}
