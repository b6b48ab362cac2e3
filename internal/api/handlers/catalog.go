package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/resource"
	"github.com/jafarshop/storefront/internal/service"
)

// CatalogDeps bundles what the catalog handlers need. Categories is shared by
// every request so the tree is fetched once per process.
type CatalogDeps struct {
	Client     *backend.Client
	Categories *resource.Resource[[]service.CategoryGroup]
	Logger     *zap.Logger
}

// HandleBrowseProducts handles GET /v1/products
func HandleBrowseProducts(deps CatalogDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return
		}

		filter := service.BrowseFilter{
			Category:  c.Query("category"),
			Brand:     c.Query("brand"),
			Attribute: c.Query("attribute"),
			Search:    c.Query("search"),
		}
		if seen := c.Query("seen"); seen != "" {
			for _, id := range strings.Split(seen, ",") {
				if id = strings.TrimSpace(id); id != "" {
					filter.Seen = append(filter.Seen, id)
				}
			}
		}

		catalogService := service.NewCatalogService(deps.Client, deps.Categories, deps.Logger)
		result, err := catalogService.Browse(c.Request.Context(), filter, page)
		if err != nil {
			respondError(c, deps.Logger, err, "list products")
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// HandleProductPage handles GET /v1/products/:slug
func HandleProductPage(deps CatalogDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalogService := service.NewCatalogService(deps.Client, deps.Categories, deps.Logger)
		page, err := catalogService.ProductPage(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondError(c, deps.Logger, err, "load product")
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

// HandleCategories handles GET /v1/categories?refresh=true
func HandleCategories(deps CatalogDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

		catalogService := service.NewCatalogService(deps.Client, deps.Categories, deps.Logger)
		groups, err := catalogService.Categories(c.Request.Context(), refresh)
		if err != nil {
			respondError(c, deps.Logger, err, "load categories")
			return
		}

		c.JSON(http.StatusOK, gin.H{"categories": groups})
	}
}

// HandleSearch handles GET /v1/search?q=
func HandleSearch(deps CatalogDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalogService := service.NewCatalogService(deps.Client, deps.Categories, deps.Logger)
		items, err := catalogService.Search(c.Request.Context(), c.Query("q"))
		if err != nil {
			respondError(c, deps.Logger, err, "search")
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// HandleSuggestions handles GET /v1/search/suggestions
func HandleSuggestions(deps CatalogDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalogService := service.NewCatalogService(deps.Client, deps.Categories, deps.Logger)
		items, err := catalogService.Suggestions(c.Request.Context())
		if err != nil {
			respondError(c, deps.Logger, err, "load suggestions")
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// HandleServiceability handles GET /v1/serviceability/:pin
func HandleServiceability(deps CatalogDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalogService := service.NewCatalogService(deps.Client, deps.Categories, deps.Logger)
		delivery, err := catalogService.CheckPincode(c.Request.Context(), c.Param("pin"))
		if err != nil {
			respondError(c, deps.Logger, err, "check pincode")
			return
		}

		c.JSON(http.StatusOK, delivery)
	}
}

// HandlePincodeLookup handles GET /v1/pincode/:pin
func HandlePincodeLookup(deps CatalogDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalogService := service.NewCatalogService(deps.Client, deps.Categories, deps.Logger)
		location, err := catalogService.LookupPincode(c.Request.Context(), c.Param("pin"))
		if err != nil {
			respondError(c, deps.Logger, err, "look up pincode")
			return
		}

		c.JSON(http.StatusOK, location)
	}
}
