package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/service"
)

// HandleGetCart handles GET /v1/cart
func HandleGetCart(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cartService := service.NewCartService(client, repos, logger)
		view, err := cartService.View(c.Request.Context(), middleware.GetSessionID(c))
		if err != nil {
			respondError(c, logger, err, "load cart")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleAddToCart handles POST /v1/cart/items
func HandleAddToCart(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.AddToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		cartService := service.NewCartService(client, repos, logger)
		result, err := cartService.Add(c.Request.Context(), middleware.GetSessionID(c), customer.ID, req)
		if err != nil {
			respondError(c, logger, err, "add to cart")
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// HandleChangeCartQuantity handles PUT /v1/cart/items
func HandleChangeCartQuantity(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.ChangeQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		cartService := service.NewCartService(client, repos, logger)
		view, err := cartService.ChangeQuantity(c.Request.Context(), middleware.GetSessionID(c), customer.ID, req)
		if err != nil {
			respondError(c, logger, err, "update cart")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleRemoveCartItem handles DELETE /v1/cart/items
func HandleRemoveCartItem(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.LineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		cartService := service.NewCartService(client, repos, logger)
		view, err := cartService.Remove(c.Request.Context(), middleware.GetSessionID(c), customer.ID, req)
		if err != nil {
			respondError(c, logger, err, "remove cart item")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleMoveToWishlist handles POST /v1/cart/items/wishlist
func HandleMoveToWishlist(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.LineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		cartService := service.NewCartService(client, repos, logger)
		view, err := cartService.MoveToWishlist(c.Request.Context(), middleware.GetSessionID(c), customer.ID, req)
		if err != nil {
			respondError(c, logger, err, "move item to wishlist")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleCartCheckout handles GET /v1/cart/checkout. It returns the lines that
// can be checked out and the query string of the checkout page.
func HandleCartCheckout(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cartService := service.NewCartService(client, repos, logger)
		selection, err := cartService.CheckoutItems(c.Request.Context(), middleware.GetSessionID(c))
		if err != nil {
			respondError(c, logger, err, "prepare checkout")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items":    selection.Items,
			"redirect": "/checkout?" + selection.Query,
		})
	}
}
