package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/handlers"
	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, client *backend.Client, repos *repository.Repositories, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	catalog := handlers.CatalogDeps{
		Client:     client,
		Categories: service.NewCategoryResource(client, logger),
		Logger:     logger,
	}
	auth := handlers.AuthDeps{
		Client:   client,
		Repos:    repos,
		Cooldown: cfg.OTP.Cooldown,
		Logger:   logger,
	}
	checkout := handlers.CheckoutDeps{
		Client:  client,
		Repos:   repos,
		Payment: cfg.Payment,
		Logger:  logger,
	}

	// API v1 routes
	v1 := router.Group("/v1")
	{
		storefront := v1.Group("")
		storefront.Use(middleware.SessionMiddleware(cfg.Session, client, repos, logger))
		{
			// Public routes
			storefront.GET("/products", handlers.HandleBrowseProducts(catalog))
			storefront.GET("/products/:slug", handlers.HandleProductPage(catalog))
			storefront.GET("/categories", handlers.HandleCategories(catalog))
			storefront.GET("/search", handlers.HandleSearch(catalog))
			storefront.GET("/search/suggestions", handlers.HandleSuggestions(catalog))
			storefront.GET("/serviceability/:pin", handlers.HandleServiceability(catalog))
			storefront.GET("/pincode/:pin", handlers.HandlePincodeLookup(catalog))

			storefront.GET("/auth/login", handlers.HandleLoginState(auth))
			storefront.POST("/auth/otp", handlers.HandleSendOTP(auth))
			storefront.POST("/auth/otp/verify", handlers.HandleVerifyOTP(auth))
			storefront.DELETE("/auth/otp", handlers.HandleResetLogin(auth))
			storefront.POST("/auth/logout", handlers.HandleLogout(auth))

			// Customer routes (require a logged in backend session)
			customer := storefront.Group("")
			customer.Use(middleware.RequireCustomer(logger))
			{
				customer.GET("/me", handlers.HandleMe())
				customer.PUT("/me", handlers.HandleUpdateProfile(client, repos, logger))

				customer.GET("/cart", handlers.HandleGetCart(client, repos, logger))
				customer.POST("/cart/items", handlers.HandleAddToCart(client, repos, logger))
				customer.PUT("/cart/items", handlers.HandleChangeCartQuantity(client, repos, logger))
				customer.DELETE("/cart/items", handlers.HandleRemoveCartItem(client, repos, logger))
				customer.POST("/cart/items/wishlist", handlers.HandleMoveToWishlist(client, repos, logger))
				customer.GET("/cart/checkout", handlers.HandleCartCheckout(client, repos, logger))

				customer.GET("/checkout", handlers.HandleLoadCheckout(checkout))
				customer.POST("/checkout/buy-now", handlers.HandleBuyNow(checkout))
				customer.GET("/checkout/summary", handlers.HandleCheckoutSummary(checkout))
				customer.PUT("/checkout/items", handlers.HandleCheckoutQuantity(checkout))
				customer.DELETE("/checkout/items", handlers.HandleCheckoutRemove(checkout))
				customer.POST("/checkout/items/wishlist", handlers.HandleCheckoutMoveToWishlist(checkout))
				customer.POST("/checkout/coupon", handlers.HandleApplyCoupon(checkout))
				customer.DELETE("/checkout/coupon", handlers.HandleRemoveCoupon(checkout))
				customer.PUT("/checkout/address", handlers.HandleSelectAddress(checkout))
				customer.POST("/checkout/payment", handlers.HandleCreatePayment(checkout))
				customer.POST("/checkout/payment/verify", handlers.HandleVerifyPayment(checkout))

				customer.GET("/orders", handlers.HandleListOrders(client, repos, logger))
				customer.POST("/orders/:id/cancel", handlers.HandleCancelOrder(client, repos, logger))
				customer.GET("/orders/:id/tracking", handlers.HandleTrackOrder(client, repos, logger))

				customer.GET("/addresses", handlers.HandleListAddresses())
				customer.POST("/addresses", handlers.HandleAddAddress(client, repos, logger))
				customer.PUT("/addresses/:id", handlers.HandleUpdateAddress(client, repos, logger))
				customer.DELETE("/addresses/:id", handlers.HandleDeleteAddress(client, repos, logger))

				customer.GET("/wishlist", handlers.HandleWishlist(client, repos, logger))
				customer.POST("/wishlist", handlers.HandleToggleWishlist(client, repos, logger))
				customer.DELETE("/wishlist/:productId", handlers.HandleRemoveWishlist(client, repos, logger))

				customer.GET("/reviews", handlers.HandleListReviews(client, repos, logger))
				customer.POST("/reviews", handlers.HandleCreateReview(client, repos, logger))
				customer.PUT("/reviews/:id", handlers.HandleUpdateReview(client, repos, logger))
				customer.DELETE("/reviews/:id", handlers.HandleDeleteReview(client, repos, logger))
			}
		}

		// Operator routes
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AdminAuthMiddleware(cfg.Admin.KeyHash, logger))
		{
			adminRoutes.GET("/sessions/:id", handlers.HandleGetSession(repos, logger))
			adminRoutes.DELETE("/sessions/:id", handlers.HandleDeleteSession(repos, logger))
			adminRoutes.GET("/sessions/:id/events", handlers.HandleListSessionEvents(repos, logger))
		}
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
