package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/service"
	"github.com/jafarshop/storefront/pkg/errors"
)

// CheckoutDeps bundles what the checkout handlers need
type CheckoutDeps struct {
	Client  *backend.Client
	Repos   *repository.Repositories
	Payment config.PaymentConfig
	Logger  *zap.Logger
}

// HandleLoadCheckout handles GET /v1/checkout?mode=cart|buy-now&items=...
func HandleLoadCheckout(deps CheckoutDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		mode := domain.CheckoutMode(c.DefaultQuery("mode", string(domain.CheckoutModeCart)))
		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		view, err := checkoutService.Load(c.Request.Context(), middleware.GetSessionID(c), customer, mode, c.Query("items"))
		if err != nil {
			respondError(c, deps.Logger, err, "load checkout")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleBuyNow handles POST /v1/checkout/buy-now
func HandleBuyNow(deps CheckoutDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireCustomer(c); !ok {
			return
		}

		var req service.BuyNowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		ctx := c.Request.Context()
		product, err := deps.Client.ProductBySlug(ctx, req.Slug)
		if err != nil {
			respondError(c, deps.Logger, err, "load product")
			return
		}
		if product == nil || product.ID == "" {
			respondError(c, deps.Logger, &errors.ErrNotFound{Resource: "product", ID: req.Slug}, "load product")
			return
		}

		// A selected variant is bought at its own price and stock
		if req.VariantID != nil && *req.VariantID != product.ID {
			variants, err := deps.Client.ProductVariants(ctx, req.Slug)
			if err != nil {
				respondError(c, deps.Logger, err, "load product variants")
				return
			}
			found := false
			for i := range variants.Variants {
				if variants.Variants[i].ID == *req.VariantID {
					product = &variants.Variants[i]
					found = true
					break
				}
			}
			if !found {
				respondError(c, deps.Logger, &errors.ErrNotFound{Resource: "variant", ID: *req.VariantID}, "load product variants")
				return
			}
		}

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		item, err := checkoutService.SetBuyNow(ctx, middleware.GetSessionID(c), product, req.VariantID, req.Quantity)
		if err != nil {
			respondError(c, deps.Logger, err, "start buy now")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"item":     item,
			"redirect": "/checkout?mode=" + string(domain.CheckoutModeBuyNow),
		})
	}
}

// HandleCheckoutSummary handles GET /v1/checkout/summary
func HandleCheckoutSummary(deps CheckoutDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		view, err := checkoutService.Summary(c.Request.Context(), middleware.GetSessionID(c), customer)
		if err != nil {
			respondError(c, deps.Logger, err, "load checkout")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleCheckoutQuantity handles PUT /v1/checkout/items
func HandleCheckoutQuantity(deps CheckoutDeps) gin.HandlerFunc {
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

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		view, err := checkoutService.ChangeQuantity(c.Request.Context(), middleware.GetSessionID(c), customer, req)
		if err != nil {
			respondError(c, deps.Logger, err, "update checkout")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleCheckoutRemove handles DELETE /v1/checkout/items
func HandleCheckoutRemove(deps CheckoutDeps) gin.HandlerFunc {
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

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		view, err := checkoutService.RemoveLine(c.Request.Context(), middleware.GetSessionID(c), customer, req)
		if err != nil {
			respondError(c, deps.Logger, err, "remove checkout item")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleCheckoutMoveToWishlist handles POST /v1/checkout/items/wishlist
func HandleCheckoutMoveToWishlist(deps CheckoutDeps) gin.HandlerFunc {
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

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		view, err := checkoutService.MoveToWishlist(c.Request.Context(), middleware.GetSessionID(c), customer, req)
		if err != nil {
			respondError(c, deps.Logger, err, "move checkout item to wishlist")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleApplyCoupon handles POST /v1/checkout/coupon
func HandleApplyCoupon(deps CheckoutDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.ApplyCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		view, err := checkoutService.ApplyCoupon(c.Request.Context(), middleware.GetSessionID(c), customer, req.Code)
		if err != nil {
			respondError(c, deps.Logger, err, "apply coupon")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleRemoveCoupon handles DELETE /v1/checkout/coupon
func HandleRemoveCoupon(deps CheckoutDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		view, err := checkoutService.RemoveCoupon(c.Request.Context(), middleware.GetSessionID(c), customer)
		if err != nil {
			respondError(c, deps.Logger, err, "remove coupon")
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleSelectAddress handles PUT /v1/checkout/address
func HandleSelectAddress(deps CheckoutDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.SelectAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		address, err := checkoutService.SelectAddress(c.Request.Context(), middleware.GetSessionID(c), customer, req.AddressID)
		if err != nil {
			respondError(c, deps.Logger, err, "select address")
			return
		}

		c.JSON(http.StatusOK, address)
	}
}

// HandleCreatePayment handles POST /v1/checkout/payment
func HandleCreatePayment(deps CheckoutDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		intent, err := checkoutService.CreatePayment(c.Request.Context(), middleware.GetSessionID(c), customer)
		if err != nil {
			respondError(c, deps.Logger, err, "create payment")
			return
		}

		c.JSON(http.StatusCreated, intent)
	}
}

// HandleVerifyPayment handles POST /v1/checkout/payment/verify
func HandleVerifyPayment(deps CheckoutDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.VerifyPaymentInput
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		checkoutService := service.NewCheckoutService(deps.Client, deps.Repos, deps.Payment, deps.Logger)
		result, err := checkoutService.VerifyPayment(c.Request.Context(), middleware.GetSessionID(c), customer, req)
		if err != nil {
			respondError(c, deps.Logger, err, "verify payment")
			return
		}

		deps.Logger.Info("Payment verified",
			zap.String("session_id", middleware.GetSessionID(c)),
			zap.String("customer_id", customer.ID),
		)
		c.JSON(http.StatusOK, result)
	}
}
