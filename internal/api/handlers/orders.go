package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/service"
)

// HandleListOrders handles GET /v1/orders?page=N
func HandleListOrders(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return
		}

		orderService := service.NewOrderService(client, repos, logger)
		orders, err := orderService.List(c.Request.Context(), customer.ID, page)
		if err != nil {
			respondError(c, logger, err, "list orders")
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

// HandleCancelOrder handles POST /v1/orders/:id/cancel
func HandleCancelOrder(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.CancelOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		orderID := c.Param("id")
		orderService := service.NewOrderService(client, repos, logger)
		if err := orderService.Cancel(c.Request.Context(), middleware.GetSessionID(c), customer.ID, orderID, req.Reason); err != nil {
			respondError(c, logger, err, "cancel order")
			return
		}

		logger.Info("Order cancelled",
			zap.String("order_id", orderID),
			zap.String("customer_id", customer.ID),
		)
		c.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
	}
}

// HandleTrackOrder handles GET /v1/orders/:id/tracking
func HandleTrackOrder(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		orderService := service.NewOrderService(client, repos, logger)
		steps, err := orderService.Track(c.Request.Context(), customer.ID, c.Param("id"))
		if err != nil {
			respondError(c, logger, err, "track order")
			return
		}

		c.JSON(http.StatusOK, gin.H{"steps": steps})
	}
}
