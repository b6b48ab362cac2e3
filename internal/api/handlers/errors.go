package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/pkg/errors"
)

// respondError maps typed service errors to status codes. Anything untyped is
// logged and reported as "failed to <action>".
func respondError(c *gin.Context, logger *zap.Logger, err error, action string) {
	var (
		notFound     *errors.ErrNotFound
		validation   *errors.ErrValidation
		unauthorized *errors.ErrUnauthorized
		conflict     *errors.ErrConflict
		transition   *errors.ErrInvalidStateTransition
		cooldown     *errors.ErrCooldown
		upstream     *errors.ErrUpstream
	)

	switch {
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Error()}
		if len(validation.Fields) > 0 {
			body["details"] = validation.Fields
		}
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": unauthorized.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusBadRequest, gin.H{"error": transition.Error()})
	case errors.As(err, &cooldown):
		seconds := int(cooldown.Remaining.Seconds())
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": cooldown.Error(), "retry_after": seconds})
	case errors.As(err, &upstream):
		if upstream.Status == http.StatusUnauthorized {
			c.JSON(http.StatusUnauthorized, gin.H{"error": upstream.Error()})
			return
		}
		logger.Warn("Backend call failed",
			zap.String("action", action),
			zap.Int("status", upstream.Status),
			zap.String("session_id", middleware.GetSessionID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": upstream.Error()})
	default:
		logger.Error("Failed to "+action, zap.String("session_id", middleware.GetSessionID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}

// bindingError answers a request whose payload failed to bind
func bindingError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":   "validation failed",
		"details": err.Error(),
	})
}

// requireCustomer fetches the customer set by middleware.RequireCustomer
func requireCustomer(c *gin.Context) (*domain.Customer, bool) {
	customer, ok := middleware.GetCustomerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return customer, true
}
