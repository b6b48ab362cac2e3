package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/service"
)

// AuthDeps bundles what the login handlers need
type AuthDeps struct {
	Client   *backend.Client
	Repos    *repository.Repositories
	Cooldown time.Duration
	Logger   *zap.Logger
}

// HandleLoginState handles GET /v1/auth/login
func HandleLoginState(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		authService := service.NewAuthService(deps.Client, deps.Repos, deps.Cooldown, deps.Logger)
		state, err := authService.State(c.Request.Context(), middleware.GetSessionID(c))
		if err != nil {
			respondError(c, deps.Logger, err, "load login state")
			return
		}

		c.JSON(http.StatusOK, state)
	}
}

// HandleSendOTP handles POST /v1/auth/otp
func HandleSendOTP(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		authService := service.NewAuthService(deps.Client, deps.Repos, deps.Cooldown, deps.Logger)
		var req service.SendOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		state, err := authService.SendOTP(c.Request.Context(), middleware.GetSessionID(c), req.Mobile)
		if err != nil {
			respondError(c, deps.Logger, err, "send OTP")
			return
		}

		c.JSON(http.StatusOK, state)
	}
}

// HandleVerifyOTP handles POST /v1/auth/otp/verify
func HandleVerifyOTP(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		authService := service.NewAuthService(deps.Client, deps.Repos, deps.Cooldown, deps.Logger)
		var req service.VerifyOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		sessionID := middleware.GetSessionID(c)
		result, err := authService.VerifyOTP(c.Request.Context(), sessionID, req)
		if err != nil {
			respondError(c, deps.Logger, err, "verify OTP")
			return
		}

		// The cached anonymous customer no longer matches the session
		if res, ok := middleware.CustomerResource(c); ok {
			res.Clear()
		}

		if result.ForceLogout {
			var customerID string
			if result.Customer != nil {
				customerID = result.Customer.ID
			}
			if err := authService.Logout(c.Request.Context(), sessionID, customerID); err != nil {
				respondError(c, deps.Logger, err, "logout")
				return
			}
		}

		c.JSON(http.StatusOK, result)
	}
}

// HandleResetLogin handles DELETE /v1/auth/otp
func HandleResetLogin(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		authService := service.NewAuthService(deps.Client, deps.Repos, deps.Cooldown, deps.Logger)
		if err := authService.Reset(c.Request.Context(), middleware.GetSessionID(c)); err != nil {
			respondError(c, deps.Logger, err, "reset login")
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// HandleLogout handles POST /v1/auth/logout
func HandleLogout(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		authService := service.NewAuthService(deps.Client, deps.Repos, deps.Cooldown, deps.Logger)
		var customerID string
		if customer, err := middleware.LoadCustomer(c); err == nil {
			customerID = customer.ID
		}

		if err := authService.Logout(c.Request.Context(), middleware.GetSessionID(c), customerID); err != nil {
			respondError(c, deps.Logger, err, "logout")
			return
		}
		if res, ok := middleware.CustomerResource(c); ok {
			res.Clear()
		}

		c.Status(http.StatusNoContent)
	}
}

// HandleMe handles GET /v1/me
func HandleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, customer)
	}
}
