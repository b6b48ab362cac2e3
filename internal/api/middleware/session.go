package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/resource"
	"github.com/jafarshop/storefront/pkg/errors"
)

const (
	SessionContextKey  = "session_id"
	CustomerContextKey = "customer"

	customerResourceKey = "customer_resource"
)

// SessionMiddleware assigns every browser a storefront session id, forwards the
// backend session cookie bound to it and exposes the customer as a resource
// that is fetched on first use
func SessionMiddleware(cfg config.SessionConfig, client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cfg.CookieName)
		if err != nil || !validSessionID(sessionID) {
			sessionID = uuid.New().String()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, sessionID, int(cfg.TTL/time.Second), "/", "", cfg.Secure, true)

		ctx := c.Request.Context()
		cookie, err := repos.Session.GetBackendCookie(ctx, sessionID)
		if err != nil {
			logger.Error("Failed to load session", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(backend.WithSessionCookie(ctx, cookie))

		c.Set(SessionContextKey, sessionID)
		c.Set(customerResourceKey, newCustomerResource(client, cookie != "", logger))
		c.Next()
	}
}

func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newCustomerResource(client *backend.Client, loggedIn bool, logger *zap.Logger) *resource.Resource[domain.Customer] {
	return resource.New("customer", func(ctx context.Context) (domain.Customer, error) {
		if !loggedIn {
			return domain.Customer{}, &errors.ErrUnauthorized{Message: "login required"}
		}
		customer, err := client.Me(ctx)
		if err != nil {
			var upstream *errors.ErrUpstream
			if errors.As(err, &upstream) && (upstream.Status == http.StatusUnauthorized || upstream.Status == http.StatusForbidden) {
				return domain.Customer{}, &errors.ErrUnauthorized{Message: "session expired, please login again"}
			}
			return domain.Customer{}, err
		}
		if customer.ID == "" {
			return domain.Customer{}, &errors.ErrUnauthorized{Message: "login required"}
		}
		return *customer, nil
	}, resource.Clearable(), resource.WithLogger(logger))
}

// RequireCustomer rejects requests from sessions without a logged in customer
func RequireCustomer(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, err := LoadCustomer(c)
		if err != nil {
			var unauthorized *errors.ErrUnauthorized
			if errors.As(err, &unauthorized) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": unauthorized.Error()})
				c.Abort()
				return
			}
			logger.Warn("Failed to load customer", zap.String("session_id", GetSessionID(c)), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load customer"})
			c.Abort()
			return
		}

		c.Set(CustomerContextKey, customer)
		c.Next()
	}
}

// GetSessionID returns the storefront session id of the request
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionContextKey)
}

// GetCustomerFromContext retrieves the customer loaded by RequireCustomer
func GetCustomerFromContext(c *gin.Context) (*domain.Customer, bool) {
	customer, exists := c.Get(CustomerContextKey)
	if !exists {
		return nil, false
	}

	cust, ok := customer.(*domain.Customer)
	return cust, ok
}

// CustomerResource returns the request's customer resource
func CustomerResource(c *gin.Context) (*resource.Resource[domain.Customer], bool) {
	v, exists := c.Get(customerResourceKey)
	if !exists {
		return nil, false
	}
	res, ok := v.(*resource.Resource[domain.Customer])
	return res, ok
}

// LoadCustomer fetches the customer on first use within the request
func LoadCustomer(c *gin.Context) (*domain.Customer, error) {
	res, ok := CustomerResource(c)
	if !ok {
		return nil, &errors.ErrUnauthorized{Message: "no session"}
	}
	return res.Data(c.Request.Context())
}
