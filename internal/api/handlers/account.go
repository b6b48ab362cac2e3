package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/service"
)

// maxReviewImages caps the files accepted with one review
const maxReviewImages = 5

// HandleUpdateProfile handles PUT /v1/me
func HandleUpdateProfile(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.ProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		accountService := service.NewAccountService(client, repos, logger)
		updated, err := accountService.UpdateProfile(c.Request.Context(), customer, req)
		if err != nil {
			respondError(c, logger, err, "update profile")
			return
		}

		if res, ok := middleware.CustomerResource(c); ok {
			if err := res.Refresh(c.Request.Context(), true); err != nil {
				logger.Warn("Failed to refresh customer", zap.String("customer_id", customer.ID), zap.Error(err))
			}
		}

		c.JSON(http.StatusOK, updated)
	}
}

// HandleListAddresses handles GET /v1/addresses
func HandleListAddresses() gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, service.AddressList{Addresses: customer.Addresses})
	}
}

// HandleAddAddress handles POST /v1/addresses
func HandleAddAddress(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.AddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		accountService := service.NewAccountService(client, repos, logger)
		address, err := accountService.AddAddress(c.Request.Context(), customer, req)
		if err != nil {
			respondError(c, logger, err, "add address")
			return
		}

		c.JSON(http.StatusCreated, address)
	}
}

// HandleUpdateAddress handles PUT /v1/addresses/:id
func HandleUpdateAddress(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req service.AddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		accountService := service.NewAccountService(client, repos, logger)
		address, err := accountService.UpdateAddress(c.Request.Context(), customer, c.Param("id"), req)
		if err != nil {
			respondError(c, logger, err, "update address")
			return
		}

		c.JSON(http.StatusOK, address)
	}
}

// HandleDeleteAddress handles DELETE /v1/addresses/:id. On failure the body
// still carries the unchanged address book.
func HandleDeleteAddress(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		addressID := c.Param("id")
		accountService := service.NewAccountService(client, repos, logger)
		list, err := accountService.DeleteAddress(c.Request.Context(), middleware.GetSessionID(c), customer, addressID)
		if err != nil {
			logger.Warn("Failed to delete address",
				zap.String("customer_id", customer.ID),
				zap.String("address_id", addressID),
				zap.Error(err),
			)
			body := gin.H{"error": "failed to delete address"}
			if list != nil {
				body["addresses"] = list.Addresses
			}
			c.JSON(http.StatusBadGateway, body)
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

// HandleWishlist handles GET /v1/wishlist
func HandleWishlist(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		accountService := service.NewAccountService(client, repos, logger)
		c.JSON(http.StatusOK, gin.H{"items": accountService.Wishlist(customer)})
	}
}

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// HandleToggleWishlist handles POST /v1/wishlist
func HandleToggleWishlist(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		var req wishlistRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}

		accountService := service.NewAccountService(client, repos, logger)
		items, err := accountService.ToggleWishlist(c.Request.Context(), customer, req.ProductID)
		if err != nil {
			respondError(c, logger, err, "update wishlist")
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// HandleRemoveWishlist handles DELETE /v1/wishlist/:productId
func HandleRemoveWishlist(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		accountService := service.NewAccountService(client, repos, logger)
		if err := accountService.RemoveWishlist(c.Request.Context(), customer, c.Param("productId")); err != nil {
			respondError(c, logger, err, "remove from wishlist")
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// HandleListReviews handles GET /v1/reviews
func HandleListReviews(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		accountService := service.NewAccountService(client, repos, logger)
		reviews, err := accountService.Reviews(c.Request.Context(), customer)
		if err != nil {
			respondError(c, logger, err, "list reviews")
			return
		}

		c.JSON(http.StatusOK, gin.H{"reviews": reviews})
	}
}

// HandleCreateReview handles POST /v1/reviews (multipart)
func HandleCreateReview(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		req, images, closeAll, ok := bindReview(c)
		if !ok {
			return
		}
		defer closeAll()

		accountService := service.NewAccountService(client, repos, logger)
		if err := accountService.CreateReview(c.Request.Context(), customer, req, images); err != nil {
			respondError(c, logger, err, "create review")
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Review submitted"})
	}
}

// HandleUpdateReview handles PUT /v1/reviews/:id (multipart)
func HandleUpdateReview(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := requireCustomer(c)
		if !ok {
			return
		}

		req, images, closeAll, ok := bindReview(c)
		if !ok {
			return
		}
		defer closeAll()

		accountService := service.NewAccountService(client, repos, logger)
		if err := accountService.UpdateReview(c.Request.Context(), customer, c.Param("id"), req, images); err != nil {
			respondError(c, logger, err, "update review")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Review updated"})
	}
}

// HandleDeleteReview handles DELETE /v1/reviews/:id
func HandleDeleteReview(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireCustomer(c); !ok {
			return
		}

		accountService := service.NewAccountService(client, repos, logger)
		if err := accountService.DeleteReview(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, logger, err, "delete review")
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// bindReview reads the review form fields and opens the uploaded images.
// The returned func closes every opened file.
func bindReview(c *gin.Context) (service.ReviewRequest, []backend.ReviewImage, func(), bool) {
	var req service.ReviewRequest
	if err := c.ShouldBind(&req); err != nil {
		bindingError(c, err)
		return req, nil, nil, false
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["images"]
	}
	if len(files) > maxReviewImages {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "too many images"})
		return req, nil, nil, false
	}

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	images := make([]backend.ReviewImage, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
			return req, nil, nil, false
		}
		opened = append(opened, f)
		images = append(images, backend.ReviewImage{Filename: fh.Filename, Content: f})
	}
	return req, images, closeAll, true
}
