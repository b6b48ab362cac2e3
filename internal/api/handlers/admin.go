package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// HandleGetSession handles GET /v1/admin/sessions/:id
func HandleGetSession(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := sessionParam(c)
		if !ok {
			return
		}

		fields, err := repos.Session.Dump(c.Request.Context(), sessionID)
		if err != nil {
			var notFound *errors.ErrNotFound
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			logger.Error("Failed to dump session", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"fields":     fields,
		})
	}
}

// HandleDeleteSession handles DELETE /v1/admin/sessions/:id
func HandleDeleteSession(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := sessionParam(c)
		if !ok {
			return
		}

		if err := repos.Session.Destroy(c.Request.Context(), sessionID); err != nil {
			logger.Error("Failed to destroy session", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to destroy session"})
			return
		}

		logger.Info("Session destroyed by operator", zap.String("session_id", sessionID))
		c.Status(http.StatusNoContent)
	}
}

// HandleListSessionEvents handles GET /v1/admin/sessions/:id/events?limit=N
func HandleListSessionEvents(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := sessionParam(c)
		if !ok {
			return
		}

		limit := defaultEventLimit
		if limitStr := c.Query("limit"); limitStr != "" {
			l, err := strconv.Atoi(limitStr)
			if err != nil || l < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = l
		}
		if limit > maxEventLimit {
			limit = maxEventLimit
		}

		events, err := repos.Event.ListBySession(c.Request.Context(), sessionID, limit)
		if err != nil {
			logger.Error("Failed to list events", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"events": events,
			"count":  len(events),
		})
	}
}

func sessionParam(c *gin.Context) (string, bool) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return "", false
	}
	return sessionID, true
}
