package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/services"
	"github.com/stylara/outfit-engine/pkg/models"
)

type OutfitHandler struct {
	orchestrator *services.OutfitOrchestrator
	feedback     *services.FeedbackService
	validator    *validator.Validate
	logger       *logrus.Logger
}

func NewOutfitHandler(
	orchestrator *services.OutfitOrchestrator,
	feedback *services.FeedbackService,
	logger *logrus.Logger,
) *OutfitHandler {
	return &OutfitHandler{
		orchestrator: orchestrator,
		feedback:     feedback,
		validator:    validator.New(),
		logger:       logger,
	}
}

// Generate handles POST /api/v1/outfits/generate.
func (h *OutfitHandler) Generate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var request models.GenerateOutfitRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Request body must be valid JSON",
			},
		})
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	result, err := h.orchestrator.Generate(c.Request.Context(), userID, &request)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientWardrobe) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": gin.H{
					"code":    "INSUFFICIENT_WARDROBE",
					"message": "Not enough wardrobe items to compose an outfit",
				},
			})
			return
		}

		h.logger.WithError(err).WithField("user_id", userID).Error("Outfit generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "GENERATION_FAILED",
				"message": "Failed to generate outfit",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.GenerateOutfitResponse{
		Result:      result,
		GeneratedAt: time.Now().UTC(),
	})
}

// Feedback handles POST /api/v1/outfits/feedback.
func (h *OutfitHandler) Feedback(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var request models.OutfitFeedbackRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Request body must be valid JSON",
			},
		})
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.feedback.Process(c.Request.Context(), userID, &request); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Feedback processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "FEEDBACK_FAILED",
				"message": "Failed to apply feedback",
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":       "accepted",
		"processed_at": time.Now().UTC(),
	})
}

// userIDFromContext reads the authenticated user set by the auth middleware.
func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "MISSING_USER_CONTEXT",
				"message": "Authenticated user required",
			},
		})
		c.Abort()
		return uuid.Nil, false
	}

	switch v := raw.(type) {
	case uuid.UUID:
		return v, true
	case string:
		if id, err := uuid.Parse(v); err == nil {
			return id, true
		}
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":    "INVALID_USER_ID",
			"message": "Invalid user ID in context",
		},
	})
	c.Abort()
	return uuid.Nil, false
}
