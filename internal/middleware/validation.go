package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stylara/outfit-engine/internal/validation"
)

// ValidationMiddleware validates request bodies against the embedded JSON
// schemas before handlers bind them.
type ValidationMiddleware struct {
	validator *validation.SchemaValidator
}

func NewValidationMiddleware(validator *validation.SchemaValidator) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validator,
	}
}

// ValidateGenerateOutfit validates outfit generation requests.
func (vm *ValidationMiddleware) ValidateGenerateOutfit() gin.HandlerFunc {
	return vm.validateRequestBody("generate-outfit")
}

// ValidateOutfitFeedback validates outfit feedback requests.
func (vm *ValidationMiddleware) ValidateOutfitFeedback() gin.HandlerFunc {
	return vm.validateRequestBody("outfit-feedback")
}

func (vm *ValidationMiddleware) validateRequestBody(schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodDelete {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			vm.sendValidationError(c, "BODY_READ_ERROR", "Failed to read request body", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		// Restore request body for downstream handlers
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		if len(bodyBytes) == 0 {
			vm.sendValidationError(c, "EMPTY_BODY", "Request body is required", nil)
			return
		}

		var jsonData interface{}
		if err := json.Unmarshal(bodyBytes, &jsonData); err != nil {
			vm.sendValidationError(c, "INVALID_JSON", "Request body must be valid JSON", map[string]interface{}{
				"parseError": err.Error(),
			})
			return
		}

		result := vm.validator.ValidateJSONString(schemaName, string(bodyBytes))
		if !result.Valid {
			apiError := result.ToAPIError()
			if errorObj, ok := apiError["error"].(map[string]interface{}); ok {
				errorObj["timestamp"] = time.Now().UTC().Format(time.RFC3339)
				errorObj["requestId"] = uuid.New().String()
				errorObj["path"] = c.Request.URL.Path
				errorObj["method"] = c.Request.Method
			}

			c.JSON(http.StatusBadRequest, apiError)
			c.Abort()
			return
		}

		c.Set("validatedBody", jsonData)
		c.Next()
	}
}

// ValidatePathParams validates UUID path parameters before handlers run.
func (vm *ValidationMiddleware) ValidatePathParams() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, param := range []string{"userId", "itemId"} {
			value := c.Param(param)
			if value == "" {
				continue
			}
			if _, err := uuid.Parse(value); err != nil {
				vm.sendValidationError(c, "INVALID_PATH_PARAM", param+" must be a valid UUID", map[string]interface{}{
					"param": param,
					"value": value,
				})
				return
			}
		}
		c.Next()
	}
}

func (vm *ValidationMiddleware) sendValidationError(c *gin.Context, code, message string, details map[string]interface{}) {
	errorObj := map[string]interface{}{
		"code":      code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"requestId": uuid.New().String(),
		"path":      c.Request.URL.Path,
		"method":    c.Request.Method,
	}
	if details != nil {
		errorObj["details"] = details
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": errorObj})
	c.Abort()
}
