// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/loomworks/loom-backend/internal/auth"
	"github.com/loomworks/loom-backend/internal/category"
	"github.com/loomworks/loom-backend/internal/fetch"
	"github.com/loomworks/loom-backend/internal/knowledge"
	"github.com/loomworks/loom-backend/internal/llm"
	"github.com/loomworks/loom-backend/internal/storage"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// We only handle the last error for the response.
		err := c.Errors.Last().Err
		customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		var statusCode int
		var userMessage string

		switch {
		case errors.Is(err, storage.ErrUserNotFound),
			errors.Is(err, storage.ErrTableNotFound),
			errors.Is(err, storage.ErrColumnNotFound),
			errors.Is(err, storage.ErrTrainingDataNotFound):
			statusCode = http.StatusNotFound
			userMessage = err.Error()

		case errors.Is(err, storage.ErrEmailExists),
			errors.Is(err, storage.ErrTableExists):
			statusCode = http.StatusConflict
			userMessage = err.Error()

		case errors.Is(err, storage.ErrInvalidCredentials):
			statusCode = http.StatusUnauthorized
			userMessage = err.Error()

		case errors.Is(err, auth.ErrTokenMalformed),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrTokenClaimsInvalid),
			errors.Is(err, auth.ErrUnexpectedSigningMethod):
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid or malformed authentication token."

		case errors.Is(err, auth.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			userMessage = "Authentication token has expired."

		case errors.Is(err, category.ErrNoIdentityTable),
			errors.Is(err, category.ErrUnknownTable),
			errors.Is(err, storage.ErrServiceAccountNotFound),
			errors.Is(err, fetch.ErrFetchFailed),
			errors.Is(err, fetch.ErrUnrecognizedPayload),
			errors.Is(err, knowledge.ErrInvalidURL),
			errors.Is(err, knowledge.ErrURLFetchFailed),
			errors.Is(err, knowledge.ErrUnreadablePDF),
			errors.Is(err, knowledge.ErrContentTooShort):
			statusCode = http.StatusBadRequest
			userMessage = err.Error()

		case errors.Is(err, llm.ErrMalformedResponse),
			errors.Is(err, llm.ErrModelCall):
			statusCode = http.StatusBadGateway
			userMessage = err.Error()

		default:
			if validationErrs, ok := err.(validator.ValidationErrors); ok {
				statusCode = http.StatusBadRequest
				userMessage = "Validation failed. Please check your input."
				for _, fe := range validationErrs {
					customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
				}
				break
			}
			statusCode = http.StatusInternalServerError
			userMessage = "An unexpected internal server error occurred."
			customLog.Printf("Unhandled error type: %T, Error: %v", err, err)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		} else {
			customLog.Printf("[ErrorHandler] Warning: Response already written before handling error.")
		}
	}
}
