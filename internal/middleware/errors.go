package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError represents a structured error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Common error codes
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeConfigMissing      = "CONFIG_MISSING"
	ErrCodeTemplateNotFound   = "TEMPLATE_NOT_FOUND"
	ErrCodeSchemaMissing      = "SCHEMA_MISSING"
	ErrCodeTypeMismatch       = "TYPE_MISMATCH"
	ErrCodeGenerationFailed   = "GENERATION_FAILED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeUpstreamError      = "UPSTREAM_ERROR"
	ErrCodePushFailed         = "PUSH_FAILED"
	ErrCodeOAuthNotConfigured = "OAUTH_NOT_CONFIGURED"
	ErrCodeMissingCode        = "MISSING_CODE"
	ErrCodeMissingState       = "MISSING_STATE"
	ErrCodeInvalidState       = "INVALID_STATE"
)

// RespondError sends a structured error response
func RespondError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"error": APIError{
			Code:    code,
			Message: message,
		},
	})
}

// RespondErrorWithDetails sends a structured error response with details
func RespondErrorWithDetails(c *gin.Context, status int, code string, message string, details string) {
	c.JSON(status, gin.H{
		"error": APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// BadRequest sends a 400 error
func BadRequest(c *gin.Context, code string, message string) {
	RespondError(c, http.StatusBadRequest, code, message)
}

// Unauthorized sends a 401 error
func Unauthorized(c *gin.Context, message string) {
	RespondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// NotFound sends a 404 error
func NotFound(c *gin.Context, code string, message string) {
	RespondError(c, http.StatusNotFound, code, message)
}

// InternalError sends a 500 error
func InternalError(c *gin.Context, code string, message string) {
	RespondError(c, http.StatusInternalServerError, code, message)
}

// UpstreamError sends a 502 error
func UpstreamError(c *gin.Context, message string) {
	RespondError(c, http.StatusBadGateway, ErrCodeUpstreamError, message)
}
