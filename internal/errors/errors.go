// Package errors writes the JSON error envelope shared by every endpoint:
//
//	{"error": {"code": "...", "message": "...", "details": {...}, "request_id": "..."}}
//
// Each helper also logs the rejection through the request-scoped logger.
package errors

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/estatedesk/internal/middleware"
)

// Error codes
const (
	ErrNotFound           = "NOT_FOUND"
	ErrBadRequest         = "BAD_REQUEST"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// NotFound responds 404.
func NotFound(c *gin.Context, message string) {
	warn(c, "Resource not found", map[string]interface{}{"detail": message})
	respond(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// BadRequest responds 400 with optional details, e.g. the offending
// parameter.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	fields := map[string]interface{}{"detail": message}
	if details != nil {
		fields["details"] = details
	}
	warn(c, "Bad request", fields)
	respond(c, http.StatusBadRequest, ErrBadRequest, message, details)
}

// InternalServerError responds 500. err is logged but never sent to the
// client.
func InternalServerError(c *gin.Context, message string, err error) {
	if log := middleware.GetLogger(c); log != nil {
		log.Error("Internal server error", err, map[string]interface{}{
			"detail": message,
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
	}
	respond(c, http.StatusInternalServerError, ErrInternalServer, message, nil)
}

// ServiceUnavailable responds 503 for features that are switched off or
// whose backing dependency is down.
func ServiceUnavailable(c *gin.Context, message string) {
	warn(c, "Service unavailable", map[string]interface{}{"detail": message})
	respond(c, http.StatusServiceUnavailable, ErrServiceUnavailable, message, nil)
}

// ValidationError responds 400 with one human-readable message per failing
// field, keyed by the Go field name.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{}, len(validationErrors))
	for _, fe := range validationErrors {
		details[fe.Field()] = formatValidationError(fe)
	}

	warn(c, "Validation error", map[string]interface{}{"fields": details})
	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

func respond(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(c),
		},
	})
}

func warn(c *gin.Context, msg string, fields map[string]interface{}) {
	log := middleware.GetLogger(c)
	if log == nil {
		return
	}
	fields["path"] = c.Request.URL.Path
	log.Warn(msg, fields)
}

// formatValidationError phrases a failed rule for the dashboard forms.
// Length rules read differently for text and numbers.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min", "gte":
		return "Must be at least " + fe.Param() + unitFor(fe.Kind())
	case "max", "lte":
		return "Must be at most " + fe.Param() + unitFor(fe.Kind())
	case "oneof":
		return "Must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	default:
		return "Failed the " + fe.Tag() + " check"
	}
}

func unitFor(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	default:
		return ""
	}
}
