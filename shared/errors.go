package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryUpstream      ErrorCategory = "upstream"
	ErrorCategoryNotFound      ErrorCategory = "not_found"
	ErrorCategoryDatabase      ErrorCategory = "database"
	ErrorCategoryProcessing    ErrorCategory = "processing"
	ErrorCategoryTimeout       ErrorCategory = "timeout"
)

// Error codes shared between services and handlers
const (
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeNotFound            = "NOT_FOUND"
	CodeStoreFailure        = "STORE_FAILURE"
	CodeRenderFailure       = "RENDER_FAILURE"
	CodeLockUnavailable     = "LOCK_UNAVAILABLE"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Cause       error         `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Cause:       cause,
	}
}

// NewUpstreamUnavailableError reports that an external provider could not be
// reached or returned an unusable payload. ServiceName carries the provider.
func NewUpstreamUnavailableError(provider, operation string, cause error) *ServiceError {
	return NewServiceError(
		ErrorCategoryUpstream,
		CodeUpstreamUnavailable,
		fmt.Sprintf("Could not fetch data from %s: %v", provider, cause),
		provider,
		operation,
		cause,
	)
}

// NewNotFoundError reports a lookup that matched nothing
func NewNotFoundError(serviceName, operation, message string) *ServiceError {
	return NewServiceError(ErrorCategoryNotFound, CodeNotFound, message, serviceName, operation, nil)
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"timestamp":        e.Timestamp,
		"details":          e.Details,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

// WrapError wraps an existing error with service error context. A
// ServiceError already in the chain keeps its category.
func WrapError(err error, category ErrorCategory, code, serviceName, operation string) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, err)
}

// CategoryOf returns the category of the first ServiceError in err's chain
func CategoryOf(err error) (ErrorCategory, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Category, true
	}
	return "", false
}

// IsUpstreamUnavailable reports whether err came from a failed provider call
func IsUpstreamUnavailable(err error) bool {
	category, ok := CategoryOf(err)
	return ok && category == ErrorCategoryUpstream
}

// IsNotFound reports whether err is a not-found condition
func IsNotFound(err error) bool {
	category, ok := CategoryOf(err)
	return ok && category == ErrorCategoryNotFound
}
