package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeConflict    ErrorType = "CONFLICT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeExternal    ErrorType = "EXTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeInternal    ErrorType = "INTERNAL"
)

// Layer represents the application layer where the error occurred.
type Layer string

const (
	LayerRepository     Layer = "repository"
	LayerDomain         Layer = "domain"
	LayerHandler        Layer = "handler"
	LayerRealtime       Layer = "realtime"
	LayerInfrastructure Layer = "infrastructure"
)

type contextKey string

// RequestIDContextKey is where the request id middleware stores its value.
const RequestIDContextKey contextKey = "requestID"

func requestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// PlatformError carries an error category plus the layer it originated in.
type PlatformError struct {
	Type      ErrorType
	Message   string
	Err       error
	RequestID string
	Layer     Layer
	Timestamp time.Time
}

func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s] %s: %v", e.Layer, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s] %s", e.Layer, e.Type, e.Message)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// NewError creates a new PlatformError.
func NewError(ctx context.Context, layer Layer, errorType ErrorType, message string, err error) *PlatformError {
	return &PlatformError{
		Type:      errorType,
		Message:   message,
		Err:       err,
		RequestID: requestIDFromContext(ctx),
		Layer:     layer,
		Timestamp: time.Now().UTC(),
	}
}

// AsError wraps an error with layer context, preserving the original error
// type when the chain already carries a PlatformError.
func AsError(ctx context.Context, layer Layer, err error, message string) *PlatformError {
	if err == nil {
		return nil
	}

	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return NewError(ctx, layer, platformErr.Type, fmt.Sprintf("%s: %s", message, platformErr.Message), platformErr)
	}

	errorType := ErrorTypeInternal
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		errorType = ErrorTypeTimeout
	case errors.As(err, &netErr), errors.Is(err, syscall.ECONNREFUSED):
		// A backing service we cannot reach is a 503, not a 500.
		errorType = ErrorTypeUnavailable
	}

	return NewError(ctx, layer, errorType, message, err)
}

// GetPlatformError returns the PlatformError in err's chain, or nil.
func GetPlatformError(err error) *PlatformError {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr
	}
	return nil
}

// IsNotFound reports whether err's chain carries a NOT_FOUND platform error.
func IsNotFound(err error) bool {
	platformErr := GetPlatformError(err)
	return platformErr != nil && platformErr.Type == ErrorTypeNotFound
}

// ErrorTypeToHTTPStatus maps error types to HTTP status codes.
func ErrorTypeToHTTPStatus(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeExternal, ErrorTypeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}
