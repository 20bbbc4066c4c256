package platformerrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HTTPErrorResponse is the standard error response format.
type HTTPErrorResponse struct {
	Error *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes err as an HTTP response, mapping PlatformError types to
// status codes and treating anything else as an internal error.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if err == nil {
		c.JSON(http.StatusInternalServerError, HTTPErrorResponse{
			Error: &HTTPErrorDetail{Message: "unknown error", Type: "internal_error"},
		})
		return
	}

	platformErr := GetPlatformError(err)
	if platformErr == nil {
		log.Error().Err(err).Msg("unclassified error")
		c.JSON(http.StatusInternalServerError, HTTPErrorResponse{
			Error: &HTTPErrorDetail{Message: err.Error(), Type: "internal_error"},
		})
		return
	}

	status := ErrorTypeToHTTPStatus(platformErr.Type)
	event := log.Warn()
	if status >= 500 {
		event = log.Error()
	}
	event.
		Err(platformErr).
		Str("layer", string(platformErr.Layer)).
		Str("error_type", string(platformErr.Type)).
		Str("request_id", platformErr.RequestID).
		Msg(platformErr.Message)

	c.JSON(status, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   platformErr.Message,
			Type:      errorTypeToString(platformErr.Type),
			RequestID: platformErr.RequestID,
		},
	})
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, HTTPErrorResponse{
		Error: &HTTPErrorDetail{Message: message, Type: "not_found_error"},
	})
}

// WriteValidationError writes a 400 Bad Request response.
func WriteValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, HTTPErrorResponse{
		Error: &HTTPErrorDetail{Message: message, Type: "validation_error"},
	})
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, HTTPErrorResponse{
		Error: &HTTPErrorDetail{Message: message, Type: "internal_error"},
	})
}

func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found_error"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeConflict:
		return "conflict_error"
	case ErrorTypeUnavailable:
		return "unavailable_error"
	case ErrorTypeTimeout:
		return "timeout_error"
	case ErrorTypeExternal:
		return "external_error"
	case ErrorTypeInternal:
		fallthrough
	default:
		return "internal_error"
	}
}
