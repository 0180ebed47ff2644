package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrorInfo is the classification of an unexpected error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError classifies errors that fell through the controllers' sentinel
// checks, mostly store-layer failures. Timeouts and connectivity problems
// come back retry-able; anything else is an internal error with the detail
// hidden from the client.
func ParseError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "An internal error occurred",
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    StoreUnavailable,
			Message: "The data store did not respond in time, please retry",
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "server selection") ||
		strings.Contains(errStr, "timeout") {
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    StoreUnavailable,
			Message: "The data store is unavailable, please retry",
		}
	}

	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: "An internal error occurred, please try again later",
	}
}

// RespondWithParsedError classifies err and writes the matching response.
func RespondWithParsedError(c ginContext, err error) {
	info := ParseError(err)
	c.JSON(info.Status, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}

type ginContext interface {
	JSON(code int, obj interface{})
}
