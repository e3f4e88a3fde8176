// Package apierr renders failures of the HTTP surface as JSON envelopes:
//
//	{"error": {"code": "RESOURCE_NOT_FOUND", "message": "product not found", "request_id": "..."}}
package apierr

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	"github.com/onnwee/storefront-cache/internal/logger"
)

// ErrorCode is the stable, machine-readable part of an error response.
type ErrorCode string

const (
	ErrAuthMissing            ErrorCode = "AUTH_MISSING"
	ErrAuthInvalid            ErrorCode = "AUTH_INVALID"
	ErrCatalogUnavailable     ErrorCode = "CATALOG_UNAVAILABLE"
	ErrSearchInvalidQuery     ErrorCode = "SEARCH_INVALID_QUERY"
	ErrSystemInternal         ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemUnavailable      ErrorCode = "SYSTEM_UNAVAILABLE"
	ErrValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue ErrorCode = "VALIDATION_INVALID_VALUE"
	ErrResourceNotFound       ErrorCode = "RESOURCE_NOT_FOUND"
	ErrRateLimitGlobal        ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP            ErrorCode = "RATE_LIMIT_IP"
)

type codeInfo struct {
	status  int
	message string // used when the caller passes none
}

var codes = map[ErrorCode]codeInfo{
	ErrAuthMissing:            {http.StatusUnauthorized, "Authentication required"},
	ErrAuthInvalid:            {http.StatusUnauthorized, "Invalid authentication credentials"},
	ErrCatalogUnavailable:     {http.StatusServiceUnavailable, "Product catalog temporarily unavailable"},
	ErrSearchInvalidQuery:     {http.StatusBadRequest, "Invalid search query"},
	ErrSystemInternal:         {http.StatusInternalServerError, "Internal server error"},
	ErrSystemUnavailable:      {http.StatusServiceUnavailable, "Service unavailable"},
	ErrValidationMissingField: {http.StatusBadRequest, "Missing required field"},
	ErrValidationInvalidValue: {http.StatusBadRequest, "Invalid value"},
	ErrResourceNotFound:       {http.StatusNotFound, "Resource not found"},
	ErrRateLimitGlobal:        {http.StatusTooManyRequests, "Rate limit exceeded: too many requests"},
	ErrRateLimitIP:            {http.StatusTooManyRequests, "Rate limit exceeded: too many requests from your IP"},
}

// rateLimitRetryAfter is the Retry-After hint, in seconds, sent with 429 responses.
const rateLimitRetryAfter = 1

// Error is a structured API error.
type Error struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	status    int
}

type envelope struct {
	Error *Error `json:"error"`
}

// New creates an error with an explicit status.
func New(code ErrorCode, message string, status int) *Error {
	return &Error{Code: code, Message: message, status: status}
}

// fromCode creates an error with the registered status and, when message is empty,
// the registered default message.
func fromCode(code ErrorCode, message string) *Error {
	info, ok := codes[code]
	if !ok {
		info = codeInfo{http.StatusInternalServerError, "Internal server error"}
	}
	if message == "" {
		message = info.message
	}
	return New(code, message, info.status)
}

// WithDetail attaches one key/value pair.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithRequestID stamps the request ID.
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code.
func (e *Error) Status() int {
	return e.status
}

func AuthMissing(message string) *Error        { return fromCode(ErrAuthMissing, message) }
func AuthInvalid(message string) *Error        { return fromCode(ErrAuthInvalid, message) }
func CatalogUnavailable(message string) *Error { return fromCode(ErrCatalogUnavailable, message) }
func SearchInvalidQuery(message string) *Error { return fromCode(ErrSearchInvalidQuery, message) }
func SystemInternal(message string) *Error     { return fromCode(ErrSystemInternal, message) }
func SystemUnavailable(message string) *Error  { return fromCode(ErrSystemUnavailable, message) }
func RateLimitGlobal() *Error                  { return fromCode(ErrRateLimitGlobal, "") }
func RateLimitIP() *Error                      { return fromCode(ErrRateLimitIP, "") }

// ValidationMissingField reports an absent path or query parameter.
func ValidationMissingField(field string) *Error {
	return fromCode(ErrValidationMissingField, "Missing required field: "+field).WithDetail("field", field)
}

// ValidationInvalidValue reports a parameter with an unusable value.
func ValidationInvalidValue(field, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return fromCode(ErrValidationInvalidValue, message).WithDetail("field", field)
}

// ResourceNotFound reports a lookup that matched nothing, e.g. "product" or "session".
func ResourceNotFound(resourceType string) *Error {
	return fromCode(ErrResourceNotFound, resourceType+" not found").WithDetail("resource_type", resourceType)
}

// WriteError writes err as a JSON envelope.
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	if err.status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(rateLimitRetryAfter))
	}
	w.WriteHeader(err.Status())
	_ = sonic.ConfigStd.NewEncoder(w).Encode(envelope{Error: err})
}

// GetRequestID returns the request ID stored by the request ID middleware.
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext stamps the request ID from r before writing err.
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
