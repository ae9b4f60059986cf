package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeUnknown indicates a missing or malformed transport response,
	// or a transport failure that carried no classification.
	ErrCodeUnknown ErrorCode = iota
	// ErrCodeClient indicates a 4xx response.
	ErrCodeClient
	// ErrCodeServer indicates a 5xx response.
	ErrCodeServer
	// ErrCodeDecoding indicates a missing or unparsable response body.
	ErrCodeDecoding
	// ErrCodeAuthentication indicates the endpoint's credential could not be
	// produced or encoded.
	ErrCodeAuthentication
	// ErrCodeTrust indicates a mutual-TLS identity or trust failure.
	ErrCodeTrust
	// ErrCodeCanceled indicates the caller's context ended first.
	ErrCodeCanceled
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeClient:
		return "client"
	case ErrCodeServer:
		return "server"
	case ErrCodeDecoding:
		return "decoding"
	case ErrCodeAuthentication:
		return "authentication"
	case ErrCodeTrust:
		return "trust"
	case ErrCodeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is a structured HTTP client error with classification.
type Error struct {
	// StatusCode is the HTTP status code (0 when no response was classified).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Body is the original response body (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, fallback string, err error) *Error {
	msg := fallback
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// NewUnknownError creates an unknown error. err may be nil.
func NewUnknownError(err error) *Error {
	return newError(ErrCodeUnknown, "malformed or missing response", err)
}

// NewClientError creates a 4xx error.
func NewClientError(statusCode int, description string, body []byte) *Error {
	return &Error{StatusCode: statusCode, Code: ErrCodeClient, Message: description, Body: body}
}

// NewServerError creates a 5xx error.
func NewServerError(statusCode int, description string, body []byte) *Error {
	return &Error{StatusCode: statusCode, Code: ErrCodeServer, Message: description, Body: body}
}

// NewDecodingError creates a decoding error. err may be nil.
func NewDecodingError(err error) *Error {
	return newError(ErrCodeDecoding, "response body missing", err)
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(err error) *Error {
	return newError(ErrCodeAuthentication, "no usable credential", err)
}

// NewTrustError creates a mutual-TLS trust error.
func NewTrustError(err error) *Error {
	return newError(ErrCodeTrust, "trust evaluation failed", err)
}

// NewCanceledError creates a cancellation error.
func NewCanceledError(err error) *Error {
	return newError(ErrCodeCanceled, "request canceled", err)
}

// ClassifyStatusCode converts a 4xx or 5xx status into a typed error.
// Returns nil for every other status.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return NewClientError(statusCode, describe(statusCode, body), body)
	case statusCode >= 500 && statusCode < 600:
		return NewServerError(statusCode, describe(statusCode, body), body)
	default:
		return nil
	}
}

// describe prefers an "error" or "message" string from a JSON body over the
// generic status phrase.
func describe(statusCode int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"error", "message"} {
			if v := gjson.GetBytes(body, key); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
				return v.Str
			}
		}
	}
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}

// CodeOf returns the classification of err, or ErrCodeUnknown when err is
// not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsUnknown checks if an error is an unknown error.
func IsUnknown(err error) bool { return hasCode(err, ErrCodeUnknown) }

// IsClientError checks if an error is a 4xx error.
func IsClientError(err error) bool { return hasCode(err, ErrCodeClient) }

// IsServerError checks if an error is a 5xx error.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsDecoding checks if an error is a decoding error.
func IsDecoding(err error) bool { return hasCode(err, ErrCodeDecoding) }

// IsAuthentication checks if an error is an authentication error.
func IsAuthentication(err error) bool { return hasCode(err, ErrCodeAuthentication) }

// IsTrust checks if an error is a trust error.
func IsTrust(err error) bool { return hasCode(err, ErrCodeTrust) }

// IsCanceled checks if an error is a cancellation error.
func IsCanceled(err error) bool { return hasCode(err, ErrCodeCanceled) }
