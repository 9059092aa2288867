package restclient

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors matchable with errors.Is regardless of the wrapping
// *Error value.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a
	// request without attempting it.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrRateLimited is returned when the client-side rate limiter rejects
	// a request before any network activity. Distinct from a server 429,
	// which classifies as KindRateLimit.
	ErrRateLimited = errors.New("client-side rate limit exceeded")

	// ErrBackoffInterrupted is returned when the request context is
	// cancelled while waiting between retry attempts.
	ErrBackoffInterrupted = errors.New("context cancelled during retry backoff")
)

// Kind classifies a request failure.
type Kind string

const (
	// HTTP status failures.
	KindAuthentication Kind = "authentication"  // 401
	KindForbidden      Kind = "forbidden"       // 403
	KindNotFound       Kind = "not_found"       // 404
	KindRateLimit      Kind = "rate_limit"      // 429 (server-side)
	KindClientResponse Kind = "client_response" // other 4xx
	KindServer         Kind = "server"          // 5xx
	KindHTTP           Kind = "http"            // any other failing status

	// Transport failures.
	KindConnection     Kind = "connection"
	KindConnectTimeout Kind = "connect_timeout"
	KindReadTimeout    Kind = "read_timeout"
	KindWriteTimeout   Kind = "write_timeout"
	KindTimeout        Kind = "timeout"

	// Local rejections and misuse.
	KindCircuitOpen   Kind = "circuit_open"
	KindRateLimited   Kind = "rate_limited" // client-side admission rejection
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
)

// Error is the typed failure returned by every unsuccessful request. It
// carries the classification Kind plus whatever context the failure
// offered: status code for HTTP failures, Retry-After for server rate
// limits, and the underlying cause for transport failures.
type Error struct {
	Kind       Kind
	Message    string
	Method     string
	URL        string
	StatusCode int

	// RetryAfter is the parsed numeric Retry-After header of a 429
	// response, zero when absent or non-numeric.
	RetryAfter time.Duration

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Method != "" && e.URL != "" {
		msg = fmt.Sprintf("%s (%s %s)", msg, e.Method, e.URL)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors and other *Error values of the same Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrCircuitOpen:
		return e.Kind == KindCircuitOpen
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	if te, ok := target.(*Error); ok {
		return e.Kind == te.Kind
	}
	return false
}

// HTTPStatus reports the status code carried by the error, if any. It
// satisfies the breaker's StatusCoder so the breaker can apply its
// included-status rule.
func (e *Error) HTTPStatus() (int, bool) {
	if e.StatusCode > 0 {
		return e.StatusCode, true
	}
	return 0, false
}

// IsHTTPError reports whether err is a failure carried by an HTTP status
// code.
func IsHTTPError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindAuthentication, KindForbidden, KindNotFound, KindRateLimit,
		KindClientResponse, KindServer, KindHTTP:
		return true
	}
	return false
}

// IsClientResponseError reports whether err classifies as a 4xx failure.
func IsClientResponseError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindAuthentication, KindForbidden, KindNotFound, KindRateLimit,
		KindClientResponse:
		return true
	}
	return false
}

// IsTimeout reports whether err is any timeout classification.
func IsTimeout(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindConnectTimeout, KindReadTimeout, KindWriteTimeout, KindTimeout:
		return true
	}
	return false
}
