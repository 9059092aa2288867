package restclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// classifyResponse maps a failing HTTP response (status >= 400) to a typed
// error. First match wins: 401, 403, 404, 429, other 4xx, 5xx, then a
// generic HTTP error for anything else.
func classifyResponse(req *http.Request, resp *http.Response) *Error {
	e := &Error{
		Message:    http.StatusText(resp.StatusCode),
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		e.Kind = KindAuthentication
	case resp.StatusCode == http.StatusForbidden:
		e.Kind = KindForbidden
	case resp.StatusCode == http.StatusNotFound:
		e.Kind = KindNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		e.RetryAfter = parseRetryAfter(resp.Header)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		e.Kind = KindClientResponse
	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		e.Kind = KindServer
	default:
		e.Kind = KindHTTP
	}

	return e
}

// parseRetryAfter reads a numeric Retry-After header into a duration.
// Date-form values are not parsed and leave the result unset.
func parseRetryAfter(headers http.Header) time.Duration {
	raw := headers.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// classifyTransport maps a transport-level failure to a typed error:
// connect, read, and write phase timeouts each get their own kind, other
// timeouts a generic one, and everything else classifies as a connection
// failure.
func classifyTransport(req *http.Request, err error) *Error {
	e := &Error{
		Message: "request failed",
		Method:  req.Method,
		URL:     req.URL.String(),
		Cause:   err,
	}

	// net/http wraps transport failures in *url.Error; unwrap for phase
	// inspection but keep the original as the cause.
	var urlErr *url.Error
	inner := err
	if errors.As(err, &urlErr) {
		inner = urlErr.Err
	}

	if isTimeout(inner) {
		e.Message = "request timed out"
		switch opOf(inner) {
		case "dial":
			e.Kind = KindConnectTimeout
		case "read":
			e.Kind = KindReadTimeout
		case "write":
			e.Kind = KindWriteTimeout
		default:
			e.Kind = KindTimeout
		}
		return e
	}

	e.Kind = KindConnection
	e.Message = "connection failed"
	return e
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// opOf returns the network operation ("dial", "read", "write") that
// produced err, or "" when it cannot be determined.
func opOf(err error) string {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op
	}
	return ""
}
