// Package testutil provides a configurable mock HTTP origin for tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Response defines the behavior of a mock endpoint.
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Origin is a configurable mock HTTP server. Paths without a registered
// handler answer 200 with a small JSON body.
type Origin struct {
	server *httptest.Server

	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests int
	lastHdr  http.Header
}

// NewOrigin starts a mock origin server. Callers must Close it.
func NewOrigin() *Origin {
	o := &Origin{
		handlers: make(map[string]http.HandlerFunc),
	}

	o.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.requests++
		o.lastHdr = r.Header.Clone()
		handler, ok := o.handlers[r.URL.Path]
		o.mu.Unlock()

		if ok {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"status": "ok"}`))
	}))

	return o
}

// URL returns the origin's base URL.
func (o *Origin) URL() string {
	return o.server.URL
}

// Close shuts down the origin.
func (o *Origin) Close() {
	o.server.Close()
}

// Reset clears request tracking.
func (o *Origin) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = 0
	o.lastHdr = nil
}

// RequestCount returns the number of requests received.
func (o *Origin) RequestCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.requests
}

// LastRequestHeader returns a clone of the most recent request's headers.
func (o *Origin) LastRequestHeader() http.Header {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastHdr
}

// SetHandler registers a custom handler for path.
func (o *Origin) SetHandler(path string, handler http.HandlerFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[path] = handler
}

// SetResponse configures a canned response for path.
func (o *Origin) SetResponse(path string, resp Response) {
	o.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// FailNTimes registers a handler that answers status for the first n
// requests to path and 200 afterwards.
func (o *Origin) FailNTimes(path string, n, status int) {
	var mu sync.Mutex
	count := 0
	o.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		failing := count <= n
		mu.Unlock()

		if failing {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"status": "recovered"}`))
	})
}

// OKResponse creates a 200 response with a JSON body.
func OKResponse(data string) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// RateLimitResponse creates a 429 response with a numeric Retry-After.
func RateLimitResponse(retryAfter int) Response {
	return Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfter),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// ServerErrorResponse creates a 500 response.
func ServerErrorResponse() Response {
	return Response{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
