package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ResponseToEntry converts an HTTP response into a cache entry with the
// given TTL. The response body is read fully and then restored so the
// caller can still consume it.
func ResponseToEntry(resp *http.Response, ttl time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for the caller.
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	return &Entry{
		Data:       body,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// EntryToResponse reconstructs an HTTP response from a cache entry.
func EntryToResponse(entry *Entry) *http.Response {
	return &http.Response{
		StatusCode:    entry.StatusCode,
		Status:        http.StatusText(entry.StatusCode),
		Header:        entry.Headers.Clone(),
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
	}
}
