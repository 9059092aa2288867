package restclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kettelby/go-rest-client/internal/testutil"
	"github.com/kettelby/go-rest-client/pkg/breaker"
	"github.com/kettelby/go-rest-client/pkg/config"
)

// testConfig returns a config suitable for fast tests: default semantics
// with a near-zero backoff.
func testConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.Retry.BackoffFactor = time.Millisecond
	return cfg
}

func newTestClient(t *testing.T, cfg config.Config, opts ...Option) *Client {
	t.Helper()
	c, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestClient_Get(t *testing.T) {
	origin := testutil.NewOrigin()
	defer origin.Close()
	origin.SetHandler("/v1/things", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q, want 2", got)
		}
		w.Write([]byte(`{"ok": true}`))
	})

	cfg := testConfig(origin.URL())
	cfg.Headers = map[string]string{"X-Api-Key": "secret"}
	c := newTestClient(t, cfg)

	resp, err := c.Get(context.Background(), "/v1/things", &RequestOptions{
		Query: map[string][]string{"page": {"2"}},
	})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"ok": true}` {
		t.Errorf("body = %s", body)
	}
	if got := origin.LastRequestHeader().Get("X-Api-Key"); got != "secret" {
		t.Errorf("X-Api-Key = %q, want %q", got, "secret")
	}

	origin.Reset()
	if origin.RequestCount() != 0 || origin.LastRequestHeader() != nil {
		t.Error("Reset() did not clear request tracking")
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))

	resp, err := c.Get(context.Background(), "/v1/flaky", nil)
	if err != nil {
		t.Fatalf("Get() error = %v, want success on third attempt", err)
	}
	resp.Body.Close()

	if got := hits.Load(); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
}

func TestClient_RetryExhaustedReturnsLastError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxAttempts = 2
	c := newTestClient(t, cfg)

	_, err := c.Get(context.Background(), "/v1/down", nil)
	if err == nil {
		t.Fatal("Get() error = nil, want server error after exhaustion")
	}

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if cerr.Kind != KindServer {
		t.Errorf("Kind = %s, want %s", cerr.Kind, KindServer)
	}
	if cerr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", cerr.StatusCode)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestClient_NonRetryableStatusFailsImmediately(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))

	_, err := c.Get(context.Background(), "/v1/missing", nil)
	if !IsClientResponseError(err) {
		t.Fatalf("error = %v, want 4xx classification", err)
	}
	var cerr *Error
	errors.As(err, &cerr)
	if cerr.Kind != KindNotFound {
		t.Errorf("Kind = %s, want %s", cerr.Kind, KindNotFound)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1 (404 is not retried)", got)
	}
}

func TestClient_RateLimitErrorCarriesRetryAfter(t *testing.T) {
	origin := testutil.NewOrigin()
	defer origin.Close()
	origin.SetResponse("/v1/busy", testutil.RateLimitResponse(2))

	cfg := testConfig(origin.URL())
	cfg.Retry.MaxAttempts = 1
	c := newTestClient(t, cfg)

	_, err := c.Get(context.Background(), "/v1/busy", nil)
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if cerr.Kind != KindRateLimit {
		t.Errorf("Kind = %s, want %s", cerr.Kind, KindRateLimit)
	}
	if cerr.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter = %v, want 2s", cerr.RetryAfter)
	}
}

func TestClient_BreakerOpensAndFailsFast(t *testing.T) {
	origin := testutil.NewOrigin()
	defer origin.Close()
	origin.SetResponse("/v1/down", testutil.ServerErrorResponse())

	cfg := testConfig(origin.URL())
	cfg.Retry.MaxAttempts = 1
	cfg.CircuitBreaker.FailureThreshold = 3
	c := newTestClient(t, cfg)

	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), "/v1/down", nil); err == nil {
			t.Fatalf("call %d: error = nil, want server error", i+1)
		}
	}
	if got := c.Breaker().State(); got != breaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", got)
	}

	_, err := c.Get(context.Background(), "/v1/down", nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if got := origin.RequestCount(); got != 3 {
		t.Errorf("server hits = %d, want 3 (open breaker must not reach the server)", got)
	}
}

func TestClient_BreakerIgnoresNonIncludedStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.CircuitBreaker.FailureThreshold = 1
	c := newTestClient(t, cfg)

	for i := 0; i < 3; i++ {
		c.Get(context.Background(), "/v1/missing", nil)
	}
	if got := c.Breaker().State(); got != breaker.StateClosed {
		t.Errorf("breaker state = %v, want closed (404 is not an included status)", got)
	}
}

func TestClient_RateLimiterRejectsBeforeTransport(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RateLimit.MaxRequests = 1
	cfg.RateLimit.TimeWindow = time.Hour
	c := newTestClient(t, cfg)

	if resp, err := c.Get(context.Background(), "/v1/a", nil); err != nil {
		t.Fatalf("first Get() error = %v", err)
	} else {
		resp.Body.Close()
	}

	_, err := c.Get(context.Background(), "/v1/a", nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second Get() error = %v, want ErrRateLimited", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1 (rejection happens before the network)", got)
	}
}

func TestClient_CacheServesRepeatGET(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("cached body"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Cache.Enabled = true
	c := newTestClient(t, cfg)

	for i := 0; i < 2; i++ {
		resp, err := c.Get(context.Background(), "/v1/static", nil)
		if err != nil {
			t.Fatalf("Get() #%d error = %v", i+1, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != "cached body" {
			t.Errorf("Get() #%d body = %q", i+1, body)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1 (second GET served from cache)", got)
	}
}

func TestClient_CacheIgnoresPOST(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Cache.Enabled = true
	c := newTestClient(t, cfg)

	for i := 0; i < 2; i++ {
		resp, err := c.Post(context.Background(), "/v1/submit", nil)
		if err != nil {
			t.Fatalf("Post() #%d error = %v", i+1, err)
		}
		resp.Body.Close()
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2 (POST is never cached)", got)
	}
}

func TestClient_BodyReplayAcrossRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name": "x"}` {
			t.Errorf("attempt %d body = %q, want full body", hits.Load()+1, body)
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))

	resp, err := c.Post(context.Background(), "/v1/things", &RequestOptions{
		Body:        strings.NewReader(`{"name": "x"}`),
		ContentType: "application/json",
	})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestClient_NonReplayableBodyDoesNotLeakTrialSlot(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.BackoffFactor = 150 * time.Millisecond
	cfg.CircuitBreaker.FailureThreshold = 1
	cfg.CircuitBreaker.SuccessThreshold = 1
	cfg.CircuitBreaker.ResetTimeout = 100 * time.Millisecond
	cfg.CircuitBreaker.HalfOpenMaxCalls = 1
	c := newTestClient(t, cfg)

	// Wrapping the reader hides its concrete type, so the request carries
	// no GetBody and the retry attempt cannot rewind the body.
	body := struct{ io.Reader }{strings.NewReader(`{"name": "x"}`)}
	_, err := c.Post(context.Background(), "/v1/submit", &RequestOptions{Body: body})

	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindValidation {
		t.Fatalf("Post() error = %v, want validation error for non-replayable body", err)
	}

	// The failed replay must not consume the single half-open trial slot:
	// once the upstream is healthy again the breaker has to recover.
	time.Sleep(150 * time.Millisecond)
	resp, err := c.Get(context.Background(), "/v1/submit", nil)
	if err != nil {
		t.Fatalf("Get() after recovery error = %v, want trial call to be admitted", err)
	}
	resp.Body.Close()

	if got := c.Breaker().State(); got != breaker.StateClosed {
		t.Errorf("breaker state = %v, want closed after successful trial", got)
	}
}

func TestClient_CallerCancellationIsBreakerNeutral(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxAttempts = 1
	cfg.CircuitBreaker.FailureThreshold = 1
	c := newTestClient(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if _, err := c.Get(ctx, "/v1/slow", nil); err == nil {
		t.Fatal("Get() error = nil, want transport error after cancellation")
	}

	if got := c.Breaker().State(); got != breaker.StateClosed {
		t.Errorf("breaker state = %v, want closed (cancellation is not an origin failure)", got)
	}
	if got := c.Breaker().Snapshot().TotalFailures; got != 0 {
		t.Errorf("TotalFailures = %d, want 0", got)
	}
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.BackoffFactor = 10 * time.Second
	c := newTestClient(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, "/v1/down", nil)
	if !errors.Is(err, ErrBackoffInterrupted) {
		t.Fatalf("error = %v, want ErrBackoffInterrupted", err)
	}
}

func TestClient_RelativePathRequiresBaseURL(t *testing.T) {
	c := newTestClient(t, testConfig(""))

	_, err := c.Get(context.Background(), "/v1/things", nil)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindConfiguration {
		t.Fatalf("error = %v, want configuration error", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Retry.MaxAttempts = 0

	_, err := New(cfg)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindConfiguration {
		t.Fatalf("New() error = %v, want configuration error", err)
	}
}
