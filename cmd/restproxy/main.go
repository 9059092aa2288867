// Command restproxy forwards HTTP requests to an upstream API through the
// resilient client: requests to /proxy/<path> are relayed to the configured
// base URL with retries, circuit breaking, rate limiting, and optional
// response caching applied.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/kettelby/go-rest-client/pkg/cache"
	"github.com/kettelby/go-rest-client/pkg/config"
	"github.com/kettelby/go-rest-client/pkg/logging"
	"github.com/kettelby/go-rest-client/pkg/restclient"
)

func main() {
	logger := logging.Setup(logging.FromEnv())

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.BaseURL == "" {
		logger.Fatal().Msg("REST_CLIENT_BASE_URL is required")
	}

	var opts []restclient.Option
	var redisClient *redis.Client
	if addr := os.Getenv("REST_CLIENT_REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", addr).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", addr).Msg("Connected to Redis")
		opts = append(opts, restclient.WithCacheBackend(cache.NewRedis(redisClient)))
		cfg.Cache.Enabled = true
	}

	client, err := restclient.New(cfg, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create client")
	}
	defer client.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/readyz", readyHandler(redisClient))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/proxy/", proxyHandler(client))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info().
		Str("addr", server.Addr).
		Str("upstream", cfg.BaseURL).
		Msg("Starting proxy server")

	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports readiness. With a Redis cache configured, readiness
// requires Redis to answer a ping.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// proxyHandler relays /proxy/<path> to the upstream through the resilient
// client and copies the upstream response back verbatim.
func proxyHandler(client *restclient.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/proxy")
		if path == "" || path == "/" {
			http.Error(w, "missing upstream path", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		resp, err := client.Request(ctx, r.Method, path, &restclient.RequestOptions{
			Query: r.URL.Query(),
			Body:  r.Body,
		})
		if err != nil {
			writeClientError(w, err)
			return
		}
		defer resp.Body.Close()

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
	}
}

// writeClientError maps client failures to proxy status codes: upstream
// status failures pass through, local rejections map to 429/503, and
// transport failures become 502.
func writeClientError(w http.ResponseWriter, err error) {
	var cerr *restclient.Error
	if !errors.As(err, &cerr) {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	switch cerr.Kind {
	case restclient.KindRateLimited:
		http.Error(w, cerr.Error(), http.StatusTooManyRequests)
	case restclient.KindCircuitOpen:
		http.Error(w, cerr.Error(), http.StatusServiceUnavailable)
	default:
		if cerr.StatusCode > 0 {
			http.Error(w, cerr.Error(), cerr.StatusCode)
			return
		}
		http.Error(w, cerr.Error(), http.StatusBadGateway)
	}
}
