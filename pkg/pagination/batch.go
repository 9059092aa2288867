package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BatchConfig holds batch fetcher configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration

	// BufferSize for internal channels. Should roughly match the expected
	// total page count.
	BufferSize int
}

// DefaultBatchConfig returns a conservative default configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
		BufferSize:     100,
	}
}

// PageFetcher fetches a single numbered page and reports the collection's
// total page count. Implementations typically derive the total from a
// response header or envelope field.
type PageFetcher interface {
	FetchPage(ctx context.Context, path string, page int) (data []byte, totalPages int, err error)
}

// PageResult is the outcome of fetching one page.
type PageResult struct {
	Page  int
	Data  []byte
	Error error
}

// BatchFetcher fetches all pages of a collection in parallel. It suits
// APIs that announce the total page count up front; for cursor-style
// pagination use Paginator instead.
type BatchFetcher struct {
	fetcher PageFetcher
	config  BatchConfig
}

// NewBatchFetcher creates a batch fetcher. Zero config fields fall back to
// DefaultBatchConfig values.
func NewBatchFetcher(fetcher PageFetcher, config BatchConfig) *BatchFetcher {
	def := DefaultBatchConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAllPages fetches every page of path using a worker pool and returns
// a map of page number to body. On a worker error the successfully fetched
// pages are returned alongside the error.
func (bf *BatchFetcher) FetchAllPages(ctx context.Context, path string) (map[int][]byte, error) {
	start := time.Now()

	// The first page reveals the total page count.
	firstPage, totalPages, err := bf.fetcher.FetchPage(ctx, path, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching first page: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	if totalPages <= 1 {
		return map[int][]byte{1: firstPage}, nil
	}

	results := map[int][]byte{1: firstPage}

	pageQueue := make(chan int, bf.config.BufferSize)
	pageResults := make(chan PageResult, bf.config.BufferSize)
	workerErrs := make(chan error, bf.config.MaxConcurrency)

	go func() {
		for page := 2; page <= totalPages; page++ {
			pageQueue <- page
		}
		close(pageQueue)
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, path, pageQueue, pageResults, workerErrs, &wg)
	}

	go func() {
		wg.Wait()
		close(pageResults)
		close(workerErrs)
	}()

	fetched := 1
	for result := range pageResults {
		if result.Error != nil {
			continue
		}
		results[result.Page] = result.Data
		fetched++
	}

	select {
	case err := <-workerErrs:
		if err != nil {
			log.Warn().
				Err(err).
				Int("fetched_pages", fetched).
				Int("total_pages", totalPages).
				Msg("Worker error - returning partial results")
			return results, fmt.Errorf("partial fetch (%d/%d pages): %w", fetched, totalPages, err)
		}
	default:
	}

	log.Info().
		Str("path", path).
		Int("pages", fetched).
		Int("total", totalPages).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

func (bf *BatchFetcher) worker(ctx context.Context, path string, pageQueue <-chan int, results chan<- PageResult, errs chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()

	for page := range pageQueue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		data, _, err := bf.fetcher.FetchPage(pageCtx, path, page)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("page", page).
				Msg("Page fetch failed")

			select {
			case errs <- err:
			default:
			}
			return
		}

		select {
		case results <- PageResult{Page: page, Data: data}:
		case <-ctx.Done():
			return
		}
	}
}
