package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/kettelby/go-rest-client/pkg/restclient"
)

// fakeGetter serves canned page bodies keyed by offset.
type fakeGetter struct {
	pages map[string]string
	calls int
}

func (f *fakeGetter) Get(_ context.Context, _ string, opts *restclient.RequestOptions) (*http.Response, error) {
	f.calls++
	offset := "0"
	if opts != nil && opts.Query.Get("offset") != "" {
		offset = opts.Query.Get("offset")
	}
	body, ok := f.pages[offset]
	if !ok {
		return nil, fmt.Errorf("no page at offset %s", offset)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func TestPaginator_All(t *testing.T) {
	getter := &fakeGetter{pages: map[string]string{
		"0": `{"data": [{"id": 1}, {"id": 2}]}`,
		"2": `{"data": [{"id": 3}, {"id": 4}]}`,
		"4": `{"data": [{"id": 5}]}`,
	}}

	p := New(getter, "/v1/things", OffsetLimit{Limit: 2, ResultsKey: "data"}, nil)
	items, err := p.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(items) != 5 {
		t.Errorf("All() returned %d items, want 5", len(items))
	}
	if getter.calls != 3 {
		t.Errorf("client called %d times, want 3", getter.calls)
	}
}

func TestPaginator_SinglePage(t *testing.T) {
	getter := &fakeGetter{pages: map[string]string{
		"0": `{"data": [{"id": 1}]}`,
	}}

	p := New(getter, "/v1/things", OffsetLimit{Limit: 100, ResultsKey: "data"}, nil)
	items, err := p.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("All() returned %d items, want 1", len(items))
	}
	if getter.calls != 1 {
		t.Errorf("client called %d times, want 1 (short page ends iteration)", getter.calls)
	}
}

func TestPaginator_EachStopsOnCallbackError(t *testing.T) {
	getter := &fakeGetter{pages: map[string]string{
		"0": `{"data": [{"id": 1}, {"id": 2}]}`,
		"2": `{"data": [{"id": 3}, {"id": 4}]}`,
	}}

	stop := errors.New("stop")
	seen := 0
	p := New(getter, "/v1/things", OffsetLimit{Limit: 2, ResultsKey: "data"}, nil)
	err := p.Each(context.Background(), func(_ json.RawMessage) error {
		seen++
		if seen == 1 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Each() error = %v, want %v", err, stop)
	}
	if seen != 1 {
		t.Errorf("callback ran %d times, want 1", seen)
	}
	if getter.calls != 1 {
		t.Errorf("client called %d times, want 1", getter.calls)
	}
}

func TestPaginator_PropagatesFetchError(t *testing.T) {
	getter := &fakeGetter{pages: map[string]string{
		"0": `{"data": [{"id": 1}, {"id": 2}]}`,
	}}

	p := New(getter, "/v1/things", OffsetLimit{Limit: 2, ResultsKey: "data"}, nil)
	if _, err := p.All(context.Background()); err == nil {
		t.Fatal("All() error = nil, want fetch error for missing second page")
	}
}

// pagedFetcher serves n full pages for BatchFetcher tests.
type pagedFetcher struct {
	totalPages int
	failPage   int
}

func (f *pagedFetcher) FetchPage(_ context.Context, _ string, page int) ([]byte, int, error) {
	if page == f.failPage {
		return nil, f.totalPages, errors.New("boom")
	}
	return []byte("page-" + strconv.Itoa(page)), f.totalPages, nil
}

func TestBatchFetcher_AllPages(t *testing.T) {
	bf := NewBatchFetcher(&pagedFetcher{totalPages: 5}, BatchConfig{MaxConcurrency: 2})

	results, err := bf.FetchAllPages(context.Background(), "/v1/things")
	if err != nil {
		t.Fatalf("FetchAllPages() error = %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d pages, want 5", len(results))
	}
	for page := 1; page <= 5; page++ {
		want := "page-" + strconv.Itoa(page)
		if string(results[page]) != want {
			t.Errorf("page %d = %q, want %q", page, results[page], want)
		}
	}
}

func TestBatchFetcher_SinglePage(t *testing.T) {
	bf := NewBatchFetcher(&pagedFetcher{totalPages: 1}, DefaultBatchConfig())

	results, err := bf.FetchAllPages(context.Background(), "/v1/things")
	if err != nil {
		t.Fatalf("FetchAllPages() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d pages, want 1", len(results))
	}
}

func TestBatchFetcher_PartialOnWorkerError(t *testing.T) {
	bf := NewBatchFetcher(&pagedFetcher{totalPages: 4, failPage: 3}, BatchConfig{MaxConcurrency: 1})

	results, err := bf.FetchAllPages(context.Background(), "/v1/things")
	if err == nil {
		t.Fatal("FetchAllPages() error = nil, want partial fetch error")
	}
	if len(results) == 0 {
		t.Error("FetchAllPages() returned no pages, want partial results")
	}
	if _, ok := results[1]; !ok {
		t.Error("partial results missing page 1")
	}
}

func TestBatchFetcher_FirstPageError(t *testing.T) {
	bf := NewBatchFetcher(&pagedFetcher{totalPages: 3, failPage: 1}, DefaultBatchConfig())

	if _, err := bf.FetchAllPages(context.Background(), "/v1/things"); err == nil {
		t.Fatal("FetchAllPages() error = nil, want first page error")
	}
}
