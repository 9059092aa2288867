package pagination

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Strategy decides how a paginated collection advances. Items extracts the
// page's items from a response body; NextQuery returns the query
// parameters for the next page, or nil when the collection is exhausted.
type Strategy interface {
	Items(body []byte) ([]json.RawMessage, error)
	NextQuery(items []json.RawMessage, current url.Values) url.Values
}

// OffsetLimit paginates with offset/limit query parameters. A page
// returning fewer than Limit items is the last page.
type OffsetLimit struct {
	// OffsetParam and LimitParam name the query parameters. Defaults:
	// "offset" and "limit".
	OffsetParam string
	LimitParam  string

	// Limit is the page size requested from the server.
	Limit int

	// ResultsKey locates the item array in the response body. Dotted
	// paths descend into nested objects ("data.items"). Empty means the
	// body itself is the array.
	ResultsKey string
}

func (s OffsetLimit) offsetParam() string {
	if s.OffsetParam == "" {
		return "offset"
	}
	return s.OffsetParam
}

func (s OffsetLimit) limitParam() string {
	if s.LimitParam == "" {
		return "limit"
	}
	return s.LimitParam
}

func (s OffsetLimit) limit() int {
	if s.Limit <= 0 {
		return 100
	}
	return s.Limit
}

func (s OffsetLimit) Items(body []byte) ([]json.RawMessage, error) {
	return extractItems(body, s.ResultsKey)
}

func (s OffsetLimit) NextQuery(items []json.RawMessage, current url.Values) url.Values {
	if len(items) < s.limit() {
		return nil
	}
	offset, _ := strconv.Atoi(current.Get(s.offsetParam()))
	next := url.Values{}
	next.Set(s.offsetParam(), strconv.Itoa(offset+s.limit()))
	next.Set(s.limitParam(), strconv.Itoa(s.limit()))
	return next
}

// PageNumber paginates with a page-number query parameter starting at 1.
// When PageSize is set, a page returning fewer items is the last page;
// otherwise iteration stops at the first empty page.
type PageNumber struct {
	// PageParam names the query parameter. Default: "page".
	PageParam string

	// PageSize is the expected full-page item count. Optional.
	PageSize int

	// ResultsKey locates the item array, as in OffsetLimit.
	ResultsKey string
}

func (s PageNumber) pageParam() string {
	if s.PageParam == "" {
		return "page"
	}
	return s.PageParam
}

func (s PageNumber) Items(body []byte) ([]json.RawMessage, error) {
	return extractItems(body, s.ResultsKey)
}

func (s PageNumber) NextQuery(items []json.RawMessage, current url.Values) url.Values {
	if len(items) == 0 {
		return nil
	}
	if s.PageSize > 0 && len(items) < s.PageSize {
		return nil
	}
	page, err := strconv.Atoi(current.Get(s.pageParam()))
	if err != nil || page < 1 {
		page = 1
	}
	next := url.Values{}
	next.Set(s.pageParam(), strconv.Itoa(page+1))
	return next
}

// extractItems parses body and descends resultsKey to the item array.
func extractItems(body []byte, resultsKey string) ([]json.RawMessage, error) {
	raw := json.RawMessage(body)
	if resultsKey != "" {
		for _, key := range strings.Split(resultsKey, ".") {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(raw, &obj); err != nil {
				return nil, fmt.Errorf("pagination: descending %q: %w", key, err)
			}
			inner, ok := obj[key]
			if !ok {
				return nil, nil
			}
			raw = inner
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("pagination: parsing item array: %w", err)
	}
	return items, nil
}
