package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kettelby/go-rest-client/pkg/logging"
	"github.com/kettelby/go-rest-client/pkg/restclient"
)

// Getter issues a single page request. *restclient.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, path string, opts *restclient.RequestOptions) (*http.Response, error)
}

// Paginator walks a paginated collection page by page.
type Paginator struct {
	client   Getter
	path     string
	strategy Strategy
	query    url.Values
}

// New creates a Paginator. query holds the initial request parameters and
// may be nil.
func New(client Getter, path string, strategy Strategy, query url.Values) *Paginator {
	return &Paginator{
		client:   client,
		path:     path,
		strategy: strategy,
		query:    query,
	}
}

// Each fetches pages until the strategy reports exhaustion, invoking fn for
// every item. A non-nil error from fn stops iteration and is returned.
func (p *Paginator) Each(ctx context.Context, fn func(item json.RawMessage) error) error {
	logger := logging.NewLogger("paginator")

	current := url.Values{}
	for key, values := range p.query {
		current[key] = append([]string(nil), values...)
	}

	for page := 1; ; page++ {
		resp, err := p.client.Get(ctx, p.path, &restclient.RequestOptions{Query: current})
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("reading page %d: %w", page, err)
		}

		items, err := p.strategy.Items(body)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}

		logger.Debug().
			Str("path", p.path).
			Int("page", page).
			Int("items", len(items)).
			Msg("Fetched page")

		for _, item := range items {
			if err := fn(item); err != nil {
				return err
			}
		}

		next := p.strategy.NextQuery(items, current)
		if next == nil {
			return nil
		}
		for key, values := range next {
			current[key] = values
		}
	}
}

// All collects every item of the collection into a slice.
func (p *Paginator) All(ctx context.Context) ([]json.RawMessage, error) {
	var items []json.RawMessage
	err := p.Each(ctx, func(item json.RawMessage) error {
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
