// Package pagination iterates over paginated JSON collections.
//
// A Strategy decides how to ask for the next page (offset/limit or page
// number) and how to pull the items out of a page body. The Paginator
// drives a Strategy against a client, yielding items until the strategy
// reports the collection is exhausted:
//
//	strategy := pagination.OffsetLimit{Limit: 100, ResultsKey: "data"}
//	p := pagination.New(client, "/v1/users", strategy, nil)
//	err := p.Each(ctx, func(item json.RawMessage) error {
//		...
//	})
//
// For APIs that report the total page count up front, BatchFetcher fetches
// all pages in parallel with a worker pool and returns partial results on
// worker failure.
package pagination
