package restclient

import "net/http"

// Next invokes the remainder of the middleware chain for a request.
type Next func(*http.Request) (*http.Response, error)

// Middleware intercepts a request on its way to the transport. An
// implementation may mutate the outgoing request before calling next and
// may mutate the response before returning it. Middleware run in
// declaration order inbound and reverse order outbound.
type Middleware interface {
	Handle(req *http.Request, next Next) (*http.Response, error)
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc func(req *http.Request, next Next) (*http.Response, error)

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(req *http.Request, next Next) (*http.Response, error) {
	return f(req, next)
}

// chain dispatches a request through an ordered middleware list and a
// terminal handler. Dispatch is index-driven over the list, so the chain
// depth is bounded by its length and each link is testable in isolation.
type chain struct {
	links    []Middleware
	terminal Next
}

func newChain(links []Middleware, terminal Next) *chain {
	return &chain{links: links, terminal: terminal}
}

func (c *chain) dispatch(req *http.Request) (*http.Response, error) {
	return c.call(0, req)
}

func (c *chain) call(i int, req *http.Request) (*http.Response, error) {
	if i < len(c.links) {
		return c.links[i].Handle(req, func(r *http.Request) (*http.Response, error) {
			return c.call(i+1, r)
		})
	}
	return c.terminal(req)
}
