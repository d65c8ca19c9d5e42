// Package kit holds the transport-agnostic plumbing shared by the HTTP and
// MCP surfaces: the Endpoint abstraction, middleware chaining, and the
// context keys request metadata travels under.
package kit

import "context"

// Endpoint is a transport-agnostic operation: decoded request in, response
// out. HTTP handlers and MCP tools both terminate in one.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first argument is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(e Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			e = mws[i](e)
		}
		return e
	}
}
