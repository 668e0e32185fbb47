package app

import "github.com/searchktools/cruet/core/gateway"

// BeforeFunc runs ahead of dispatch. Returning a non-nil response
// short-circuits the chain and skips the route handler.
type BeforeFunc func(req *gateway.Request) *gateway.Response

// AfterFunc post-processes an outgoing response, including error
// responses and short-circuits. Returning nil keeps the current
// response, returning a response replaces it.
type AfterFunc func(req *gateway.Request, resp *gateway.Response) *gateway.Response

// Before registers a hook run in registration order ahead of every
// dispatch. Routing has already happened when it runs, so the request
// carries its endpoint and path parameters.
func (a *App) Before(fn BeforeFunc) {
	a.before = append(a.before, fn)
}

// After registers a hook run on every response, in reverse
// registration order.
func (a *App) After(fn AfterFunc) {
	a.after = append(a.after, fn)
}

// runBefore plays the before chain; the first short-circuit wins.
func (a *App) runBefore(req *gateway.Request) *gateway.Response {
	for _, fn := range a.before {
		if resp := fn(req); resp != nil {
			return resp
		}
	}
	return nil
}

// runAfter threads resp through the after chain.
func (a *App) runAfter(req *gateway.Request, resp *gateway.Response) *gateway.Response {
	for i := len(a.after) - 1; i >= 0; i-- {
		if r := a.after[i](req, resp); r != nil {
			resp = r
		}
	}
	return resp
}
