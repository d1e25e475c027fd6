// Package middleware provides the HTTP middleware stack and the CORS,
// iframe embedding and request logging middleware.
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware = func(http.Handler) http.Handler

// System manages an ordered stack of HTTP middleware. The first middleware
// added runs outermost.
type System interface {
	Use(mw ...Middleware)
	Apply(handler http.Handler) http.Handler
	Len() int
}

type stack struct {
	items []Middleware
}

// New creates a middleware System seeded with mws.
func New(mws ...Middleware) System {
	s := &stack{}
	s.Use(mws...)
	return s
}

func (s *stack) Use(mws ...Middleware) {
	for _, mw := range mws {
		if mw != nil {
			s.items = append(s.items, mw)
		}
	}
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	return Chain(handler, s.items...)
}

func (s *stack) Len() int {
	return len(s.items)
}

// Chain wraps handler with mws so that mws[0] sees the request first.
func Chain(handler http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}
