// Package middleware provides the HTTP middleware chain for the
// Mercury server: request IDs, structured request logging, panic
// recovery, and rate limit enforcement.
//
// Middleware composes in the standard func(http.Handler) http.Handler
// form and is applied outermost-first by the server:
//
//	handler = middleware.Recovery(handler)
//	handler = middleware.Logging(handler)
//	handler = middleware.RequestID(handler)
package middleware
