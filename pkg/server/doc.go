// Package server provides the HTTP redirect front end for Mercator
// Mercury.
//
// The server routes three surfaces: the metrics endpoint and health
// probe (exempt from rate limiting), and the catch-all redirect
// handler, which runs behind the rate limiter. Request paths resolve
// against the redirect rule table; /s/<id> paths additionally go
// through the seller lookup cache to map identifiers to slugs.
//
// The middleware chain is panic recovery, request IDs, structured
// request logging, then per-route rate limiting on the redirect
// handler. Shutdown is graceful: in-flight requests drain within the
// configured timeout and the metrics aggregator persists a final
// snapshot.
package server
