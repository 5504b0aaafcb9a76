// Package ratelimit implements a distributed sliding-window rate
// limiter coordinated through a shared Redis store.
//
// # Algorithm
//
// Each (route, identifier) pair owns a sorted set in the shared store.
// Every admitted request adds a member "<unixSeconds>:<nonce>" scored
// by its timestamp; the nonce keeps same-second requests distinct. A
// check first purges members older than the window and counts the
// survivors in one pipeline, rejecting when the count has reached the
// quota. Rejected requests are not registered, so they do not extend
// their own penalty. The set's key carries an expiry of twice the
// window to bound unattended growth.
//
// # Distribution
//
// Limiter instances hold no cross-request state; any number of
// stateless processes behind a load balancer enforce one combined quota
// through the store's pipeline atomicity. An off-by-one overshoot under
// extreme races is accepted in exchange for avoiding distributed locks.
//
// # Failure policy
//
// The limiter fails open: when the store is unreachable every check
// reports not-exceeded and the failure is logged (throttled). Rate
// limiting protects the service; it must never take it down.
package ratelimit
