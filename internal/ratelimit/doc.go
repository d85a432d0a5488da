// Package ratelimit is per-client-ip rate limiting for the public listener.
//
// The limiter is in-memory and local to one process. It protects the blog
// from a single address hammering rendered pages. It does not help against
// traffic spread over many addresses, and request bodies have already been
// accepted by the time it runs.
//
// Clients are keyed by the address httpmw.ClientIP stored in the request
// context, so the limiter must run after that middleware. Static assets and
// the health endpoints can be exempted by path prefix.
package ratelimit
