// Package httpmw holds the middleware wrapped around the public blog server.
//
// httpserver.NewHandler composes them outermost first: recover, security
// headers, request ID, client IP, rate limit, otelhttp, trace and content
// headers, metrics, logger, access log, then the chi router.
//
// Query strings, user agents and other client supplied headers never reach
// the logs.
package httpmw
