// Package middleware holds the gin middleware of the launcher daemon:
// CORS, per-client rate limiting, request ids and access logging.
package middleware
