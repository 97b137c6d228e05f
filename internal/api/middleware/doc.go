// Package middleware holds the gin middleware shared by every route:
// CORS, per-IP rate limiting, request IDs and access logging.
package middleware
