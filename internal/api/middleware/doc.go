// Package middleware provides gin middleware shared by the HTTP surface:
// CORS and per-client rate limiting.
package middleware
