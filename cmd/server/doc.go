// Package main is the entry point for the session relay server.
//
// The server drives chat-client sessions in an automation engine
// sidecar, reports QR codes and state changes to the backend, and relays
// images posted in registered groups to object storage.
//
//	Backend / UI → Session Relay → Engine sidecar (browser clients)
//	                             → Cloudinary (relayed images)
//	                             → Backend webhooks
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8000 -engine http://127.0.0.1:8002 -backend http://127.0.0.1:8001
//
//	# Development mode (console logs)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
