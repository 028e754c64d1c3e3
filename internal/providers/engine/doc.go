// Package engine adapts the chat automation sidecar to the session
// domain.
//
// The sidecar exposes one REST resource per session and a global
// WebSocket event stream. Engine creates clients over REST; Stream decodes
// stream frames and routes them either to Dispatch or to the listeners a
// client registered. Fetcher downloads encrypted media referenced by
// inbound messages.
//
// Endpoints:
//   - POST /sessions
//   - GET  /sessions/{id}/state
//   - GET  /sessions/{id}/chats
//   - POST /sessions/{id}/logout
//   - POST /sessions/{id}/kill
//   - GET  /events (WebSocket)
package engine
