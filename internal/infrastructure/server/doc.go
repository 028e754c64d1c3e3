// Package server assembles the session relay: configuration, logging,
// metrics, the engine adapter and event stream, the session manager,
// the media relay, the push hub and the HTTP router.
package server
