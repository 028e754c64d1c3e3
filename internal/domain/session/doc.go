// Package session manages chat-client sessions from first start to
// teardown.
//
// Components:
//   - Registry: one shared slot per session id plus its group allow-list
//   - Manager: single-flight creation, state queries, cancellation
//   - Events: closed set of engine signals routed through Dispatch
//
// Lifecycle:
//
//	ABSENT -> INITIALIZING -> QR_PENDING -> CONNECTED -> ABSENT
//
// CONFLICT, UNPAIRED and UNLAUNCHED drop the session as soon as they are
// dispatched. Backend notifications and media relays run in the background
// and never block the dispatcher; Wait drains them.
//
// Example Usage:
//
//	mgr := session.NewManager(cfg, session.Dependencies{
//		Engine: engine, Reaper: reaper, Notifier: backend, Layout: layout,
//	}, logger)
//	qr, err := mgr.Start(ctx, "user-1", false)
package session
