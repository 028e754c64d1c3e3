// Package ws implements the push channel.
//
// Clients connect to /stream?userId=<id> and join the room for that
// session. The session manager and the media relay publish qr, status,
// message and error frames into the room:
//
//	{"type": "qr", "session_id": "u1", "data": "2@...", "timestamp": 1700000000}
//
// Inbound messages:
//   - init-session: start the session in the background ({"forceDelete": bool})
//   - get-status: reply with a status frame
//   - ping: reply with pong
//
// A connection without a valid userId is closed with a policy violation.
package ws
