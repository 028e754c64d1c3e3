// Package http exposes the session command surface over gin.
//
// All commands are JSON POSTs under /wa and mirror the session manager:
// start-session, get-status, get-groups, register-message-hook and
// cancel-session. Domain errors map to status codes here and nowhere
// else.
package http
