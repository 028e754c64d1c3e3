package session

import "github.com/GriffinCanCode/SessionRelay/backend/internal/domain/media"

// EventKind names an engine lifecycle signal.
type EventKind string

const (
	EventQR           EventKind = "qr"
	EventSessionData  EventKind = "sessionData"
	EventState        EventKind = "state"
	EventError        EventKind = "error"
	EventStateChanged EventKind = "stateChanged"
	EventMessage      EventKind = "message"
)

// EventKinds lists every kind the manager must handle.
var EventKinds = []EventKind{
	EventQR,
	EventSessionData,
	EventState,
	EventError,
	EventStateChanged,
	EventMessage,
}

// Event is a lifecycle signal for one session. The set of implementations
// is closed to this package.
type Event interface {
	Kind() EventKind
	Session() string
	event()
}

// QREvent carries a fresh pairing code.
type QREvent struct {
	SessionID string
	Code      string
}

// SessionDataEvent carries opaque session auth data.
type SessionDataEvent struct {
	SessionID string
	Data      any
}

// StateEvent is a state report from the global engine stream.
type StateEvent struct {
	SessionID string
	State     State
}

// ErrorEvent carries an engine-side error message.
type ErrorEvent struct {
	SessionID string
	Message   string
}

// StateChangedEvent is a state report from a client listener.
type StateChangedEvent struct {
	SessionID string
	State     State
}

// MessageEvent carries an inbound chat message.
type MessageEvent struct {
	SessionID string
	Message   media.Message
}

func (QREvent) Kind() EventKind           { return EventQR }
func (SessionDataEvent) Kind() EventKind  { return EventSessionData }
func (StateEvent) Kind() EventKind        { return EventState }
func (ErrorEvent) Kind() EventKind        { return EventError }
func (StateChangedEvent) Kind() EventKind { return EventStateChanged }
func (MessageEvent) Kind() EventKind      { return EventMessage }

func (e QREvent) Session() string           { return e.SessionID }
func (e SessionDataEvent) Session() string  { return e.SessionID }
func (e StateEvent) Session() string        { return e.SessionID }
func (e ErrorEvent) Session() string        { return e.SessionID }
func (e StateChangedEvent) Session() string { return e.SessionID }
func (e MessageEvent) Session() string      { return e.SessionID }

func (QREvent) event()           {}
func (SessionDataEvent) event()  {}
func (StateEvent) event()        {}
func (ErrorEvent) event()        {}
func (StateChangedEvent) event() {}
func (MessageEvent) event()      {}
