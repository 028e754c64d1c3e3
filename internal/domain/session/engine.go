package session

import (
	"context"
	"time"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/media"
)

// Options are passed to the engine when a client is created.
type Options struct {
	SessionID      string
	DataPath       string
	QRTimeout      time.Duration
	AuthTimeout    time.Duration
	Headless       bool
	ExecutablePath string
}

// Chat is one chat as listed by a client.
type Chat struct {
	ID      string
	Name    string
	IsGroup bool
	Icon    string
}

// Group is a group chat as returned to callers.
type Group struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Icon string `json:"icon,omitempty"`
}

// Engine creates connected clients. Create blocks until the client is
// authenticated or ctx expires. QR codes produced meanwhile are delivered
// as EventQR through Manager.Dispatch.
type Engine interface {
	Create(ctx context.Context, opts Options) (Client, error)
}

// Client is a live session handle.
type Client interface {
	ConnectionState(ctx context.Context) (State, error)
	Chats(ctx context.Context) ([]Chat, error)
	Logout(ctx context.Context) error
	Kill(ctx context.Context) error
	// PID returns the backing process id, or 0 when unknown.
	PID() int
	OnStateChanged(fn func(State))
	OnMessage(fn func(media.Message))
}

// Notifier forwards lifecycle changes to the backend.
type Notifier interface {
	QRReady(ctx context.Context, sessionID, qr string) error
	StatusChanged(ctx context.Context, sessionID, status string) error
}

// Publisher pushes an event into the session's push channel room.
type Publisher interface {
	Publish(sessionID, kind string, data any)
}

// MessageHandler consumes inbound messages.
type MessageHandler interface {
	Process(ctx context.Context, sessionID string, msg media.Message)
}

// Reaper tracks and terminates backing client processes.
type Reaper interface {
	Save(sessionID string, pid int)
	Find(sessionID string) (int, bool)
	Kill(sessionID string) bool
	Forget(sessionID string)
}
