package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/media"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/session"
)

const (
	eventsPath     = "/events"
	minBackoff     = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
	pongWait       = 60 * time.Second
	maxFrameSize   = 8 << 20
	namespaceQRRaw = "qrData"
)

// Dispatcher receives lifecycle events decoded from the stream.
type Dispatcher interface {
	Dispatch(ev session.Event)
}

// Frame is one event on the sidecar stream.
type Frame struct {
	Namespace string          `json:"namespace"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// Stream follows the sidecar's global event stream and routes frames to
// the dispatcher or to the listeners of the matching client.
type Stream struct {
	url        string
	engine     *Engine
	dispatcher Dispatcher
	dialer     *websocket.Dialer
	logger     *zap.Logger
}

// NewStream creates a stream for the sidecar at baseURL.
func NewStream(baseURL string, engine *Engine, dispatcher Dispatcher, logger *zap.Logger) (*Stream, error) {
	wsURL, err := streamURL(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		url:        wsURL,
		engine:     engine,
		dispatcher: dispatcher,
		dialer:     websocket.DefaultDialer,
		logger:     logger,
	}, nil
}

func streamURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse engine url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported engine url scheme %q", u.Scheme)
	}
	u.Path += eventsPath
	return u.String(), nil
}

// Run reads the stream until ctx is done, reconnecting with exponential
// backoff.
func (s *Stream) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		connected, err := s.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = minBackoff
		}
		s.logger.Warn("engine event stream lost", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (s *Stream) consume(ctx context.Context) (bool, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	s.logger.Info("engine event stream connected", zap.String("url", s.url))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame Frame
		if err := sonic.Unmarshal(raw, &frame); err != nil {
			s.logger.Warn("malformed engine frame", zap.Error(err))
			continue
		}
		if err := s.Route(frame); err != nil {
			s.logger.Warn("engine frame dropped",
				zap.String("namespace", frame.Namespace),
				zap.String("session_id", frame.SessionID),
				zap.Error(err))
		}
	}
}

// Route turns one frame into an event. Per-client namespaces go to the
// listeners registered on that client.
func (s *Stream) Route(f Frame) error {
	if f.SessionID == "" {
		return errors.New("frame has no session id")
	}

	switch session.EventKind(f.Namespace) {
	case session.EventQR, namespaceQRRaw:
		code, err := text(f.Data)
		if err != nil {
			return err
		}
		s.dispatcher.Dispatch(session.QREvent{SessionID: f.SessionID, Code: code})

	case session.EventSessionData:
		var data any
		if len(f.Data) > 0 {
			if err := sonic.Unmarshal(f.Data, &data); err != nil {
				return fmt.Errorf("decode session data: %w", err)
			}
		}
		s.dispatcher.Dispatch(session.SessionDataEvent{SessionID: f.SessionID, Data: data})

	case session.EventState:
		state, err := text(f.Data)
		if err != nil {
			return err
		}
		s.dispatcher.Dispatch(session.StateEvent{SessionID: f.SessionID, State: session.State(state)})

	case session.EventError:
		msg, err := text(f.Data)
		if err != nil {
			msg = string(f.Data)
		}
		s.dispatcher.Dispatch(session.ErrorEvent{SessionID: f.SessionID, Message: msg})

	case session.EventStateChanged:
		state, err := text(f.Data)
		if err != nil {
			return err
		}
		if fn := s.stateListener(f.SessionID); fn != nil {
			fn(session.State(state))
			return nil
		}
		s.dispatcher.Dispatch(session.StateChangedEvent{SessionID: f.SessionID, State: session.State(state)})

	case session.EventMessage:
		var msg media.Message
		if err := sonic.Unmarshal(f.Data, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		fn := s.messageListener(f.SessionID)
		if fn == nil {
			return errors.New("no message listener for session")
		}
		fn(msg)

	default:
		return fmt.Errorf("unknown namespace %q", f.Namespace)
	}
	return nil
}

func (s *Stream) stateListener(sessionID string) func(session.State) {
	if c, ok := s.engine.lookup(sessionID); ok {
		return c.stateListener()
	}
	return nil
}

func (s *Stream) messageListener(sessionID string) func(media.Message) {
	if c, ok := s.engine.lookup(sessionID); ok {
		return c.messageListener()
	}
	return nil
}

// text decodes frame data that must be a JSON string.
func text(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("empty frame data")
	}
	var s string
	if err := sonic.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("frame data is not a string: %w", err)
	}
	return s, nil
}
