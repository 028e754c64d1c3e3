package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/shared/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
	maxInbound = 4 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware
	},
}

// Sessions is the lifecycle surface the push channel drives.
type Sessions interface {
	Start(ctx context.Context, id string, forceReset bool) (string, error)
	Status(ctx context.Context, id string) string
}

// Frame is an outbound push message.
type Frame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type inbound struct {
	Type        string `json:"type"`
	ForceDelete bool   `json:"forceDelete"`
}

type conn struct {
	id   string
	room string
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *conn) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans session events out to the WebSocket connections of each room.
// A room is keyed by session id.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*conn

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *zap.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:   make(map[string]map[string]*conn),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Publish sends an event to every connection in the session's room.
// Slow connections drop frames rather than block the caller.
func (h *Hub) Publish(sessionID, kind string, data any) {
	payload, err := sonic.Marshal(Frame{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: h.now().Unix(),
	})
	if err != nil {
		h.logger.Warn("push frame encode failed", zap.String("type", kind), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[sessionID] {
		select {
		case c.send <- payload:
			h.metrics.RecordWSMessage("out", kind)
		default:
			h.logger.Warn("push frame dropped",
				zap.String("session_id", sessionID),
				zap.String("conn_id", c.id),
				zap.String("type", kind))
		}
	}
}

// Connections returns the number of open connections in a room.
func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

func (h *Hub) join(c *conn) {
	h.mu.Lock()
	room, ok := h.rooms[c.room]
	if !ok {
		room = make(map[string]*conn)
		h.rooms[c.room] = room
	}
	room[c.id] = c
	h.mu.Unlock()
	h.metrics.IncWSConnections()
}

func (h *Hub) leave(c *conn) {
	h.mu.Lock()
	if room, ok := h.rooms[c.room]; ok {
		if _, ok := room[c.id]; ok {
			delete(room, c.id)
			if len(room) == 0 {
				delete(h.rooms, c.room)
			}
			h.metrics.DecWSConnections()
		}
	}
	h.mu.Unlock()
	c.close()
}

// Handler upgrades /stream?userId=<id> requests and serves the
// connection until either side closes it.
func (h *Hub) Handler(sessions Sessions) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := ctx.Query("userId")

		ws, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		if err := utils.ValidateSessionID(userID); err != nil {
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "userId required")
			ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			ws.Close()
			return
		}

		c := &conn{
			id:   uuid.NewString(),
			room: userID,
			ws:   ws,
			send: make(chan []byte, sendBuffer),
		}
		h.join(c)
		h.logger.Debug("push connection opened", zap.String("session_id", userID), zap.String("conn_id", c.id))

		go h.writePump(c)
		h.readPump(c, sessions)
	}
}

func (h *Hub) readPump(c *conn, sessions Sessions) {
	defer func() {
		h.leave(c)
		h.logger.Debug("push connection closed", zap.String("session_id", c.room), zap.String("conn_id", c.id))
	}()

	c.ws.SetReadLimit(maxInbound)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("push read error", zap.String("session_id", c.room), zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			h.reply(c, "error", "malformed message")
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "init-session":
			h.initSession(c.room, msg.ForceDelete, sessions)
		case "get-status":
			h.reply(c, "status", sessions.Status(context.Background(), c.room))
		case "ping":
			h.reply(c, "pong", nil)
		default:
			h.reply(c, "error", "unknown message type")
		}
	}
}

// initSession starts the session in the background. Its QR code and
// status reach the room through Publish.
func (h *Hub) initSession(sessionID string, force bool, sessions Sessions) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if _, err := sessions.Start(h.ctx, sessionID, force); err != nil {
			if h.ctx.Err() != nil {
				return
			}
			h.logger.Warn("push init-session failed", zap.String("session_id", sessionID), zap.Error(err))
			h.Publish(sessionID, "error", "Failed to create session")
		}
	}()
}

func (h *Hub) reply(c *conn, kind string, data any) {
	payload, err := sonic.Marshal(Frame{Type: kind, SessionID: c.room, Data: data, Timestamp: h.now().Unix()})
	if err != nil {
		return
	}
	defer func() {
		// Close may have shut send under us
		recover()
	}()
	select {
	case c.send <- payload:
		h.metrics.RecordWSMessage("out", kind)
	default:
	}
}

func (h *Hub) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every connection and waits for pending
// init-session calls until ctx is done. Those calls stop waiting as soon
// as Close runs; the creations they joined carry on in the manager.
func (h *Hub) Close(ctx context.Context) error {
	h.cancel()

	h.mu.Lock()
	for id, room := range h.rooms {
		for _, c := range room {
			c.close()
			h.metrics.DecWSConnections()
		}
		delete(h.rooms, id)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("push hub close: %w", ctx.Err())
	}
}
