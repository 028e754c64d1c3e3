package engine

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/media"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/session"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/providers/http/client"
)

const (
	callTimeout     = 15 * time.Second
	createHeadroom  = 30 * time.Second
	sessionsPath    = "/sessions"
	sessionPathTmpl = "/sessions/%s/%s"
)

// Config configures the engine sidecar connection.
type Config struct {
	BaseURL         string
	CreationTimeout time.Duration
}

type createRequest struct {
	SessionID                 string `json:"sessionId"`
	MultiDevice               bool   `json:"multiDevice"`
	QRTimeout                 int    `json:"qrTimeout"`
	AuthTimeout               int    `json:"authTimeout"`
	Headless                  bool   `json:"headless"`
	KillProcessOnBrowserClose bool   `json:"killProcessOnBrowserClose"`
	ExecutablePath            string `json:"executablePath,omitempty"`
	SessionDataPath           string `json:"sessionDataPath"`
}

type createResponse struct {
	PID int `json:"pid"`
}

type stateResponse struct {
	State string `json:"state"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"isGroup"`
	Icon    string `json:"icon"`
}

// Engine talks to the automation sidecar over HTTP and keeps the client
// handles that event stream frames are routed to.
type Engine struct {
	http   *client.Client
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// New creates an engine adapter.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		http: client.New(client.Options{
			Name:    "engine",
			BaseURL: cfg.BaseURL,
			// creation blocks until the user scans the QR code
			Timeout:   cfg.CreationTimeout + createHeadroom,
			TripAfter: 5,
		}),
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

// Create asks the sidecar to launch a client and blocks until it is
// authenticated.
func (e *Engine) Create(ctx context.Context, opts session.Options) (session.Client, error) {
	body := createRequest{
		SessionID:                 opts.SessionID,
		MultiDevice:               true,
		QRTimeout:                 int(opts.QRTimeout / time.Second),
		AuthTimeout:               int(opts.AuthTimeout / time.Second),
		Headless:                  opts.Headless,
		KillProcessOnBrowserClose: true,
		ExecutablePath:            opts.ExecutablePath,
		SessionDataPath:           opts.DataPath,
	}

	var out createResponse
	_, err := e.http.Execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.SetBody(body).SetResult(&out).Post(sessionsPath)
	})
	if err != nil {
		return nil, err
	}

	c := &Client{id: opts.SessionID, pid: out.PID, engine: e}
	e.mu.Lock()
	e.clients[opts.SessionID] = c
	e.mu.Unlock()

	e.logger.Info("engine client created", zap.String("session_id", opts.SessionID), zap.Int("pid", out.PID))
	return c, nil
}

func (e *Engine) lookup(sessionID string) (*Client, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.clients[sessionID]
	return c, ok
}

func (e *Engine) release(c *Client) {
	e.mu.Lock()
	if e.clients[c.id] == c {
		delete(e.clients, c.id)
	}
	e.mu.Unlock()
}

func (e *Engine) call(ctx context.Context, method, sessionID, action string, result any) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	path := fmt.Sprintf(sessionPathTmpl, url.PathEscape(sessionID), action)
	_, err := e.http.Execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		if result != nil {
			req.SetResult(result)
		}
		return req.Execute(method, path)
	})
	return err
}

// Client is a session handle backed by the sidecar.
type Client struct {
	id     string
	pid    int
	engine *Engine

	mu        sync.RWMutex
	onState   func(session.State)
	onMessage func(media.Message)
}

// ConnectionState asks the sidecar for the live state.
func (c *Client) ConnectionState(ctx context.Context) (session.State, error) {
	var out stateResponse
	if err := c.engine.call(ctx, resty.MethodGet, c.id, "state", &out); err != nil {
		return "", err
	}
	return session.State(out.State), nil
}

// Chats lists every chat the client can see.
func (c *Client) Chats(ctx context.Context) ([]session.Chat, error) {
	var out []chatResponse
	if err := c.engine.call(ctx, resty.MethodGet, c.id, "chats", &out); err != nil {
		return nil, err
	}

	chats := make([]session.Chat, len(out))
	for i, ch := range out {
		chats[i] = session.Chat{ID: ch.ID, Name: ch.Name, IsGroup: ch.IsGroup, Icon: ch.Icon}
	}
	return chats, nil
}

// Logout unpairs the device.
func (c *Client) Logout(ctx context.Context) error {
	return c.engine.call(ctx, resty.MethodPost, c.id, "logout", nil)
}

// Kill closes the browser. The handle stops receiving events.
func (c *Client) Kill(ctx context.Context) error {
	err := c.engine.call(ctx, resty.MethodPost, c.id, "kill", nil)
	c.engine.release(c)
	return err
}

// PID returns the browser process id reported at creation.
func (c *Client) PID() int { return c.pid }

// OnStateChanged registers the state listener.
func (c *Client) OnStateChanged(fn func(session.State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// OnMessage registers the message listener.
func (c *Client) OnMessage(fn func(media.Message)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

func (c *Client) stateListener() func(session.State) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onState
}

func (c *Client) messageListener() func(media.Message) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onMessage
}
