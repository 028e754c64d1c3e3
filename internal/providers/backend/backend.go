// Package backend posts session lifecycle and relayed media notifications
// to the application backend.
package backend

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/media"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/providers/http/client"
)

const (
	qrPath     = "/main/wa/qr-code/"
	statusPath = "/main/wa/session-status/"
	groupPath  = "/main/chat-groups/%s/messages/"
)

// QRPayload announces a fresh pairing code.
type QRPayload struct {
	UserID   string `json:"user_id"`
	QRString string `json:"qr_string"`
}

// StatusPayload announces a connection state change.
type StatusPayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// Client is the backend webhook client.
type Client struct {
	http   *client.Client
	logger *zap.Logger
}

// New creates a backend client.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: client.New(client.Options{
			Name:       "backend",
			BaseURL:    baseURL,
			Timeout:    timeout,
			RetryCount: 2,
		}),
		logger: logger,
	}
}

// QRReady posts a pairing code for a session.
func (c *Client) QRReady(ctx context.Context, sessionID, qr string) error {
	return c.post(ctx, qrPath, QRPayload{UserID: sessionID, QRString: qr})
}

// StatusChanged posts a session state string.
func (c *Client) StatusChanged(ctx context.Context, sessionID, status string) error {
	return c.post(ctx, statusPath, StatusPayload{UserID: sessionID, Status: status})
}

// GroupImage posts a relayed image to the group's message feed.
func (c *Client) GroupImage(ctx context.Context, chatID string, img media.GroupImage) error {
	return c.post(ctx, fmt.Sprintf(groupPath, url.PathEscape(chatID)), img)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	_, err := c.http.Execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.SetBody(body).Post(path)
	})
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	c.logger.Debug("backend notified", zap.String("path", path))
	return nil
}
