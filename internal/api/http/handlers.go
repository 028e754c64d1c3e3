package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/session"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/shared/utils"
)

// SessionService is the session lifecycle the handlers drive.
type SessionService interface {
	Start(ctx context.Context, id string, forceReset bool) (string, error)
	Status(ctx context.Context, id string) string
	ListGroups(ctx context.Context, id string) ([]session.Group, error)
	RegisterGroups(id string, groupIDs []string)
	Cancel(ctx context.Context, id string) (string, error)
	Stats() map[session.State]int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions SessionService
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	version  string
}

// NewHandlers creates a new handler set
func NewHandlers(sessions SessionService, metrics *monitoring.Metrics, logger *zap.Logger, version string) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		version:  version,
	}
}

type userRequest struct {
	UserID string `json:"userId"`
}

type startRequest struct {
	UserID      string `json:"userId"`
	ForceDelete bool   `json:"forceDelete"`
}

type registerRequest struct {
	UserID           string    `json:"userId"`
	RegisteredGroups *[]string `json:"registeredGroups"`
}

// Register mounts the command surface under /wa.
func (h *Handlers) Register(r gin.IRouter) {
	wa := r.Group("/wa")
	wa.POST("/start-session", h.StartSession)
	wa.POST("/get-status", h.GetStatus)
	wa.POST("/get-groups", h.GetGroups)
	wa.POST("/register-message-hook", h.RegisterMessageHook)
	wa.POST("/cancel-session", h.CancelSession)
}

// Root handles the liveness probe
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Session Relay",
		"version": h.version,
	})
}

// Health reports session counts and relay totals
func (h *Handlers) Health(c *gin.Context) {
	stats := h.sessions.Stats()
	byState := make(map[string]int, len(stats))
	total := 0
	for state, n := range stats {
		byState[state.String()] = n
		total += n
	}

	body := gin.H{
		"status":   "healthy",
		"sessions": gin.H{"total": total, "by_state": byState},
	}
	if h.metrics != nil {
		snap := h.metrics.Snapshot()
		body["uptime_seconds"] = h.metrics.UptimeSeconds()
		body["media"] = gin.H{"relayed": snap.MediaRelayed, "failed": snap.MediaFailed}
		body["notifications_failed"] = snap.NotifyFailed
	}
	c.JSON(http.StatusOK, body)
}

// StartSession creates or joins a session and returns its QR code
func (h *Handlers) StartSession(c *gin.Context) {
	var req startRequest
	if !h.bindUser(c, &req, &req.UserID) {
		return
	}

	qr, err := h.sessions.Start(c.Request.Context(), req.UserID, req.ForceDelete)
	if err != nil {
		h.logger.Error("start session failed", zap.String("session_id", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr": qr})
}

// GetStatus reports the session state, DISCONNECTED when unknown
func (h *Handlers) GetStatus(c *gin.Context) {
	var req userRequest
	if !h.bindUser(c, &req, &req.UserID) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": h.sessions.Status(c.Request.Context(), req.UserID)})
}

// GetGroups lists the session's group chats
func (h *Handlers) GetGroups(c *gin.Context) {
	var req userRequest
	if !h.bindUser(c, &req, &req.UserID) {
		return
	}

	groups, err := h.sessions.ListGroups(c.Request.Context(), req.UserID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case err != nil:
		h.logger.Error("list groups failed", zap.String("session_id", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
	default:
		c.JSON(http.StatusOK, gin.H{"groups": groups})
	}
}

// RegisterMessageHook replaces the relay allow-list
func (h *Handlers) RegisterMessageHook(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.RegisteredGroups == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId or groups array"})
		return
	}
	if err := utils.ValidateSessionID(req.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateGroupIDs(*req.RegisteredGroups); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.sessions.RegisterGroups(req.UserID, *req.RegisteredGroups)
	c.JSON(http.StatusOK, gin.H{"detail": "Registered group hooks."})
}

// CancelSession tears down a session that is not live
func (h *Handlers) CancelSession(c *gin.Context) {
	var req userRequest
	if !h.bindUser(c, &req, &req.UserID) {
		return
	}

	detail, err := h.sessions.Cancel(c.Request.Context(), req.UserID)
	var stateErr *session.StateError
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No active session to cancel"})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot cancel session in state: " + stateErr.State.String()})
	case err != nil:
		h.logger.Error("cancel session failed", zap.String("session_id", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel session"})
	default:
		c.JSON(http.StatusOK, gin.H{"detail": detail})
	}
}

// bindUser decodes the body and checks the user id. It writes the 400
// response itself and reports whether the handler should continue.
func (h *Handlers) bindUser(c *gin.Context, req any, userID *string) bool {
	if err := c.ShouldBindJSON(req); err != nil || *userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId"})
		return false
	}
	if err := utils.ValidateSessionID(*userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
