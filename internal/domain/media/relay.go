package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/monitoring"
)

const (
	// DefaultFolder is the storage folder relayed images land in.
	DefaultFolder = "whatsapp_images"
	// RelayTimeout bounds one detached relay.
	RelayTimeout = 2 * time.Minute
)

// Config configures the relay pipeline.
type Config struct {
	TempDir string
	Folder  string
}

// Relay decrypts allow-listed group images and hands them to storage and
// the backend.
type Relay struct {
	cfg      Config
	groups   AllowList
	fetcher  Fetcher
	uploader Uploader
	notifier Notifier
	push     Publisher
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewRelay creates a relay pipeline.
func NewRelay(cfg Config, groups AllowList, fetcher Fetcher, uploader Uploader, notifier Notifier, logger *zap.Logger) *Relay {
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		cfg:      cfg,
		groups:   groups,
		fetcher:  fetcher,
		uploader: uploader,
		notifier: notifier,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking
func (r *Relay) WithMetrics(m *monitoring.Metrics) *Relay {
	r.metrics = m
	return r
}

// WithPublisher mirrors relayed images onto the push channel
func (r *Relay) WithPublisher(p Publisher) *Relay {
	r.push = p
	return r
}

// Admits reports whether msg passes the type and allow-list filter.
func (r *Relay) Admits(sessionID string, msg Message) bool {
	return msg.IsGroupImage() && r.groups.HasGroup(sessionID, msg.ChatID)
}

// Process relays msg and logs any failure. It never returns an error so
// one bad message cannot affect the next.
func (r *Relay) Process(ctx context.Context, sessionID string, msg Message) {
	log := r.logger.With(
		zap.String("session_id", sessionID),
		zap.String("chat_id", msg.ChatID),
		zap.String("message_id", msg.ID),
	)

	if !r.Admits(sessionID, msg) {
		if msg.IsGroupImage() {
			log.Debug("ignoring image from unregistered group")
		}
		return
	}

	timer := monitoring.NewTimer(r.metrics)
	url, err := r.Relay(ctx, sessionID, msg)
	if err != nil {
		timer.Media(outcome(err))
		log.Error("group image relay failed", zap.Error(err))
		return
	}
	timer.Media("relayed")
	log.Info("group image relayed", zap.String("image_url", url))
}

// Relay runs the pipeline for an admitted message and returns the storage
// URL. The decrypted temp file is removed on every path.
func (r *Relay) Relay(ctx context.Context, sessionID string, msg Message) (string, error) {
	encrypted, err := r.fetcher.Fetch(ctx, msg.ClientURL)
	if err != nil {
		return "", fmt.Errorf("%w: fetch media: %v", ErrIOFailure, err)
	}

	plaintext, err := Decrypt(encrypted, msg.MediaKey, InfoLabel(msg.Type))
	if err != nil {
		return "", err
	}

	path, err := r.writeTemp(plaintext, Extension(msg.MimeType, plaintext))
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("failed to remove temp media", zap.String("path", path), zap.Error(err))
		}
	}()

	url, err := r.uploader.Upload(ctx, path, r.cfg.Folder)
	if err != nil {
		return "", fmt.Errorf("%w: upload: %v", ErrIOFailure, err)
	}

	payload := NewGroupImage(msg, url)
	if err := r.notifier.GroupImage(ctx, msg.ChatID, payload); err != nil {
		return url, fmt.Errorf("notify backend: %w", err)
	}

	if r.push != nil {
		r.push.Publish(sessionID, "message", map[string]any{
			"chat_id":   msg.ChatID,
			"image_url": url,
			"caption":   msg.Caption,
			"timestamp": payload.Timestamp,
		})
	}

	return url, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrDecryption):
		return "decrypt_failed"
	case errors.Is(err, ErrIOFailure):
		return "io_failed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "notify_failed"
	}
}
