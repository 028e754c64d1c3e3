// Package storage uploads relayed media to Cloudinary.
package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/providers/http/client"
)

// ErrNotConfigured is returned when credentials are missing.
var ErrNotConfigured = errors.New("storage credentials not configured")

// Config holds Cloudinary credentials.
type Config struct {
	BaseURL   string
	CloudName string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

type uploadResult struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Uploader stores images through the signed upload API.
type Uploader struct {
	cfg    Config
	http   *client.Client
	now    func() time.Time
	logger *zap.Logger
}

// New creates an uploader.
func New(cfg Config, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	return &Uploader{
		cfg: cfg,
		http: client.New(client.Options{
			Name:       "storage",
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			RetryCount: 1,
		}),
		now:    time.Now,
		logger: logger,
	}
}

// Upload sends the file at path into folder and returns its HTTPS URL.
func (u *Uploader) Upload(ctx context.Context, path, folder string) (string, error) {
	if u.cfg.CloudName == "" || u.cfg.APIKey == "" || u.cfg.APISecret == "" {
		return "", ErrNotConfigured
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("upload source: %w", err)
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(u.now().Unix(), 10),
	}
	if folder != "" {
		params["folder"] = folder
	}
	form := map[string]string{
		"api_key":   u.cfg.APIKey,
		"signature": Sign(params, u.cfg.APISecret),
	}
	for k, v := range params {
		form[k] = v
	}

	var result uploadResult
	endpoint := fmt.Sprintf("/%s/image/upload", trimSlashes(u.cfg.CloudName))
	_, err := u.http.Execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetFile("file", path).
			SetFormData(form).
			SetResult(&result).
			Post(endpoint)
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("upload %s: %s", filepath.Base(path), result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("upload %s: response carried no secure_url", filepath.Base(path))
	}

	u.logger.Debug("media uploaded", zap.String("public_id", result.PublicID))
	return result.SecureURL, nil
}

// Sign computes the upload signature: SHA-1 over the sorted key=value
// pairs joined by '&', followed by the API secret.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func trimSlashes(segment string) string {
	return strings.Trim(segment, "/")
}
