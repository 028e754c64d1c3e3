package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Storage   StorageConfig
	Engine    EngineConfig
	Sessions  SessionsConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	// CORSOrigins is a comma separated allow-list, "*" allows any origin.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// BackendConfig holds the webhook target that receives QR codes,
// status changes and relayed media.
type BackendConfig struct {
	BaseURL string        `envconfig:"BACKEND_BASE_URL" default:"http://127.0.0.1:8000"`
	Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s"`
}

// StorageConfig holds object storage credentials.
type StorageConfig struct {
	CloudName string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	APIKey    string `envconfig:"CLOUDINARY_API_KEY"`
	APISecret string `envconfig:"CLOUDINARY_API_SECRET"`
	BaseURL   string `envconfig:"CLOUDINARY_BASE_URL" default:"https://api.cloudinary.com/v1_1"`
	Folder    string `envconfig:"STORAGE_FOLDER" default:"whatsapp_images"`
}

// EngineConfig holds the automation engine sidecar settings.
type EngineConfig struct {
	URL            string        `envconfig:"ENGINE_URL" default:"http://127.0.0.1:8002"`
	QRTimeout      time.Duration `envconfig:"QR_TIMEOUT" default:"120s"`
	AuthTimeout    time.Duration `envconfig:"AUTH_TIMEOUT" default:"200s"`
	ExecutablePath string        `envconfig:"CHROME_PATH" default:"/usr/bin/google-chrome"`
	Headless       bool          `envconfig:"HEADLESS" default:"true"`
}

// SessionsConfig holds on-disk layout and process reaping settings.
type SessionsConfig struct {
	Root          string        `envconfig:"SESSIONS_ROOT" default:"./sessions"`
	TempDir       string        `envconfig:"MEDIA_TEMP_DIR" default:"./temp"`
	TempMaxAge    time.Duration `envconfig:"MEDIA_TEMP_MAX_AGE" default:"1h"`
	ProcessMarker string        `envconfig:"PROCESS_MARKER" default:"chrome"`
	NotifyTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CreationTimeout bounds a single session creation.
func (e EngineConfig) CreationTimeout() time.Duration {
	return e.QRTimeout + e.AuthTimeout
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			BaseURL: "https://api.cloudinary.com/v1_1",
			Folder:  "whatsapp_images",
		},
		Engine: EngineConfig{
			URL:            "http://127.0.0.1:8002",
			QRTimeout:      120 * time.Second,
			AuthTimeout:    200 * time.Second,
			ExecutablePath: "/usr/bin/google-chrome",
			Headless:       true,
		},
		Sessions: SessionsConfig{
			Root:          "./sessions",
			TempDir:       "./temp",
			TempMaxAge:    time.Hour,
			ProcessMarker: "chrome",
			NotifyTimeout: 30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
