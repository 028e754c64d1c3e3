package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/SessionRelay/backend/internal/api/http"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/api/middleware"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/api/ws"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/media"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/process"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/session"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/providers/backend"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/providers/engine"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/providers/storage"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/shared/paths"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

const (
	readHeaderTimeout = 10 * time.Second
	fetchTimeout      = time.Minute
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	manager *session.Manager
	hub     *ws.Hub
	stream  *engine.Stream
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics

	streamCancel context.CancelFunc
	streamDone   chan struct{}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.MustNew(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing Session Relay",
		zap.String("port", cfg.Server.Port),
		zap.String("engine_url", cfg.Engine.URL),
		zap.String("backend_url", cfg.Backend.BaseURL),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("session-relay", logger.Component("tracing"))

	layout, err := paths.NewLayout(cfg.Sessions.Root, cfg.Sessions.TempDir)
	if err != nil {
		return nil, fmt.Errorf("resolve layout: %w", err)
	}
	if n, err := media.SweepTemp(layout.TempDir, cfg.Sessions.TempMaxAge); err != nil {
		logger.Warn("Temp sweep failed", zap.String("dir", layout.TempDir), zap.Error(err))
	} else if n > 0 {
		logger.Info("Removed stale temp files", zap.Int("count", n))
	}

	// Outbound collaborators
	notifier := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger.Component("backend"))
	uploader := storage.New(storage.Config{
		BaseURL:   cfg.Storage.BaseURL,
		CloudName: cfg.Storage.CloudName,
		APIKey:    cfg.Storage.APIKey,
		APISecret: cfg.Storage.APISecret,
	}, logger.Component("storage"))
	if cfg.Storage.CloudName == "" {
		logger.Warn("Storage credentials missing, group image relay will fail")
	}

	eng := engine.New(engine.Config{
		BaseURL:         cfg.Engine.URL,
		CreationTimeout: cfg.Engine.CreationTimeout(),
	}, logger.Component("engine"))

	hub := ws.NewHub(logger.Component("push"), metrics)
	registry := session.NewRegistry()

	relay := media.NewRelay(
		media.Config{TempDir: layout.TempDir, Folder: cfg.Storage.Folder},
		registry,
		engine.NewFetcher(fetchTimeout),
		uploader,
		notifier,
		logger.Component("relay"),
	).WithMetrics(metrics).WithPublisher(hub)

	reaper := process.NewReaper(cfg.Sessions.ProcessMarker, logger.Component("reaper"),
		process.WithMetrics(metrics))

	manager := session.NewManager(session.Config{
		QRTimeout:      cfg.Engine.QRTimeout,
		AuthTimeout:    cfg.Engine.AuthTimeout,
		NotifyTimeout:  cfg.Sessions.NotifyTimeout,
		Headless:       cfg.Engine.Headless,
		ExecutablePath: cfg.Engine.ExecutablePath,
	}, session.Dependencies{
		Engine:   eng,
		Reaper:   reaper,
		Notifier: notifier,
		Relay:    relay,
		Registry: registry,
		Layout:   layout,
	}, logger.Component("session")).
		WithMetrics(metrics).
		WithPublisher(hub)

	stream, err := engine.NewStream(cfg.Engine.URL, eng, manager, logger.Component("stream"))
	if err != nil {
		return nil, fmt.Errorf("engine stream: %w", err)
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	router.Use(middleware.CORS(corsCfg))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := api.NewHandlers(manager, metrics, logger.Component("http"), Version)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/stream", hub.Handler(manager))
	handlers.Register(router)

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		manager: manager,
		hub:     hub,
		stream:  stream,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run follows the engine event stream and serves HTTP until Close.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.streamCancel = cancel
	s.streamDone = make(chan struct{})
	go func() {
		defer close(s.streamDone)
		if err := s.stream.Run(ctx); err != nil {
			s.logger.Error("Engine stream stopped", zap.Error(err))
		}
	}()

	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.hub.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	if s.streamCancel != nil {
		s.streamCancel()
		<-s.streamDone
	}

	if err := s.manager.Shutdown(ctx); err != nil {
		s.logger.Error("Session shutdown incomplete", zap.Error(err))
		errs = append(errs, fmt.Errorf("session shutdown: %w", err))
	}

	s.tracer.Close()

	// Sync logger before exit
	s.logger.Sync()

	return errors.Join(errs...)
}
