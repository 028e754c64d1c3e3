package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/media"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/shared/paths"
)

const (
	// DetailCancelled is returned by a graceful cancel.
	DetailCancelled = "Session cancelled successfully."
	// DetailForceCancelled is returned when cancel fell back to local cleanup.
	DetailForceCancelled = "Session force-cancelled during startup."

	defaultNotifyTimeout = 30 * time.Second
	killTimeout          = 10 * time.Second
)

// Config holds engine and notification settings.
type Config struct {
	QRTimeout      time.Duration
	AuthTimeout    time.Duration
	NotifyTimeout  time.Duration
	Headless       bool
	ExecutablePath string
}

// CreationTimeout bounds one client creation.
func (c Config) CreationTimeout() time.Duration {
	return c.QRTimeout + c.AuthTimeout
}

// Dependencies are the collaborators a Manager drives.
type Dependencies struct {
	Engine   Engine
	Reaper   Reaper
	Notifier Notifier
	Relay    MessageHandler
	Registry *Registry
	Layout   paths.Layout
}

// Manager owns the session lifecycle: single-flight creation, state
// tracking, cancellation and event dispatch.
type Manager struct {
	cfg      Config
	engine   Engine
	reaper   Reaper
	notifier Notifier
	relay    MessageHandler
	registry *Registry
	layout   paths.Layout
	push     Publisher
	metrics  *monitoring.Metrics
	logger   *zap.Logger

	handlers map[EventKind]handler
	wg       sync.WaitGroup
}

// NewManager creates a session manager.
func NewManager(cfg Config, deps Dependencies, logger *zap.Logger) *Manager {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		cfg:      cfg,
		engine:   deps.Engine,
		reaper:   deps.Reaper,
		notifier: deps.Notifier,
		relay:    deps.Relay,
		registry: deps.Registry,
		layout:   deps.Layout,
		logger:   logger,
	}
	m.handlers = m.buildHandlers()
	return m
}

// WithMetrics adds metrics tracking
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithPublisher mirrors lifecycle events onto the push channel
func (m *Manager) WithPublisher(p Publisher) *Manager {
	m.push = p
	return m
}

// Registry exposes the session registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Start returns once the session for id is ready. Concurrent callers share
// one creation. An already connected session returns "" without creating
// anything. The returned string is the last QR code emitted while creating.
func (m *Manager) Start(ctx context.Context, id string, forceReset bool) (string, error) {
	log := logging.Session(m.logger, id)

	if forceReset {
		if err := m.layout.RemoveSessionDir(id); err != nil {
			log.Debug("failed to remove session dir", zap.Error(err))
		}
		if old, ok := m.registry.Remove(id); ok {
			m.reaper.Forget(id)
			m.dispose(id, old)
		}
	}

	for {
		e, created := m.registry.Acquire(id)
		if created {
			go m.create(tracing.Detach(ctx), id, e)
			return m.await(ctx, e)
		}

		if !e.Ready() {
			log.Debug("joining in-flight session creation")
			return m.await(ctx, e)
		}

		if e.Err() == nil {
			state, err := e.Client().ConnectionState(ctx)
			if err == nil && state == StateConnected {
				e.setState(state)
				log.Info("session already connected")
				return "", nil
			}
		}

		fresh, ok := m.registry.Swap(id, e)
		if !ok {
			continue
		}
		m.dispose(id, e)
		go m.create(tracing.Detach(ctx), id, fresh)
		return m.await(ctx, fresh)
	}
}

func (m *Manager) await(ctx context.Context, e *Entry) (string, error) {
	select {
	case <-e.Done():
		if err := e.Err(); err != nil {
			return "", err
		}
		return e.QR(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// create runs one engine creation for e. parent carries only trace ids,
// so an abandoned request does not cancel a shared creation.
func (m *Manager) create(parent context.Context, id string, e *Entry) {
	log := logging.Session(m.logger, id)
	timer := monitoring.NewTimer(m.metrics)

	ctx, cancel := context.WithTimeout(parent, m.cfg.CreationTimeout())
	defer cancel()

	m.metrics.SetSessionsActive(m.registry.Len())
	log.Info("creating session client")

	client, err := m.newClient(ctx, id)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
			err = fmt.Errorf("%w after %s: %v", ErrCreationTimeout, m.cfg.CreationTimeout(), err)
		}
		m.registry.RemoveIf(id, e)
		e.finish(nil, err)

		timer.Creation(outcome)
		m.metrics.SetSessionsActive(m.registry.Len())
		log.Error("session creation failed", zap.Error(err))
		return
	}

	if !m.registry.Owns(id, e) {
		e.finish(client, nil)
		timer.Creation("abandoned")
		log.Warn("session removed while creating, disposing client")
		m.killClient(id, client)
		return
	}

	pid := client.PID()
	if pid <= 0 {
		pid, _ = m.reaper.Find(id)
	}
	if pid > 0 {
		m.reaper.Save(id, pid)
	} else {
		log.Warn("backing process not found")
	}

	client.OnStateChanged(func(s State) {
		m.Dispatch(StateChangedEvent{SessionID: id, State: s})
	})
	client.OnMessage(func(msg media.Message) {
		m.Dispatch(MessageEvent{SessionID: id, Message: msg})
	})

	e.setState(StateConnected)
	e.finish(client, nil)

	elapsed := timer.Creation("created")
	m.metrics.SetSessionsActive(m.registry.Len())
	log.Info("session client ready", zap.Int("pid", pid), zap.Duration("elapsed", elapsed))
}

func (m *Manager) newClient(ctx context.Context, id string) (Client, error) {
	dir, err := m.layout.EnsureSessionDir(id)
	if err != nil {
		return nil, err
	}
	client, err := m.engine.Create(ctx, Options{
		SessionID:      id,
		DataPath:       dir,
		QRTimeout:      m.cfg.QRTimeout,
		AuthTimeout:    m.cfg.AuthTimeout,
		Headless:       m.cfg.Headless,
		ExecutablePath: m.cfg.ExecutablePath,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// dispose kills the client of an entry that was dropped from the registry.
// Pending entries dispose their own client when creation finishes.
func (m *Manager) dispose(id string, e *Entry) {
	if !e.Ready() || e.Err() != nil {
		return
	}
	m.killClient(id, e.Client())
}

func (m *Manager) killClient(id string, client Client) {
	m.detach(id, killTimeout, func(ctx context.Context) error {
		if err := client.Kill(ctx); err != nil {
			return fmt.Errorf("kill stale client: %w", err)
		}
		return nil
	})
}

// State returns the live state of a session, or StateNotFound when there
// is no session or the state cannot be read. It never fails.
func (m *Manager) State(ctx context.Context, id string) State {
	e, ok := m.registry.Get(id)
	if !ok {
		return StateNotFound
	}
	if !e.Ready() {
		return e.State()
	}
	if e.Err() != nil {
		return StateNotFound
	}

	state, err := e.Client().ConnectionState(ctx)
	if err != nil {
		logging.Session(m.logger, id).Debug("state query failed", zap.Error(err))
		return StateNotFound
	}
	e.setState(state)
	return state
}

// Status is State with StateNotFound reported as DISCONNECTED.
func (m *Manager) Status(ctx context.Context, id string) string {
	state := m.State(ctx, id)
	if state == StateNotFound {
		return StateDisconnected.String()
	}
	return state.String()
}

// ListGroups returns the group chats visible to the session in engine
// order.
func (m *Manager) ListGroups(ctx context.Context, id string) ([]Group, error) {
	e, ok := m.registry.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if _, err := m.await(ctx, e); err != nil {
		return nil, err
	}

	chats, err := e.Client().Chats(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	groups := make([]Group, 0, len(chats))
	for _, c := range chats {
		if c.IsGroup {
			groups = append(groups, Group{Name: c.Name, ID: c.ID, Icon: c.Icon})
		}
	}
	return groups, nil
}

// RegisterGroups replaces the relay allow-list for a session.
func (m *Manager) RegisterGroups(id string, groupIDs []string) {
	m.registry.SetGroups(id, groupIDs)
	logging.Session(m.logger, id).Info("registered group hooks", zap.Int("groups", len(groupIDs)))
}

// Cancel tears a session down. Live sessions (CONNECTED, SYNCING) are
// refused with a StateError. Any failure along the way falls back to local
// cleanup and a forced process kill, which still reports success.
func (m *Manager) Cancel(ctx context.Context, id string) (string, error) {
	e, ok := m.registry.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	log := logging.Session(m.logger, id)

	if _, err := m.await(ctx, e); err != nil {
		log.Warn("session not ready, forcing cancel", zap.Error(err))
		return m.forceCancel(id, e), nil
	}

	client := e.Client()
	state, err := client.ConnectionState(ctx)
	if err != nil {
		log.Warn("state query failed, forcing cancel", zap.Error(err))
		return m.forceCancel(id, e), nil
	}
	e.setState(state)
	if state.Active() {
		return "", &StateError{State: state}
	}

	if err := client.Logout(ctx); err != nil {
		log.Warn("logout failed, forcing cancel", zap.Error(err))
		return m.forceCancel(id, e), nil
	}
	if err := client.Kill(ctx); err != nil {
		log.Warn("kill failed, forcing cancel", zap.Error(err))
		return m.forceCancel(id, e), nil
	}

	m.registry.RemoveIf(id, e)
	m.registry.ClearGroups(id)
	m.reaper.Forget(id)

	m.metrics.RecordCancel("graceful")
	m.metrics.SetSessionsActive(m.registry.Len())
	log.Info("session cancelled")
	return DetailCancelled, nil
}

func (m *Manager) forceCancel(id string, e *Entry) string {
	m.registry.RemoveIf(id, e)
	m.registry.ClearGroups(id)
	m.reaper.Kill(id)

	m.metrics.RecordCancel("forced")
	m.metrics.SetSessionsActive(m.registry.Len())
	logging.Session(m.logger, id).Info("session force-cancelled")
	return DetailForceCancelled
}

// Stats counts sessions by cached state.
func (m *Manager) Stats() map[State]int {
	stats := make(map[State]int)
	for _, id := range m.registry.IDs() {
		if e, ok := m.registry.Get(id); ok {
			stats[e.State()]++
		}
	}
	return stats
}

// Shutdown kills every client and its backing process, then drains
// background tasks. Pending creations dispose their client on completion.
func (m *Manager) Shutdown(ctx context.Context) error {
	entries := m.registry.Drain()
	m.logger.Info("shutting down sessions", zap.Int("count", len(entries)))

	g, gctx := errgroup.WithContext(ctx)
	for id, e := range entries {
		id, e := id, e
		g.Go(func() error {
			if e.Ready() && e.Err() == nil {
				if err := e.Client().Kill(gctx); err != nil {
					logging.Session(m.logger, id).Warn("client kill failed", zap.Error(err))
				}
			}
			m.reaper.Kill(id)
			m.registry.ClearGroups(id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.metrics.SetSessionsActive(0)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
