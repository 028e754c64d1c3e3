package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/domain/media"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/logging"
)

type handler func(Event)

func (m *Manager) buildHandlers() map[EventKind]handler {
	return map[EventKind]handler{
		EventQR:           m.onQR,
		EventSessionData:  m.onSessionData,
		EventState:        m.onState,
		EventError:        m.onError,
		EventStateChanged: m.onState,
		EventMessage:      m.onMessage,
	}
}

// Dispatch routes a lifecycle event. State bookkeeping happens before it
// returns; backend notifications and media relays run detached.
func (m *Manager) Dispatch(ev Event) {
	h, ok := m.handlers[ev.Kind()]
	if !ok {
		m.logger.Warn("unhandled event kind", zap.String("kind", string(ev.Kind())))
		return
	}
	h(ev)
}

func (m *Manager) onQR(ev Event) {
	e := ev.(QREvent)
	log := logging.Session(m.logger, e.SessionID)

	if entry, ok := m.registry.Get(e.SessionID); ok {
		entry.setQR(e.Code)
	}
	log.Info("qr code received")

	m.publish(e.SessionID, "qr", e.Code)
	m.notify(string(EventQR), e.SessionID, func(ctx context.Context) error {
		return m.notifier.QRReady(ctx, e.SessionID, e.Code)
	})
}

func (m *Manager) onSessionData(ev Event) {
	logging.Session(m.logger, ev.Session()).Debug("session data received")
}

func (m *Manager) onState(ev Event) {
	var (
		id    = ev.Session()
		state State
	)
	switch e := ev.(type) {
	case StateEvent:
		state = e.State
	case StateChangedEvent:
		state = e.State
	}
	log := logging.Session(m.logger, id).With(zap.String("state", state.String()))

	if entry, ok := m.registry.Get(id); ok {
		entry.setState(state)
	}
	m.metrics.RecordStateTransition(state.String())

	if state.Terminal() {
		if _, ok := m.registry.Remove(id); ok {
			m.reaper.Forget(id)
			log.Warn("session removed after terminal state")
			m.metrics.SetSessionsActive(m.registry.Len())
		}
	} else {
		log.Info("session state changed")
	}

	m.publish(id, "status", state.String())
	m.notify(string(ev.Kind()), id, func(ctx context.Context) error {
		return m.notifier.StatusChanged(ctx, id, state.String())
	})
}

func (m *Manager) onError(ev Event) {
	e := ev.(ErrorEvent)
	logging.Session(m.logger, e.SessionID).Error("engine reported error", zap.String("error", e.Message))
	m.publish(e.SessionID, "error", e.Message)
}

func (m *Manager) onMessage(ev Event) {
	e := ev.(MessageEvent)
	if m.relay == nil {
		return
	}
	m.detach(e.SessionID, media.RelayTimeout, func(ctx context.Context) error {
		m.relay.Process(ctx, e.SessionID, e.Message)
		return nil
	})
}

func (m *Manager) publish(sessionID, kind string, data any) {
	if m.push != nil {
		m.push.Publish(sessionID, kind, data)
	}
}

// notify runs a backend call in the background. Failures are logged and
// counted only.
func (m *Manager) notify(kind, sessionID string, fn func(ctx context.Context) error) {
	if m.notifier == nil {
		return
	}
	m.detach(sessionID, m.cfg.NotifyTimeout, func(ctx context.Context) error {
		err := fn(ctx)
		m.metrics.RecordNotification(kind, err)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNotificationFailure, kind, err)
		}
		return nil
	})
}

// detach runs fn on its own goroutine with a fresh timeout. Wait drains
// every task started this way.
func (m *Manager) detach(sessionID string, timeout time.Duration, fn func(ctx context.Context) error) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		log := logging.Session(m.logger, sessionID)
		defer func() {
			if r := recover(); r != nil {
				log.Error("background task panicked", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			log.Warn("background task failed", zap.Error(err))
		}
	}()
}

// Wait blocks until every detached task has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}
