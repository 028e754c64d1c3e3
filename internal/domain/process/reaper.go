package process

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/monitoring"
)

// Info describes one live process.
type Info struct {
	PID     int
	CmdLine string
}

// Table lists live processes.
type Table interface {
	Processes() ([]Info, error)
}

// KillFunc sends a forced termination to pid.
type KillFunc func(pid int) error

// Reaper maps session ids to the pid of their backing client process and
// terminates those processes on demand.
type Reaper struct {
	mu     sync.Mutex
	pids   map[string]int
	marker string
	self   int
	table  Table
	kill   KillFunc
	logger *zap.Logger

	metrics *monitoring.Metrics
}

// Option customises a Reaper.
type Option func(*Reaper)

// WithTable replaces the process table used for fallback lookups.
func WithTable(t Table) Option {
	return func(r *Reaper) { r.table = t }
}

// WithKill replaces the signal sender.
func WithKill(k KillFunc) Option {
	return func(r *Reaper) { r.kill = k }
}

// WithMetrics adds metrics tracking.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Reaper) { r.metrics = m }
}

// NewReaper creates a reaper that recognises client processes by marker
// in their command line (case-insensitive).
func NewReaper(marker string, logger *zap.Logger, opts ...Option) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reaper{
		pids:   make(map[string]int),
		marker: strings.ToLower(marker),
		self:   os.Getpid(),
		table:  NewProcTable(),
		kill:   sigkill,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save records the pid for a session, replacing any previous one.
func (r *Reaper) Save(sessionID string, pid int) {
	if pid <= 0 {
		return
	}
	r.mu.Lock()
	r.pids[sessionID] = pid
	r.mu.Unlock()
}

// Forget drops the record without signalling anything.
func (r *Reaper) Forget(sessionID string) {
	r.mu.Lock()
	delete(r.pids, sessionID)
	r.mu.Unlock()
}

// Find returns the cached pid, or scans the process table for the first
// process whose command line mentions both the session id and the marker.
func (r *Reaper) Find(sessionID string) (int, bool) {
	r.mu.Lock()
	pid, ok := r.pids[sessionID]
	r.mu.Unlock()
	if ok {
		return pid, true
	}

	procs, err := r.table.Processes()
	if err != nil {
		r.logger.Warn("process table scan failed", zap.String("session_id", sessionID), zap.Error(err))
		return 0, false
	}

	for _, p := range procs {
		if p.PID == r.self {
			continue
		}
		cmd := strings.ToLower(p.CmdLine)
		if strings.Contains(p.CmdLine, sessionID) && strings.Contains(cmd, r.marker) {
			return p.PID, true
		}
	}
	return 0, false
}

// Kill force-terminates the recorded process. It returns false when no
// pid is recorded or the signal fails. The record is dropped either way.
func (r *Reaper) Kill(sessionID string) bool {
	r.mu.Lock()
	pid, ok := r.pids[sessionID]
	delete(r.pids, sessionID)
	r.mu.Unlock()

	log := r.logger.With(zap.String("session_id", sessionID))
	if !ok {
		log.Warn("no client pid recorded for session")
		r.metrics.RecordReap(false)
		return false
	}

	if err := r.kill(pid); err != nil {
		log.Error("failed to kill client process", zap.Int("pid", pid), zap.Error(err))
		r.metrics.RecordReap(false)
		return false
	}

	log.Info("client process killed", zap.Int("pid", pid))
	r.metrics.RecordReap(true)
	return true
}

// Len returns the number of recorded pids.
func (r *Reaper) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pids)
}

func sigkill(pid int) error {
	if err := unix.Kill(pid, unix.SIGKILL); err != nil {
		return fmt.Errorf("kill -9 %d: %w", pid, err)
	}
	return nil
}
