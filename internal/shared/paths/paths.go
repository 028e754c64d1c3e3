// Package paths resolves the on-disk layout: one working directory per
// session under the sessions root, and a shared temp directory for media
// being relayed.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Layout holds the resolved roots.
type Layout struct {
	SessionsRoot string
	TempDir      string
}

// NewLayout resolves both roots to absolute paths.
func NewLayout(sessionsRoot, tempDir string) (Layout, error) {
	root, err := filepath.Abs(sessionsRoot)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve sessions root: %w", err)
	}
	tmp, err := filepath.Abs(tempDir)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve temp dir: %w", err)
	}
	return Layout{SessionsRoot: root, TempDir: tmp}, nil
}

// SessionDir returns the working directory for a session. Ids that would
// escape the sessions root are rejected.
func (l Layout) SessionDir(sessionID string) (string, error) {
	return within(l.SessionsRoot, sessionID)
}

// EnsureSessionDir creates the session directory if missing.
func (l Layout) EnsureSessionDir(sessionID string) (string, error) {
	dir, err := l.SessionDir(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return dir, nil
}

// RemoveSessionDir deletes all on-disk data for a session.
func (l Layout) RemoveSessionDir(sessionID string) error {
	dir, err := l.SessionDir(sessionID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func within(root, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid path element %q", name)
	}
	return filepath.Join(root, name), nil
}
