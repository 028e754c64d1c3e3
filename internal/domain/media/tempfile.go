package media

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/shared/id"
)

// SweepTemp removes regular files older than maxAge from dir. Files left
// there by a crashed relay would otherwise accumulate. A missing dir is
// not an error.
func SweepTemp(dir string, maxAge time.Duration) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	cutoff := time.Now().Add(-maxAge)
	var removed atomic.Int64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}
		if os.Remove(path) == nil {
			removed.Add(1)
		}
		return nil
	})

	return int(removed.Load()), err
}

func (r *Relay) writeTemp(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(r.cfg.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create temp dir: %v", ErrIOFailure, err)
	}

	path := filepath.Join(r.cfg.TempDir, id.NewMediaID().FileName(ext))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrIOFailure, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: write temp file: %v", ErrIOFailure, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: close temp file: %v", ErrIOFailure, err)
	}
	return path, nil
}
