// Package id provides ULID generation for request, span, connection and
// temp-file identifiers.
//
// ULIDs sort by creation time, so temp files and log lines order naturally.
// Prefixes keep the different identifier kinds apart in logs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies an inbound command or trace
type RequestID string

// SpanID identifies one traced operation
type SpanID string

// MediaID names one decrypted media artifact on disk
type MediaID string

const (
	RequestPrefix = "req"
	SpanPrefix    = "span"
	MediaPrefix   = "media"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy io.Reader
	mu      sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator reading from crypto/rand with
// monotonic ordering inside the same millisecond
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewMediaID generates a name for a decrypted media file
func NewMediaID() MediaID {
	return MediaID(Default().GenerateWithPrefix(MediaPrefix))
}

// FileName joins the media id with a file extension. The extension may
// be given with or without its leading dot.
func (m MediaID) FileName(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return string(m)
	}
	return string(m) + "." + ext
}

func (id RequestID) String() string { return string(id) }
func (id SpanID) String() string    { return string(id) }
func (id MediaID) String() string   { return string(id) }

// IsValid checks if an ID string is a valid ULID, with or without prefix
func IsValid(id string) bool {
	if _, rest, ok := strings.Cut(id, "_"); ok {
		id = rest
	}
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the creation time from a ULID, with or without prefix
func Timestamp(id string) (time.Time, error) {
	if _, rest, ok := strings.Cut(id, "_"); ok {
		id = rest
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
