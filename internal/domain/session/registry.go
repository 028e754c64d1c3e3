package session

import (
	"sort"
	"sync"
)

// Entry is the shared slot for one session. It starts pending and becomes
// ready once creation finishes. client and err are written once, before
// done is closed, and may be read freely after Done fires.
type Entry struct {
	done   chan struct{}
	client Client
	err    error

	mu    sync.Mutex
	qr    string
	state State
}

func newEntry() *Entry {
	return &Entry{done: make(chan struct{}), state: StateInitializing}
}

// Done is closed when creation has finished.
func (e *Entry) Done() <-chan struct{} { return e.done }

// Ready reports whether creation has finished, successfully or not.
func (e *Entry) Ready() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Client returns the created client. Only valid once Ready.
func (e *Entry) Client() Client { return e.client }

// Err returns the creation error. Only valid once Ready.
func (e *Entry) Err() error { return e.err }

// QR returns the most recent QR code seen during creation.
func (e *Entry) QR() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.qr
}

// State returns the last cached state.
func (e *Entry) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Entry) setQR(qr string) {
	e.mu.Lock()
	e.qr = qr
	e.state = StateQRPending
	e.mu.Unlock()
}

func (e *Entry) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Entry) finish(client Client, err error) {
	e.client = client
	e.err = err
	close(e.done)
}

// Registry holds one entry and one group allow-list per session id.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	groups  map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		groups:  make(map[string]map[string]struct{}),
	}
}

// Acquire returns the entry for id, installing a fresh pending entry when
// none exists. created is true only for the caller that installed it.
func (r *Registry) Acquire(id string) (e *Entry, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		return e, false
	}
	e = newEntry()
	r.entries[id] = e
	return e, true
}

// Swap replaces old with a fresh pending entry if old is still installed.
func (r *Registry) Swap(id string, old *Entry) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[id] != old {
		return nil, false
	}
	e := newEntry()
	r.entries[id] = e
	return e, true
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Owns reports whether e is the installed entry for id.
func (r *Registry) Owns(id string, e *Entry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id] == e
}

// Remove drops the entry for id and returns it.
func (r *Registry) Remove(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	return e, ok
}

// RemoveIf drops the entry for id only if it is still e.
func (r *Registry) RemoveIf(id string, e *Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[id] != e {
		return false
	}
	delete(r.entries, id)
	return true
}

// Drain removes and returns every entry.
func (r *Registry) Drain() map[string]*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.entries
	r.entries = make(map[string]*Entry)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IDs returns the session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
