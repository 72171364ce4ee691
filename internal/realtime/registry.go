package realtime

import (
	"sync"
)

// Conn is the narrow view of a live connection that the registry and the
// dispatch fan-out need. socketio.Conn satisfies it; tests use fakes.
type Conn interface {
	ID() string
	Emit(event string, v ...interface{})
}

// Registry is the process-wide index of which live connections belong to
// which authenticated owner. One owner may hold many simultaneous
// connections (one per device/session). Constructed at startup and passed
// by handle to every component that needs it; never a package global.
//
// All mutations are serialized behind one RWMutex, so two simultaneous
// connects/disconnects for the same owner cannot interleave a
// read-then-write on the same set.
type Registry struct {
	mu      sync.RWMutex
	byOwner map[uint64]map[string]Conn // owner -> conn id -> conn
	byConn  map[string]uint64          // conn id -> owner
}

func NewRegistry() *Registry {
	return &Registry{
		byOwner: make(map[uint64]map[string]Conn),
		byConn:  make(map[string]uint64),
	}
}

// Add registers a connection under an owner. Returns true when this is the
// owner's first live connection (the owner just came online).
func (r *Registry) Add(ownerID uint64, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.byOwner[ownerID]
	first := len(conns) == 0
	if conns == nil {
		conns = make(map[string]Conn)
		r.byOwner[ownerID] = conns
	}
	conns[c.ID()] = c
	r.byConn[c.ID()] = ownerID
	return first
}

// Remove deregisters a connection. Returns the owning identity and whether
// that was the owner's last handle (the owner just went offline). Removing
// an unknown handle is a no-op.
func (r *Registry) Remove(connID string) (ownerID uint64, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ownerID, ok = r.byConn[connID]
	if !ok {
		return 0, false, false
	}
	delete(r.byConn, connID)

	if conns := r.byOwner[ownerID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byOwner, ownerID)
			last = true
		}
	}
	return ownerID, last, true
}

// Connections snapshots an owner's live connections. Safe to range over
// without holding the registry lock.
func (r *Registry) Connections(ownerID uint64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byOwner[ownerID]
	if len(conns) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// Owner resolves a connection handle back to its authenticated identity.
func (r *Registry) Owner(connID string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ownerID, ok := r.byConn[connID]
	return ownerID, ok
}

// Online reports whether the owner has at least one live connection.
func (r *Registry) Online(ownerID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byOwner[ownerID]) > 0
}

// Count returns the number of live connections across all owners.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
