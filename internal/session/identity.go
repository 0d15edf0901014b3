package session

import "sync"

// DefaultName is resolved for connections that are no longer known,
// e.g. late-arriving events referencing an already-disconnected peer.
const DefaultName = "User"

// IdentityTable maps a live connection to its display name.
type IdentityTable struct {
	mu      sync.RWMutex
	entries map[string]identityEntry
}

type identityEntry struct {
	name string
	conn Conn
}

func NewIdentityTable() *IdentityTable {
	return &IdentityTable{
		entries: make(map[string]identityEntry),
	}
}

// Bind records or overwrites the display name for a connection. Idempotent.
func (t *IdentityTable) Bind(conn Conn, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[conn.ID()] = identityEntry{name: name, conn: conn}
}

// Resolve never fails; absent entries resolve to DefaultName.
func (t *IdentityTable) Resolve(connID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e, ok := t.entries[connID]; ok {
		return e.name
	}
	return DefaultName
}

// Lookup returns the live connection handle, or nil if it is gone.
func (t *IdentityTable) Lookup(connID string) Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e, ok := t.entries[connID]; ok {
		return e.conn
	}
	return nil
}

// Forget removes the entry. Called once per teardown, after all cleanup
// that still needs the name has completed.
func (t *IdentityTable) Forget(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, connID)
}
