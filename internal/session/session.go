package session

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/collabix/server/internal/protocol"
	"github.com/collabix/server/internal/store"
)

// ErrFileExists is returned when a file name is already taken in a room.
var ErrFileExists = errors.New("file name already exists in room")

const loadTimeout = 5 * time.Second

// Queue accepts durable write-back operations without blocking.
// Implemented by persist.Writer.
type Queue interface {
	AppendFile(roomID string, node protocol.FileNode)
	RemoveFile(roomID, name string)
	SetFileContent(roomID, name, content string)
}

// Coordinator owns all transient room state: membership, host privilege and
// the file-tree cache. Every mutation of a room runs under that room's mutex;
// durable-store access never does.
type Coordinator struct {
	mu        sync.RWMutex
	rooms     map[string]*roomSession
	connRooms map[string]map[string]bool

	identity *IdentityTable
	store    store.Store
	writer   Queue
}

// Transient per-room state, rebuilt lazily from the durable store
type roomSession struct {
	id string

	mu      sync.Mutex
	members map[string]*member
	nextSeq uint64
	hostID  string
	files   map[string]protocol.FileNode
	loaded  bool
	dropped bool
}

type member struct {
	conn Conn
	name string
	seq  uint64
}

func New(s store.Store, writer Queue) *Coordinator {
	return &Coordinator{
		rooms:     make(map[string]*roomSession),
		connRooms: make(map[string]map[string]bool),
		identity:  NewIdentityTable(),
		store:     s,
		writer:    writer,
	}
}

func (c *Coordinator) Identity() *IdentityTable {
	return c.identity
}

// Join binds the connection's identity, adds it to the room (creating the
// session and, lazily, the durable room) and elects a host if the room has
// none. The first joiner of an empty room always becomes host; concurrent
// first joins are serialized by the room mutex so exactly one wins.
func (c *Coordinator) Join(conn Conn, roomID, username string) {
	c.identity.Bind(conn, username)
	c.trackMembership(conn.ID(), roomID)

	for {
		rs := c.roomSession(roomID)

		// Load the file cache from the durable store before taking the
		// room lock; the store may be slow or down.
		var files []protocol.FileNode
		rs.mu.Lock()
		loaded := rs.loaded
		rs.mu.Unlock()
		if !loaded {
			files = c.loadFiles(roomID)
		}

		rs.mu.Lock()
		if rs.dropped {
			// Lost a race with the last member leaving; the registry no
			// longer knows this session. Start over.
			rs.mu.Unlock()
			continue
		}

		if !rs.loaded {
			rs.files = make(map[string]protocol.FileNode, len(files))
			for _, f := range files {
				rs.files[f.Name] = f
			}
			rs.loaded = true
		}

		rs.members[conn.ID()] = &member{conn: conn, name: username, seq: rs.nextSeq}
		rs.nextSeq++

		if rs.hostID == "" {
			rs.hostID = conn.ID()
		}

		clients := rs.clientListLocked()
		snapshot := make(map[string]protocol.FileNode, len(rs.files))
		for name, f := range rs.files {
			snapshot[name] = f
		}
		hostID := rs.hostID

		c.toRoomLocked(rs, protocol.EventUserJoined, protocol.UserJoined{
			SocketID: conn.ID(),
			Username: username,
		})
		conn.Send(protocol.EventJoined, protocol.Joined{
			Clients:  clients,
			Username: username,
			RoomID:   roomID,
			Files:    snapshot,
			HostID:   hostID,
		})
		c.toRoomLocked(rs, protocol.EventUpdateHost, protocol.UpdateHost{HostID: hostID})
		rs.mu.Unlock()

		log.Printf("%s joined room %s (host: %s)", username, roomID, hostID)
		return
	}
}

// Disconnect tears the connection down: membership removal, host failover and
// departure broadcasts for every room it belonged to, then identity removal.
// Idempotent against duplicate disconnect notifications.
func (c *Coordinator) Disconnect(conn Conn) {
	connID := conn.ID()

	c.mu.Lock()
	roomSet, known := c.connRooms[connID]
	delete(c.connRooms, connID)
	c.mu.Unlock()

	if !known {
		return
	}

	roomIDs := make([]string, 0, len(roomSet))
	for id := range roomSet {
		roomIDs = append(roomIDs, id)
	}
	sort.Strings(roomIDs)

	for _, roomID := range roomIDs {
		c.leave(roomID, connID)
	}

	c.identity.Forget(connID)
}

// leave removes the connection from one room's member set and runs host
// failover. Removing an absent member is a no-op.
func (c *Coordinator) leave(roomID, connID string) {
	rs := c.getRoom(roomID)
	if rs == nil {
		return
	}

	rs.mu.Lock()
	m, ok := rs.members[connID]
	if !ok {
		rs.mu.Unlock()
		return
	}
	delete(rs.members, connID)

	c.failoverLocked(rs, connID)
	c.toRoomLocked(rs, protocol.EventUserDisconnected, protocol.UserDisconnected{
		SocketID: connID,
		Username: m.name,
	})
	empty := len(rs.members) == 0
	rs.mu.Unlock()

	if empty {
		c.dropIfEmpty(roomID, rs)
	}
}

// failoverLocked reassigns host privilege after departingID left the member
// set. The longest-tenured remaining member (lowest join sequence) wins;
// with nobody left the host is cleared. Caller holds rs.mu.
func (c *Coordinator) failoverLocked(rs *roomSession, departingID string) {
	if rs.hostID != departingID {
		return
	}

	if len(rs.members) == 0 {
		rs.hostID = ""
		return
	}

	var next *member
	var nextID string
	for id, m := range rs.members {
		if next == nil || m.seq < next.seq {
			next = m
			nextID = id
		}
	}
	rs.hostID = nextID
	c.toRoomLocked(rs, protocol.EventUpdateHost, protocol.UpdateHost{HostID: nextID})
	log.Printf("Host of room %s changed to %s", rs.id, nextID)
}

// Kick ejects targetID from the room. Only the current host may kick; a
// non-host's attempt has zero observable effect.
func (c *Coordinator) Kick(roomID, byID, targetID string) {
	rs := c.getRoom(roomID)
	if rs == nil {
		return
	}

	rs.mu.Lock()
	if rs.hostID != byID {
		rs.mu.Unlock()
		return
	}
	m, ok := rs.members[targetID]
	if !ok {
		rs.mu.Unlock()
		return
	}

	m.conn.Send(protocol.EventKicked, nil)
	delete(rs.members, targetID)

	name := c.identity.Resolve(targetID)
	c.failoverLocked(rs, targetID)
	c.toRoomLocked(rs, protocol.EventUserDisconnected, protocol.UserDisconnected{
		SocketID: targetID,
		Username: name,
	})
	empty := len(rs.members) == 0
	rs.mu.Unlock()

	c.mu.Lock()
	if set, ok := c.connRooms[targetID]; ok {
		delete(set, roomID)
	}
	c.mu.Unlock()

	if empty {
		c.dropIfEmpty(roomID, rs)
	}
}

// IsHost reports whether the connection holds host privilege for the room.
func (c *Coordinator) IsHost(roomID, connID string) bool {
	rs := c.getRoom(roomID)
	if rs == nil {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.hostID == connID
}

// HostID returns the room's current host, or "" when the room has none.
func (c *Coordinator) HostID(roomID string) string {
	rs := c.getRoom(roomID)
	if rs == nil {
		return ""
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.hostID
}

// Members returns the room's connection IDs in join order.
func (c *Coordinator) Members(roomID string) []string {
	rs := c.getRoom(roomID)
	if rs == nil {
		return nil
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ids := make([]string, 0, len(rs.members))
	for _, ci := range rs.clientListLocked() {
		ids = append(ids, ci.SocketID)
	}
	return ids
}

// CurrentFiles returns a snapshot of the room's file cache keyed by name.
func (c *Coordinator) CurrentFiles(roomID string) map[string]protocol.FileNode {
	rs := c.getRoom(roomID)
	if rs == nil {
		return nil
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	snapshot := make(map[string]protocol.FileNode, len(rs.files))
	for name, f := range rs.files {
		snapshot[name] = f
	}
	return snapshot
}

// RoomCount returns the number of rooms with at least one live member.
func (c *Coordinator) RoomCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms)
}

// ClientCount returns the number of tracked connections.
func (c *Coordinator) ClientCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.connRooms)
}

// ActiveRooms maps room ID to live member count.
func (c *Coordinator) ActiveRooms() map[string]int {
	c.mu.RLock()
	rooms := make([]*roomSession, 0, len(c.rooms))
	for _, rs := range c.rooms {
		rooms = append(rooms, rs)
	}
	c.mu.RUnlock()

	active := make(map[string]int, len(rooms))
	for _, rs := range rooms {
		rs.mu.Lock()
		if len(rs.members) > 0 {
			active[rs.id] = len(rs.members)
		}
		rs.mu.Unlock()
	}
	return active
}

// Registry plumbing

func (c *Coordinator) roomSession(roomID string) *roomSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	rs, ok := c.rooms[roomID]
	if !ok {
		rs = &roomSession{
			id:      roomID,
			members: make(map[string]*member),
		}
		c.rooms[roomID] = rs
	}
	return rs
}

func (c *Coordinator) getRoom(roomID string) *roomSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[roomID]
}

func (c *Coordinator) trackMembership(connID, roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.connRooms[connID]
	if !ok {
		set = make(map[string]bool)
		c.connRooms[connID] = set
	}
	set[roomID] = true
}

// dropIfEmpty discards the transient session once its member set is empty.
// The durable room is untouched; the cache is rebuilt on the next join.
func (c *Coordinator) dropIfEmpty(roomID string, rs *roomSession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if len(rs.members) == 0 && c.rooms[roomID] == rs {
		rs.dropped = true
		delete(c.rooms, roomID)
		log.Printf("Room %s closed (empty)", roomID)
	}
}

// clientListLocked returns members ordered by join sequence. Caller holds rs.mu.
func (rs *roomSession) clientListLocked() []protocol.ClientInfo {
	type entry struct {
		id string
		m  *member
	}
	entries := make([]entry, 0, len(rs.members))
	for id, m := range rs.members {
		entries = append(entries, entry{id, m})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].m.seq < entries[j].m.seq
	})

	clients := make([]protocol.ClientInfo, len(entries))
	for i, e := range entries {
		clients[i] = protocol.ClientInfo{SocketID: e.id, Username: e.m.name}
	}
	return clients
}

// loadFiles reads the room's file tree from the durable store, creating the
// room if it does not exist yet. Failures degrade to an empty tree: live
// collaboration proceeds even when the store is unavailable.
func (c *Coordinator) loadFiles(roomID string) []protocol.FileNode {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		log.Printf("Failed to load room %s: %v", roomID, err)
		return nil
	}
	if room == nil {
		if _, err := c.store.CreateRoom(ctx, roomID); err != nil {
			log.Printf("Failed to create room %s: %v", roomID, err)
		}
		return nil
	}

	files, err := c.store.GetFiles(ctx, roomID)
	if err != nil {
		log.Printf("Failed to load files for room %s: %v", roomID, err)
		return nil
	}
	return files
}
