package service

import (
	"sync"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
)

// Directory owns the in-memory room subscriber sets.
type Directory struct {
	mu     sync.RWMutex
	conns  map[string]*domain.Connection
	rooms  map[uint]map[string]*domain.Connection
	joined map[string]map[uint]struct{}

	seqMu      sync.Mutex
	sequencers map[uint]*sequencer
}

// sequencer serializes broadcasts to one room. It lives only while some
// broadcast holds a reference to it.
type sequencer struct {
	mu   sync.Mutex
	refs int
}

func NewDirectory() *Directory {
	return &Directory{
		conns:      make(map[string]*domain.Connection),
		rooms:      make(map[uint]map[string]*domain.Connection),
		joined:     make(map[string]map[uint]struct{}),
		sequencers: make(map[uint]*sequencer),
	}
}

// Register makes conn known to the directory. Only registered connections
// can be added to rooms.
func (d *Directory) Register(conn *domain.Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !conn.Closed() {
		d.conns[conn.ID] = conn
	}
}

// Add subscribes conn to the room. It reports false when the connection was
// closed or dropped, so a join racing a disconnect never leaves it subscribed.
func (d *Directory) Add(conn *domain.Connection, roomID uint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.conns[conn.ID]; !ok || conn.Closed() {
		return false
	}

	subs, ok := d.rooms[roomID]
	if !ok {
		subs = make(map[string]*domain.Connection)
		d.rooms[roomID] = subs
	}
	subs[conn.ID] = conn

	rooms, ok := d.joined[conn.ID]
	if !ok {
		rooms = make(map[uint]struct{})
		d.joined[conn.ID] = rooms
	}
	rooms[roomID] = struct{}{}
	return true
}

func (d *Directory) Remove(conn *domain.Connection, roomID uint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeLocked(conn.ID, roomID)
}

// Drop closes conn, unregisters it and removes it from every room. The
// second return is false if the connection had already been dropped.
func (d *Directory) Drop(conn *domain.Connection) ([]uint, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn.Close()
	if _, ok := d.conns[conn.ID]; !ok {
		return nil, false
	}
	delete(d.conns, conn.ID)

	rooms := d.joined[conn.ID]
	result := make([]uint, 0, len(rooms))
	for roomID := range rooms {
		result = append(result, roomID)
	}
	for _, roomID := range result {
		d.removeLocked(conn.ID, roomID)
	}
	delete(d.joined, conn.ID)
	return result, true
}

func (d *Directory) removeLocked(connID string, roomID uint) bool {
	subs, ok := d.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := subs[connID]; !ok {
		return false
	}
	delete(subs, connID)
	if len(subs) == 0 {
		delete(d.rooms, roomID)
	}
	if rooms, ok := d.joined[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(d.joined, connID)
		}
	}
	return true
}

func (d *Directory) IsJoined(connID string, roomID uint) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[roomID][connID]
	return ok
}

// Snapshot copies the subscriber set of a room, leaving out exclude.
func (d *Directory) Snapshot(roomID uint, exclude string) []*domain.Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()

	subs := d.rooms[roomID]
	result := make([]*domain.Connection, 0, len(subs))
	for id, conn := range subs {
		if id == exclude {
			continue
		}
		result = append(result, conn)
	}
	return result
}

func (d *Directory) Count(roomID uint) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms[roomID])
}

// Broadcast enqueues frame on every subscriber of the room except exclude and
// returns how many accepted it. Broadcasts to one room never interleave.
func (d *Directory) Broadcast(roomID uint, frame []byte, exclude string) int {
	seq := d.acquire(roomID)
	defer d.release(roomID, seq)

	delivered := 0
	for _, conn := range d.Snapshot(roomID, exclude) {
		if conn.Enqueue(frame) {
			delivered++
		}
	}
	return delivered
}

func (d *Directory) acquire(roomID uint) *sequencer {
	d.seqMu.Lock()
	seq, ok := d.sequencers[roomID]
	if !ok {
		seq = &sequencer{}
		d.sequencers[roomID] = seq
	}
	seq.refs++
	d.seqMu.Unlock()

	seq.mu.Lock()
	return seq
}

func (d *Directory) release(roomID uint, seq *sequencer) {
	seq.mu.Unlock()

	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	seq.refs--
	if seq.refs == 0 {
		delete(d.sequencers, roomID)
	}
}

// Connections returns every registered connection.
func (d *Directory) Connections() []*domain.Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*domain.Connection, 0, len(d.conns))
	for _, conn := range d.conns {
		result = append(result, conn)
	}
	return result
}
