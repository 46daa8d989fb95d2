package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Connection is one authenticated client socket as seen by the relay.
// Outbound frames are queued in order; a full queue terminates the connection
// instead of dropping or reordering frames.
type Connection struct {
	ID          string
	Identity    Identity
	ConnectedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(identity Identity, buffer int) *Connection {
	if buffer <= 0 {
		buffer = 1
	}
	now := time.Now().UTC()
	return &Connection{
		ID:          uuid.New().String(),
		Identity:    identity,
		ConnectedAt: now,
		lastSeen:    now,
		send:        make(chan []byte, buffer),
		done:        make(chan struct{}),
	}
}

// Enqueue queues a frame for the write pump. It returns false if the
// connection is closed or was closed because its queue overflowed.
func (c *Connection) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		c.Close()
		return false
	}
}

func (c *Connection) Outbound() <-chan []byte {
	return c.send
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Connection) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Connection) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = time.Now().UTC()
}

func (c *Connection) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}
