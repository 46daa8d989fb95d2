package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnection_EnqueueKeepsOrder(t *testing.T) {
	conn := NewConnection(NewIdentity(1, "", "a@example.com"), 4)
	assert.Equal(t, "a@example.com", conn.Identity.Name)
	assert.NotEmpty(t, conn.ID)

	for _, frame := range []string{"1", "2", "3"} {
		assert.True(t, conn.Enqueue([]byte(frame)))
	}
	for _, want := range []string{"1", "2", "3"} {
		assert.Equal(t, want, string(<-conn.Outbound()))
	}
}

func TestConnection_OverflowCloses(t *testing.T) {
	conn := NewConnection(NewIdentity(1, "A", "a@example.com"), 2)

	assert.True(t, conn.Enqueue([]byte("1")))
	assert.True(t, conn.Enqueue([]byte("2")))
	assert.False(t, conn.Enqueue([]byte("3")))
	assert.True(t, conn.Closed())

	// nothing is accepted after close, even with room in the queue
	<-conn.Outbound()
	assert.False(t, conn.Enqueue([]byte("4")))
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	conn := NewConnection(NewIdentity(1, "A", "a@example.com"), 0)

	conn.Close()
	conn.Close()

	assert.True(t, conn.Closed())
	select {
	case <-conn.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestConnection_Touch(t *testing.T) {
	conn := NewConnection(NewIdentity(1, "A", "a@example.com"), 1)
	before := conn.LastSeen()
	conn.Touch()
	assert.False(t, conn.LastSeen().Before(before))
}
