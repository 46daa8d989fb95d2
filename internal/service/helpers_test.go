package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/immxrtalbeast/chat_relay/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.NewIdentity(1, "Alice", "alice@example.com")
	bob   = domain.NewIdentity(2, "Bob", "bob@example.com")
	carol = domain.NewIdentity(3, "Carol", "carol@example.com")
)

const (
	publicRoom  uint = 1
	privateRoom uint = 5
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore seeds public room 1 and private room 5 owned by alice.
func newTestStore(t *testing.T) *repository.InMemoryStore {
	t.Helper()

	store := repository.NewInMemoryStore()
	for _, id := range []domain.Identity{alice, bob, carol} {
		store.AddUser(&domain.User{ID: id.ID, Name: id.Name, Email: id.Email})
	}
	owner := alice.ID
	store.AddRoom(&domain.Room{ID: publicRoom, Name: "General"})
	store.AddRoom(&domain.Room{ID: privateRoom, Name: "Private", CreatedBy: &owner})
	require.NoError(t, store.Add(context.Background(), privateRoom, alice.ID, domain.RoleAdmin))
	return store
}

func newTestRelay(t *testing.T) (*RelayService, *repository.InMemoryStore) {
	t.Helper()
	store := newTestStore(t)
	relay := NewRelayService(store, store, store, discardLogger(), RelayOptions{SendBuffer: 64})
	return relay, store
}

type received struct {
	Event domain.EventName `json:"event"`
	Data  json.RawMessage  `json:"data"`
}

// drain returns every frame currently queued on conn.
func drain(t *testing.T, conn *domain.Connection) []received {
	t.Helper()

	var frames []received
	for {
		select {
		case raw := <-conn.Outbound():
			var f received
			require.NoError(t, json.Unmarshal(raw, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

// connectAndJoin opens a connection, joins the rooms and discards the greeting frames.
func connectAndJoin(t *testing.T, relay *RelayService, identity domain.Identity, rooms ...uint) *domain.Connection {
	t.Helper()

	conn := relay.Connect(context.Background(), identity)
	for _, roomID := range rooms {
		require.NoError(t, relay.Join(context.Background(), conn, roomID))
	}
	drain(t, conn)
	return conn
}

func eventsOf(frames []received) []domain.EventName {
	names := make([]domain.EventName, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

func decodeData[T any](t *testing.T, f received) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}

func assertRelayError(t *testing.T, err error, kind error, message string) {
	t.Helper()

	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, message, relayErr.Message)
	assert.Equal(t, message, ClientMessage(err))
}
