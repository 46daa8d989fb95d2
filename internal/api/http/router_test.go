package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/immxrtalbeast/chat_relay/internal/repository"
	"github.com/immxrtalbeast/chat_relay/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.NewIdentity(1, "Alice", "alice@example.com")
	bob   = domain.NewIdentity(2, "Bob", "bob@example.com")
)

type testServer struct {
	*httptest.Server
	auth  *service.AuthService
	store *repository.InMemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := repository.NewInMemoryStore()
	for _, id := range []domain.Identity{alice, bob} {
		store.AddUser(&domain.User{ID: id.ID, Name: id.Name, Email: id.Email})
	}
	owner := alice.ID
	store.AddRoom(&domain.Room{ID: 1, Name: "General"})
	store.AddRoom(&domain.Room{ID: 5, Name: "Private", CreatedBy: &owner})
	require.NoError(t, store.Add(context.Background(), 5, alice.ID, domain.RoleAdmin))

	auth := service.NewAuthService("test-secret", "", time.Hour)
	relay := service.NewRelayService(store, store, store, log, service.RelayOptions{SendBuffer: 64})
	rooms := service.NewRoomService(store, store, log)
	recordings := service.NewRecordingService(store, t.TempDir(), log)

	router := SetupRouter(
		RouterConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			STUNServers:    []string{"stun:stun.example.org:3478"},
		},
		auth,
		NewRelayController(relay, auth, log, SocketOptions{}),
		NewRoomController(rooms),
		NewRecordingController(recordings),
		log,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		relay.CloseAll()
		srv.Close()
	})

	return &testServer{Server: srv, auth: auth, store: store}
}

func (s *testServer) token(t *testing.T, identity domain.Identity) string {
	t.Helper()
	token, err := s.auth.IssueToken(identity, 0)
	require.NoError(t, err)
	return token
}

func (s *testServer) dial(t *testing.T, identity domain.Identity) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/socket?token=" + s.token(t, identity)
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { ws.Close() })

	greeting := readFrame(t, ws)
	require.Equal(t, domain.EventConnected, greeting.Event)
	return ws
}

func (s *testServer) do(t *testing.T, method, path string, identity *domain.Identity, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if identity != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *identity))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type frame struct {
	Event domain.EventName `json:"event"`
	Data  json.RawMessage  `json:"data"`
}

func readFrame(t *testing.T, ws *websocket.Conn) frame {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)

	var f frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func send(t *testing.T, ws *websocket.Conn, event domain.EventName, data any) {
	t.Helper()
	raw, err := domain.EncodeFrame(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, raw))
}

func join(t *testing.T, ws *websocket.Conn, roomID uint) {
	t.Helper()
	send(t, ws, domain.EventJoinRoom, map[string]any{"roomId": roomID})
	f := readFrame(t, ws)
	require.Equal(t, domain.EventRoomJoined, f.Event)
}

func decodeJSON[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func TestSocket_RejectsMissingToken(t *testing.T) {
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/socket"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSocket_RejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/socket?token=" + srv.token(t, alice)
	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSocket_MessageRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	a := srv.dial(t, alice)
	b := srv.dial(t, bob)
	join(t, a, 1)
	join(t, b, 1)

	send(t, a, domain.EventSendMessage, map[string]any{"roomId": "1", "content": "hello"})

	for _, ws := range []*websocket.Conn{a, b} {
		f := readFrame(t, ws)
		require.Equal(t, domain.EventNewMessage, f.Event)

		var msg domain.Message
		require.NoError(t, json.Unmarshal(f.Data, &msg))
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, alice.ID, msg.UserID)
		assert.Equal(t, "Alice", msg.SenderName)
		assert.NotZero(t, msg.ID)
	}
	assert.Len(t, srv.store.Messages(1), 1)
}

func TestSocket_ErrorsGoToSenderOnly(t *testing.T) {
	srv := newTestServer(t)

	a := srv.dial(t, alice)
	b := srv.dial(t, bob)
	join(t, a, 1)

	send(t, b, domain.EventJoinRoom, map[string]any{"roomId": 5})
	f := readFrame(t, b)
	require.Equal(t, domain.EventError, f.Event)
	assert.JSONEq(t, `"`+service.MsgNotMember+`"`, string(f.Data))

	require.NoError(t, b.WriteMessage(websocket.TextMessage, []byte(`{"event":"dance","data":{}}`)))
	f = readFrame(t, b)
	require.Equal(t, domain.EventError, f.Event)
	assert.JSONEq(t, `"`+service.MsgUnknownEvent+`"`, string(f.Data))

	require.NoError(t, b.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	f = readFrame(t, b)
	require.Equal(t, domain.EventError, f.Event)
	assert.JSONEq(t, `"`+service.MsgInvalidPayload+`"`, string(f.Data))

	send(t, b, domain.EventTyping, map[string]any{"roomId": 1})
	f = readFrame(t, b)
	require.Equal(t, domain.EventError, f.Event)
	assert.JSONEq(t, `"`+service.MsgNotJoined+`"`, string(f.Data))

	// a sees nothing but its own message.
	send(t, a, domain.EventSendMessage, map[string]any{"roomId": 1, "content": "still here"})
	f = readFrame(t, a)
	assert.Equal(t, domain.EventNewMessage, f.Event)
}

func TestSocket_DisconnectEndsCall(t *testing.T) {
	srv := newTestServer(t)

	a := srv.dial(t, alice)
	b := srv.dial(t, bob)
	join(t, a, 1)
	join(t, b, 1)

	send(t, a, domain.EventCallOffer, map[string]any{
		"roomId": 1,
		"offer":  map[string]any{"type": "offer", "sdp": "v=0"},
		"video":  true,
		"caller": "Alice",
	})
	f := readFrame(t, b)
	require.Equal(t, domain.EventCallOffer, f.Event)

	send(t, b, domain.EventCallAnswer, map[string]any{
		"roomId": 1,
		"answer": map[string]any{"type": "answer", "sdp": "v=0"},
		"caller": "Alice",
	})
	f = readFrame(t, a)
	require.Equal(t, domain.EventCallAnswer, f.Event)

	require.NoError(t, b.Close())

	f = readFrame(t, a)
	assert.Equal(t, domain.EventCallEnd, f.Event)
	assert.Empty(t, f.Data)
}

func TestRooms_JoinAndUnread(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/api/rooms/1/join", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/rooms/1/join", &bob, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/rooms/5/join", &bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/rooms/42/join", &bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = srv.do(t, http.MethodPut, "/api/rooms/5/members", &bob, map[string]any{"userIds": []uint{2}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = srv.do(t, http.MethodPut, "/api/rooms/5/members", &alice, map[string]any{"userIds": []uint{2, 2}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	added := decodeJSON[map[string]any](t, resp.Body)
	assert.EqualValues(t, 1, added["added"])

	_, err := srv.store.CreateWithSender(context.Background(), 5, alice.ID, "welcome")
	require.NoError(t, err)

	resp = srv.do(t, http.MethodGet, "/api/unread", &bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalUnread":1,"roomUnread":[{"id":5,"name":"Private","unread_count":1}]}`, string(body))
}

func TestRecordings_UploadListAndServe(t *testing.T) {
	srv := newTestServer(t)

	payload := []byte("webm bytes")
	resp := srv.do(t, http.MethodPost, "/api/recordings", &alice, map[string]any{
		"roomId":       1,
		"filename":     "call.webm",
		"base64":       base64.StdEncoding.EncodeToString(payload),
		"duration":     12,
		"startedBy":    "Alice",
		"participants": []string{"Alice", "Bob"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[struct {
		Path string `json:"path"`
	}](t, resp.Body)
	require.True(t, strings.HasPrefix(created.Path, "/api/recordings/file/"))
	require.True(t, strings.HasSuffix(created.Path, "-call.webm"))

	resp = srv.do(t, http.MethodGet, "/api/recordings?roomId=1", &alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeJSON[struct {
		Recordings []struct {
			Path         string   `json:"path"`
			DurationSec  int      `json:"duration_sec"`
			Participants []string `json:"participants"`
		} `json:"recordings"`
	}](t, resp.Body)
	require.Len(t, list.Recordings, 1)
	assert.Equal(t, created.Path, list.Recordings[0].Path)
	assert.Equal(t, 12, list.Recordings[0].DurationSec)
	assert.Equal(t, []string{"Alice", "Bob"}, list.Recordings[0].Participants)

	resp = srv.do(t, http.MethodGet, created.Path, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	resp = srv.do(t, http.MethodGet, "/api/recordings/file/missing.webm", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/recordings", &alice, map[string]any{"roomId": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_HealthAndRTCConfig(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/api/rtc-config", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cfg := decodeJSON[struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}](t, resp.Body)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, cfg.ICEServers[0].URLs)
}
