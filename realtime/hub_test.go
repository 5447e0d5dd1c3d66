package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, r.URL.Query().Get("room"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?room=" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForRoom(t *testing.T, hub *Hub, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(room) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room %s has %d clients, want %d", room, hub.RoomSize(room), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_RegistrationsChanged(t *testing.T) {
	hub, srv := newTestHub(t)
	room := TournamentRoom(7)
	conn := dial(t, srv, room)
	other := dial(t, srv, TournamentRoom(8))
	waitForRoom(t, hub, room, 1)
	waitForRoom(t, hub, TournamentRoom(8), 1)

	hub.RegistrationsChanged(7, 3)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg struct {
		Type    string             `json:"type"`
		RoomID  string             `json:"room_id"`
		Payload RegistrationUpdate `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("bad message %s: %v", data, err)
	}
	if msg.Type != MessageRegistrationUpdated || msg.RoomID != room {
		t.Errorf("message = %+v", msg)
	}
	if msg.Payload != (RegistrationUpdate{TournamentID: 7, RegistrationsCount: 3}) {
		t.Errorf("payload = %+v", msg.Payload)
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("client of another tournament must not receive the update")
	}
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub, srv := newTestHub(t)
	room := TournamentRoom(1)
	conn := dial(t, srv, room)
	waitForRoom(t, hub, room, 1)

	conn.Close()
	waitForRoom(t, hub, room, 0)

	// пустая комната не должна паниковать при рассылке
	hub.RegistrationsChanged(1, 0)
}
