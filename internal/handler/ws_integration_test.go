package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"roomsync/internal/app/entity"
	"roomsync/internal/app/room"
	"roomsync/internal/app/store"
	"roomsync/internal/configs"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newTestServer(t *testing.T) (*httptest.Server, string, *room.Room) {
	t.Helper()

	st := store.NewMemory()
	rm, err := room.Restore(context.Background(), st)
	if err != nil {
		t.Fatalf("restore room: %v", err)
	}

	cfg := &configs.AppConfig{Environment: "development", Port: 8080}
	srv := httptest.NewServer(Router(rm, cfg))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return srv, wsURL, rm
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame, err := json.Marshal(envelope{Type: eventType, Payload: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write %s: %v", eventType, err)
	}
}

// readEvent reads frames until one of the wanted type arrives.
func readEvent(t *testing.T, conn *websocket.Conn, eventType string) json.RawMessage {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", eventType, err)
		}
		var env envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame while waiting for %q: %v", eventType, err)
		}
		if env.Type == eventType {
			return env.Payload
		}
	}
	t.Fatalf("expected %q event not received", eventType)
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
}

func TestLoginSayAndLeaveOverWebSocket(t *testing.T) {
	_, wsURL, _ := newTestServer(t)

	// first participant logs in with no prior identity
	connA := dial(t, wsURL)
	writeEvent(t, connA, "login", "")

	var welcomeA struct {
		You     entity.Entity            `json:"you"`
		Members map[string]entity.Entity `json:"members"`
	}
	if err := json.Unmarshal(readEvent(t, connA, "welcome"), &welcomeA); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if welcomeA.You.ID == "" {
		t.Fatal("server minted an empty id")
	}
	if welcomeA.You.Avatar != entity.DefaultAvatar {
		t.Fatalf("avatar = %q, want %q", welcomeA.You.Avatar, entity.DefaultAvatar)
	}
	if _, ok := welcomeA.Members[welcomeA.You.ID]; !ok {
		t.Fatal("welcome members does not include the new member")
	}

	// second participant joins; the first is notified
	connB := dial(t, wsURL)
	writeEvent(t, connB, "login", "")

	var welcomeB struct {
		You entity.Entity `json:"you"`
	}
	if err := json.Unmarshal(readEvent(t, connB, "welcome"), &welcomeB); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if welcomeB.You.ID == welcomeA.You.ID {
		t.Fatal("two sessions resolved to the same identity")
	}

	var joined entity.Entity
	if err := json.Unmarshal(readEvent(t, connA, "join"), &joined); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if joined.ID != welcomeB.You.ID {
		t.Fatalf("join broadcast carries %q, want %q", joined.ID, welcomeB.You.ID)
	}

	// chat from B reaches A with the literal payload
	writeEvent(t, connB, "say", "hello world")

	var heard entity.ChatEvent
	if err := json.Unmarshal(readEvent(t, connA, "hear"), &heard); err != nil {
		t.Fatalf("decode hear: %v", err)
	}
	if heard.Talker != welcomeB.You.ID || heard.Message != "hello world" {
		t.Fatalf("heard %+v", heard)
	}
	if heard.Date == 0 {
		t.Fatal("chat event has no timestamp")
	}

	// movement from B reaches A
	writeEvent(t, connB, "move", map[string]float64{"x": 1, "y": 2, "z": 3})

	var moved entity.Entity
	if err := json.Unmarshal(readEvent(t, connA, "move"), &moved); err != nil {
		t.Fatalf("decode move: %v", err)
	}
	if moved.ID != welcomeB.You.ID || moved.X != 1 || moved.Y != 2 || moved.Z != 3 {
		t.Fatalf("move broadcast = %+v", moved)
	}

	// B disconnects; A sees exactly one departure
	connB.Close()

	var departedID string
	if err := json.Unmarshal(readEvent(t, connA, "leave"), &departedID); err != nil {
		t.Fatalf("decode leave: %v", err)
	}
	if departedID != welcomeB.You.ID {
		t.Fatalf("leave carries %q, want %q", departedID, welcomeB.You.ID)
	}
}

func TestReturningUserKeepsIdentity(t *testing.T) {
	_, wsURL, rm := newTestServer(t)

	conn := dial(t, wsURL)
	writeEvent(t, conn, "login", "")

	var first struct {
		You entity.Entity `json:"you"`
	}
	if err := json.Unmarshal(readEvent(t, conn, "welcome"), &first); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	conn.Close()

	// wait for the departure to unregister the member
	deadline := time.Now().Add(3 * time.Second)
	for rm.Registry().Contains(first.You.ID) {
		if time.Now().After(deadline) {
			t.Fatal("departed member never left the registry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	again := dial(t, wsURL)
	writeEvent(t, again, "login", first.You.ID)

	var second struct {
		You entity.Entity `json:"you"`
	}
	if err := json.Unmarshal(readEvent(t, again, "welcome"), &second); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if second.You != first.You {
		t.Fatalf("returning user resolved to %+v, want %+v", second.You, first.You)
	}
}
