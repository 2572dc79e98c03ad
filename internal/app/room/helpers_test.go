package room

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"roomsync/internal/app/entity"
	"roomsync/internal/app/store"
)

// newTestRoom builds a room over a fresh in-memory store with a fixed clock.
func newTestRoom(t *testing.T) (*Room, *store.Memory) {
	t.Helper()

	st := store.NewMemory()
	rm, err := Restore(context.Background(), st)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	rm.clock = func() int64 { return 123 }
	return rm, st
}

// newTestSession builds a session without a network connection. Tests drive
// it through handleInbound and read delivered frames from the send queue.
func newTestSession(rm *Room) *Session {
	return &Session{
		room:   rm,
		send:   make(chan []byte, 64),
		logger: zerolog.Nop(),
	}
}

// loginFrame builds the wire frame for a login with the given candidate id.
func loginFrame(t *testing.T, candidateID string) []byte {
	t.Helper()

	raw, err := encodeEvent(TypeLogin, candidateID)
	if err != nil {
		t.Fatalf("encode login: %v", err)
	}
	return raw
}

// sayFrame builds the wire frame for a spoken message.
func sayFrame(t *testing.T, message string) []byte {
	t.Helper()

	raw, err := encodeEvent(TypeSay, message)
	if err != nil {
		t.Fatalf("encode say: %v", err)
	}
	return raw
}

// moveFrame builds the wire frame for a position update.
func moveFrame(t *testing.T, x, y, z float64) []byte {
	t.Helper()

	raw, err := encodeEvent(TypeMove, MovePayload{X: x, Y: y, Z: z})
	if err != nil {
		t.Fatalf("encode move: %v", err)
	}
	return raw
}

// login drives a session through authentication and returns the welcome.
func login(t *testing.T, s *Session, candidateID string) WelcomePayload {
	t.Helper()

	s.handleInbound(loginFrame(t, candidateID))

	var welcome WelcomePayload
	decodePayload(t, recvEvent(t, s, TypeWelcome), &welcome)
	return welcome
}

// recvEvent reads frames from the session queue until one of the wanted
// type arrives, skipping others.
func recvEvent(t *testing.T, s *Session, eventType string) json.RawMessage {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-s.send:
			var env Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("delivered frame is not an envelope: %v", err)
			}
			if env.Type == eventType {
				return env.Payload
			}
		case <-deadline:
			t.Fatalf("expected %q event not received", eventType)
		}
	}
}

// countEvents drains the session queue and counts frames of the given type.
func countEvents(t *testing.T, s *Session, eventType string) int {
	t.Helper()

	count := 0
	for {
		select {
		case frame := <-s.send:
			var env Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("delivered frame is not an envelope: %v", err)
			}
			if env.Type == eventType {
				count++
			}
		default:
			return count
		}
	}
}

func decodePayload(t *testing.T, raw json.RawMessage, into any) {
	t.Helper()

	if err := json.Unmarshal(raw, into); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
}

// newSeededStore returns a memory store whose members hash already holds
// the given entities, as if a previous process had registered them.
func newSeededStore(t *testing.T, members ...entity.Entity) *store.Memory {
	t.Helper()

	st := store.NewMemory()
	for _, e := range members {
		raw, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal member: %v", err)
		}
		if err := st.HSet(context.Background(), MembersKey, e.ID, string(raw)); err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}
	return st
}

// seedAccount stores an entity record directly, bypassing the adapter.
func seedAccount(t *testing.T, st store.Store, e entity.Entity) {
	t.Helper()

	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal entity: %v", err)
	}
	if err := st.Set(context.Background(), fmt.Sprintf("account:%s:entity", e.ID), string(raw)); err != nil {
		t.Fatalf("seed account: %v", err)
	}
}
