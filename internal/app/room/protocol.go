/*
Package room contains the core logic of the presence server.

This file defines the wire protocol: every frame is a JSON envelope carrying
an event type and a type-specific payload. Payloads are validated at the
boundary; anything that fails to deserialize is a MalformedPayload and is
dropped without terminating the session.
*/
package room

import (
	"encoding/json"

	"roomsync/internal/app/entity"
	"roomsync/internal/pkg/errs"
)

// Wire event types.
const (
	// TypeLogin is sent by the client with its candidate id (a JSON
	// string, possibly empty).
	TypeLogin = "login"

	// TypeWelcome is sent to a freshly logged-in session with its resolved
	// entity and the current membership.
	TypeWelcome = "welcome"

	// TypeMove carries {x,y,z} from the client; the broadcast form carries
	// the mover's updated entity.
	TypeMove = "move"

	// TypeSay carries the spoken message (a JSON string) from the client.
	TypeSay = "say"

	// TypeHear broadcasts a recorded chat event to the other sessions.
	TypeHear = "hear"

	// TypeJoin broadcasts a new member's entity to the other sessions.
	TypeJoin = "join"

	// TypeLeave broadcasts a departing member's id to the remaining
	// sessions.
	TypeLeave = "leave"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WelcomePayload is the server's response to a successful login.
type WelcomePayload struct {
	You     entity.Entity            `json:"you"`
	Members map[string]entity.Entity `json:"members"`
}

// MovePayload is the client's position update.
type MovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// decodeEnvelope parses a raw inbound frame.
func decodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errs.Malformed(err)
	}
	if env.Type == "" {
		return Envelope{}, errs.Malformed(errMissingType)
	}
	return env, nil
}

var errMissingType = jsonError("missing event type")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// decodeString parses a bare JSON string payload (login candidate id, say
// message). An omitted payload decodes as the empty string, which the login
// path treats as "no prior identity".
func decodeString(payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", errs.Malformed(err)
	}
	return s, nil
}

// decodeMove parses a position payload.
func decodeMove(payload json.RawMessage) (MovePayload, error) {
	var p MovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return MovePayload{}, errs.Malformed(err)
	}
	return p, nil
}

// encodeEvent frames payload under the given event type.
func encodeEvent(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}
