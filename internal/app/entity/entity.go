/*
Package entity defines the domain records exchanged between the room core and
the persistent store: the Entity presence record and the ChatEvent chat record.

Both types are serialized as JSON, which is also their stored representation.
*/
package entity

// DefaultAvatar is the avatar assigned to freshly minted entities.
// Existing accounts keep whatever avatar they were stored with.
const DefaultAvatar = "images/avatar0.png"

// Entity is a user's persistent identity and presence record.
type Entity struct {
	// ID is the stable identifier for the user. Never empty once stored.
	ID string `json:"id"`

	// X, Y, Z are the current position coordinates, updated on movement.
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	// Avatar references the visual asset rendered for this entity.
	// Assigned at creation and immutable afterwards.
	Avatar string `json:"avatar"`
}

// New returns a freshly minted entity at the origin with the default avatar.
func New(id string) Entity {
	return Entity{
		ID:     id,
		Avatar: DefaultAvatar,
	}
}

// ChatEvent is an immutable record of one spoken message.
// Events are append-only and ordered by insertion in the durable chat log.
type ChatEvent struct {
	// Talker is the id of the entity that spoke.
	Talker string `json:"talker"`

	// Message is the opaque message payload.
	Message string `json:"message"`

	// Date is the wall-clock timestamp in milliseconds captured at receipt.
	Date int64 `json:"date"`
}
