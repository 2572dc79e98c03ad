/*
Package randx generates unique identifiers for the room server.

Entity ids are UUID v4 strings. Uniqueness against live room members and
stored accounts is enforced by the caller, which probes both before accepting
a candidate.
*/
package randx

import "github.com/google/uuid"

// EntityID returns a fresh candidate id for a newly minted entity.
func EntityID() string {
	return uuid.New().String()
}
