/*
Package store abstracts the key-value/hash/list store backing accounts, room
membership and the chat log.

The Store interface mirrors the small set of primitives the room core needs:
plain keys for account records, one hash for current room membership, and one
list for the chat history. Implementations must treat a missing key or hash
field as "absent", not as an error; callers never branch on driver-specific
sentinel errors.
*/
package store

import "context"

// Store is the persistence contract shared by all room components.
//
// Successful writes are at-least-once durable. Any returned error means the
// store was unavailable for that call; per the room's error policy such errors
// are logged and swallowed during normal command processing.
type Store interface {
	// Get fetches the value at key. The second return is false if the key
	// does not exist.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value at key, overwriting any prior value.
	Set(ctx context.Context, key, value string) error

	// HGet fetches one field from the hash at key. The second return is
	// false if the key or field does not exist.
	HGet(ctx context.Context, key, field string) (string, bool, error)

	// HSet upserts one field of the hash at key.
	HSet(ctx context.Context, key, field, value string) error

	// HDel removes one field from the hash at key. Removing a missing field
	// is a no-op.
	HDel(ctx context.Context, key, field string) error

	// HGetAll returns every field of the hash at key. A missing key yields
	// an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// RPush appends value to the tail of the list at key, creating the list
	// if needed.
	RPush(ctx context.Context, key, value string) error

	// LRange returns list elements between start and stop inclusive,
	// with negative indices counting from the tail (stop = -1 reads to the
	// end).
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Ping verifies connectivity. Used once at startup, where a failure is
	// fatal.
	Ping(ctx context.Context) error
}
