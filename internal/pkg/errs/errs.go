/*
Package errs defines the error taxonomy of the room server.

Only two conditions exist: the store being unreachable and an inbound payload
failing to deserialize. Neither is ever surfaced to the remote peer; storage
errors during normal command processing are logged and swallowed, malformed
payloads are dropped with a log line. The sentinels here exist so call sites
can classify with errors.Is instead of matching driver error strings.
*/
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable marks a failed or timed-out store call.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrMalformedPayload marks an inbound event payload that failed to
	// deserialize or validate.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Storage wraps err as a StorageUnavailable condition. Returns nil for nil.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// Malformed wraps err as a MalformedPayload condition. Returns nil for nil.
func Malformed(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
}

// IsStorage reports whether err is a StorageUnavailable condition.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsMalformed reports whether err is a MalformedPayload condition.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedPayload)
}
