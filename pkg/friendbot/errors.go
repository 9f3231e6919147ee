package friendbot

import "errors"

var (
	// ErrKeyNotFound indicates a cache lookup for an absent key. Callers that
	// expect absence should use GetOrAdd instead of Get.
	ErrKeyNotFound = errors.New("friendbot: key not found")
	// ErrNotConnected indicates a connection lookup for a group with no live connection.
	ErrNotConnected = errors.New("friendbot: not connected")
	// ErrBackendUnavailable indicates the durable cache backend is unreachable.
	ErrBackendUnavailable = errors.New("friendbot: durable backend unavailable")
	// ErrValidation indicates malformed or out-of-range caller input.
	ErrValidation = errors.New("friendbot: validation failed")
)
