package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned before any state change when the
	// actor may not mutate the catalog.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a job does not exist in the store asked.
	ErrNotFound = errors.New("job not found")

	// ErrRemoteUnavailable marks a failure to reach the remote store.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrIndexUnsupported is returned when the remote store cannot serve an
	// ordered, filtered query.
	ErrIndexUnsupported = errors.New("ordered query not supported by remote index")
)

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Unavailable wraps err so it matches ErrRemoteUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRemoteUnavailable, err)
}

// degraded reports whether a remote error should fall back to the cache
// rather than being returned to the caller.
func degraded(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPermissionDenied)
}
