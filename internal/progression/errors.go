package progression

import (
	"errors"
	"fmt"
)

var (
	// ErrMissionNotFound means the mission id is not in the catalog. Also
	// covers completion attempts where the point value cannot be resolved.
	ErrMissionNotFound = errors.New("mission not found")

	// ErrAlreadyStarted means a progress row already exists for the pair.
	// Repeated start attempts are rejected, not merged.
	ErrAlreadyStarted = errors.New("mission already started")

	// ErrNotActive means no active progress row exists for the pair.
	ErrNotActive = errors.New("no active mission for this user")

	// ErrAlreadyCompleted means the row is terminal; points were already
	// awarded exactly once and must not be awarded again.
	ErrAlreadyCompleted = errors.New("mission already completed")

	// ErrCompletionGuardFailed means the conditional active->completed
	// write lost; a concurrent request changed the row first.
	ErrCompletionGuardFailed = errors.New("completion guard failed")
)

// ValidationError reports an out-of-range or malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
