package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/job-assistant/internal/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidStatus is returned for a status outside types.ApplicationStatuses.
var ErrInvalidStatus = errors.New("invalid status")

// PersistenceError reports a failed write or read against a store.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// ValidateStatus checks status against the accepted lifecycle values.
func ValidateStatus(status string) error {
	update := types.StatusUpdate{Status: status}
	if err := update.Validate(); err != nil {
		return fmt.Errorf("%w %q: must be one of %s", ErrInvalidStatus, status, strings.Join(types.ApplicationStatuses, ", "))
	}
	return nil
}
