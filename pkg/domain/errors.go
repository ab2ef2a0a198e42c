package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStage is returned when an operation references an id absent from the registry.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrAccessDenied is returned when the access policy rejects a transition.
	ErrAccessDenied = errors.New("stage access denied")

	// ErrNavigationFailed reports that the navigator failed after the transition was committed.
	// The session state is NOT rolled back when this error is returned.
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrEmptyRegistry is returned when a registry is built without stages.
	ErrEmptyRegistry = errors.New("stage registry is empty")

	// ErrDuplicateStage is returned when two stages share an id.
	ErrDuplicateStage = errors.New("duplicate stage id")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
)

// StageError describes a rejected operation on a stage.
// No mutation happened when a StageError is returned.
type StageError struct {
	Op      string
	StageID string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.StageID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NavigationError is returned by a transition whose state change was committed
// but whose navigator call failed. It matches ErrNavigationFailed via errors.Is.
type NavigationError struct {
	StageID string
	Target  string
	Err     error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %q (stage %q) failed: %v", e.Target, e.StageID, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

func (e *NavigationError) Is(target error) bool {
	return target == ErrNavigationFailed
}
