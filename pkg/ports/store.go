package ports

import (
	"context"

	"github.com/aretw0/stageflow/pkg/domain"
)

// StateStore holds live session states.
// It lets several replicas share a session while it is active; it is not an archive.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.State) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.State, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of the live sessions.
	List(ctx context.Context) ([]string, error)
}
