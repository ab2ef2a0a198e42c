package ports

import (
	"context"

	"github.com/aretw0/stageflow/pkg/domain"
)

// StageLoader retrieves stage definitions from a backing source (Loam, memory, files).
// The returned order is the pipeline order.
type StageLoader interface {
	LoadStages(ctx context.Context) ([]domain.Stage, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that receives the id of each changed document.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
