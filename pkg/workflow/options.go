package workflow

import (
	"context"
	"log/slog"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/policy"
	"github.com/aretw0/stageflow/pkg/ports"
)

// Committer makes a mutated snapshot durable (e.g. saves it to a StateStore).
// It runs while the controller holds its write lock and must not call back into the controller.
type Committer func(ctx context.Context, snapshot *domain.State) error

// Option configures a Controller.
type Option func(*Controller)

// WithPolicy replaces the default permissive access policy. Nil keeps the default.
func WithPolicy(p policy.Policy) Option {
	return func(c *Controller) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithNavigator sets the collaborator invoked after each committed transition.
// Nil keeps the no-op navigator.
func WithNavigator(n ports.Navigator) Option {
	return func(c *Controller) {
		if n != nil {
			c.navigator = n
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithState restores a previously taken snapshot instead of starting at the first stage.
// The snapshot is copied and validated against the registry.
func WithState(state *domain.State) Option {
	return func(c *Controller) {
		c.restore = state
	}
}

// WithSessionID labels a fresh state (ignored when WithState is used).
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// WithCommitter makes every mutation durable before navigation happens.
func WithCommitter(fn Committer) Option {
	return func(c *Controller) {
		c.commit = fn
	}
}
