package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stageflow/internal/logging"
	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/navigation"
	"github.com/aretw0/stageflow/pkg/policy"
	"github.com/aretw0/stageflow/pkg/ports"
	"github.com/aretw0/stageflow/pkg/registry"
)

// Operation names used in StageError.
const (
	OpMarkCompleted     = "mark_completed"
	OpRequestTransition = "request_transition"
	OpIsCompleted       = "is_completed"
	OpIsReachable       = "is_reachable"
)

// Controller owns the progress state of one session.
// Mutations are serialized by a write lock; reads copy out under a read lock.
type Controller struct {
	mu    sync.RWMutex
	state *domain.State

	stages    *registry.Registry
	policy    policy.Policy
	navigator ports.Navigator
	commit    Committer
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	restore   *domain.State
	sessionID string
}

// New creates a controller positioned at the first stage with nothing completed,
// unless WithState restores a snapshot.
func New(stages *registry.Registry, opts ...Option) (*Controller, error) {
	if stages == nil {
		return nil, errors.New("workflow: nil stage registry")
	}

	c := &Controller{
		stages:    stages,
		policy:    policy.Permissive{},
		navigator: navigation.Nop{},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.restore != nil {
		if err := stages.Validate(c.restore); err != nil {
			return nil, fmt.Errorf("workflow: invalid state snapshot: %w", err)
		}
		c.state = c.restore.Clone()
		if c.state.Completed == nil {
			c.state.Completed = make(map[string]bool)
		}
		c.restore = nil
	} else {
		c.state = domain.NewState(c.sessionID, stages.First().ID)
	}

	c.logger = c.logger.With("session_id", c.state.SessionID)
	return c, nil
}

// MarkCompleted adds the stage to the completed set. Re-marking is a no-op.
// It never navigates.
func (c *Controller) MarkCompleted(ctx context.Context, stageID string) error {
	stage, err := c.stages.Get(stageID)
	if err != nil {
		return &domain.StageError{Op: OpMarkCompleted, StageID: stageID, Err: domain.ErrUnknownStage}
	}

	c.mu.Lock()
	if c.state.IsCompleted(stageID) {
		c.mu.Unlock()
		c.logger.Debug("stage already completed", "stage", stageID)
		return nil
	}

	prev := c.state.Clone()
	c.state.Completed[stageID] = true
	c.state.UpdatedAt = time.Now().UTC()

	if err := c.commitLocked(ctx, prev); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s %q: %w", OpMarkCompleted, stageID, err)
	}
	sessionID := c.state.SessionID
	c.mu.Unlock()

	c.logger.Info("stage completed", "stage", stageID)
	c.hooks.Emit(ctx, domain.NewStageEvent(domain.EventStageCompleted, sessionID, stage))
	return nil
}

// RequestTransition moves the session to stageID and then asks the navigator to show it.
//
// The state change is committed before navigation. If the navigator fails, the new stage
// is still returned together with a *domain.NavigationError (errors.Is ErrNavigationFailed);
// the state is not rolled back and the caller decides how to surface the warning.
func (c *Controller) RequestTransition(ctx context.Context, stageID string) (domain.Stage, error) {
	target, err := c.stages.Get(stageID)
	if err != nil {
		return domain.Stage{}, &domain.StageError{Op: OpRequestTransition, StageID: stageID, Err: domain.ErrUnknownStage}
	}

	c.mu.Lock()
	sessionID := c.state.SessionID
	if !c.policy.IsReachable(stageID, c.state, c.stages) {
		c.mu.Unlock()
		c.logger.Debug("transition denied by policy", "stage", stageID)
		c.hooks.Emit(ctx, domain.NewStageEvent(domain.EventTransitionDenied, sessionID, target))
		return domain.Stage{}, &domain.StageError{Op: OpRequestTransition, StageID: stageID, Err: domain.ErrAccessDenied}
	}

	prev := c.state.Clone()
	c.state.CurrentStageID = stageID
	c.state.History = append(c.state.History, stageID)
	c.state.UpdatedAt = time.Now().UTC()

	if err := c.commitLocked(ctx, prev); err != nil {
		c.mu.Unlock()
		return domain.Stage{}, fmt.Errorf("%s %q: %w", OpRequestTransition, stageID, err)
	}
	c.mu.Unlock()

	// The previous stage is registered: the state was validated on every write.
	from, _ := c.stages.Get(prev.CurrentStageID)
	c.logger.Info("stage transition", "from", from.ID, "to", stageID)
	c.hooks.Emit(ctx, domain.NewStageEvent(domain.EventStageLeave, sessionID, from))
	c.hooks.Emit(ctx, domain.NewStageEvent(domain.EventStageEnter, sessionID, target))

	if err := c.navigator.Navigate(ctx, target.Target); err != nil {
		navErr := &domain.NavigationError{StageID: stageID, Target: target.Target, Err: err}
		c.logger.Warn("navigation failed after committed transition", "stage", stageID, "target", target.Target, "err", err)
		event := domain.NewStageEvent(domain.EventNavigationFailed, sessionID, target)
		event.Err = err
		c.hooks.Emit(ctx, event)
		return target, navErr
	}

	return target, nil
}

// commitLocked persists the mutated state, restoring prev on failure.
// Callers must hold the write lock.
func (c *Controller) commitLocked(ctx context.Context, prev *domain.State) error {
	if c.commit == nil {
		return nil
	}
	if err := c.commit(ctx, c.state.Clone()); err != nil {
		c.state = prev
		c.logger.Error("failed to commit state, change discarded", "err", err)
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// CurrentStage returns the active stage. It never fails.
func (c *Controller) CurrentStage() domain.Stage {
	c.mu.RLock()
	id := c.state.CurrentStageID
	c.mu.RUnlock()

	stage, _ := c.stages.Get(id)
	return stage
}

// IsCompleted reports whether the stage was marked done.
func (c *Controller) IsCompleted(stageID string) (bool, error) {
	if !c.stages.Contains(stageID) {
		return false, &domain.StageError{Op: OpIsCompleted, StageID: stageID, Err: domain.ErrUnknownStage}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.IsCompleted(stageID), nil
}

// IsReachable evaluates the access policy for one stage against the current state.
func (c *Controller) IsReachable(stageID string) (bool, error) {
	if !c.stages.Contains(stageID) {
		return false, &domain.StageError{Op: OpIsReachable, StageID: stageID, Err: domain.ErrUnknownStage}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy.IsReachable(stageID, c.state, c.stages), nil
}

// ReachableStages returns, in registry order, every stage the policy currently permits.
func (c *Controller) ReachableStages() []domain.Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.Stage
	for _, s := range c.stages.Stages() {
		if c.policy.IsReachable(s.ID, c.state, c.stages) {
			out = append(out, s)
		}
	}
	return out
}

// Completed returns the completed stages in registry order.
func (c *Controller) Completed() []domain.Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.Stage
	for _, s := range c.stages.Stages() {
		if c.state.IsCompleted(s.ID) {
			out = append(out, s)
		}
	}
	return out
}

// Steps returns the per-stage view of one consistent snapshot.
// Exactly one entry has Current set.
func (c *Controller) Steps() []domain.StageStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return StatusOf(c.stages, c.policy, c.state)
}

// Snapshot returns a deep copy of the session state.
func (c *Controller) Snapshot() *domain.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Registry returns the stage catalog the controller validates against.
func (c *Controller) Registry() *registry.Registry {
	return c.stages
}

// StatusOf derives the per-stage view of a state. "Current" is computed by comparison.
func StatusOf(stages *registry.Registry, p policy.Policy, state *domain.State) []domain.StageStatus {
	all := stages.Stages()
	out := make([]domain.StageStatus, len(all))
	for i, s := range all {
		out[i] = domain.StageStatus{
			Stage:     s,
			Current:   s.ID == state.CurrentStageID,
			Completed: state.IsCompleted(s.ID),
			Reachable: p.IsReachable(s.ID, state, stages),
		}
	}
	return out
}
