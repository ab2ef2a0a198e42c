package registry

import (
	"errors"
	"fmt"

	"github.com/aretw0/stageflow/pkg/domain"
)

// Registry is the immutable, ordered catalog of pipeline stages.
// It is safe for concurrent use because nothing mutates it after New returns.
type Registry struct {
	stages []domain.Stage
	index  map[string]int
}

// New builds a registry from stages in pipeline order.
// It rejects an empty list, empty ids and duplicate ids, reporting every violation.
func New(stages ...domain.Stage) (*Registry, error) {
	if len(stages) == 0 {
		return nil, domain.ErrEmptyRegistry
	}

	r := &Registry{
		stages: make([]domain.Stage, len(stages)),
		index:  make(map[string]int, len(stages)),
	}
	copy(r.stages, stages)

	var errs []error
	for i, s := range r.stages {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("stage at position %d: empty id", i))
			continue
		}
		if prev, exists := r.index[s.ID]; exists {
			errs = append(errs, fmt.Errorf("%w: %q at positions %d and %d", domain.ErrDuplicateStage, s.ID, prev, i))
			continue
		}
		r.index[s.ID] = i
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return r, nil
}

// MustNew is like New but panics on invalid input. Intended for static definitions.
func MustNew(stages ...domain.Stage) *Registry {
	r, err := New(stages...)
	if err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
	return r
}

// Get looks up a stage by id.
// Returns an error wrapping domain.ErrUnknownStage if the id is not registered.
func (r *Registry) Get(id string) (domain.Stage, error) {
	i, ok := r.index[id]
	if !ok {
		return domain.Stage{}, fmt.Errorf("%w: %q", domain.ErrUnknownStage, id)
	}
	return r.stages[i], nil
}

// Contains reports whether the id is registered.
func (r *Registry) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Index returns the position of the stage in pipeline order.
func (r *Registry) Index(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// First returns the entry stage. A registry is never empty.
func (r *Registry) First() domain.Stage {
	return r.stages[0]
}

// Len returns the number of stages.
func (r *Registry) Len() int {
	return len(r.stages)
}

// Stages returns a copy of all stages in pipeline order.
func (r *Registry) Stages() []domain.Stage {
	out := make([]domain.Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

// IDs returns the stage ids in pipeline order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.stages))
	for i, s := range r.stages {
		ids[i] = s.ID
	}
	return ids
}

// ByTarget finds the first stage navigating to target.
func (r *Registry) ByTarget(target string) (domain.Stage, bool) {
	for _, s := range r.stages {
		if s.Target == target {
			return s, true
		}
	}
	return domain.Stage{}, false
}

// Validate checks that a state only references registered stages.
func (r *Registry) Validate(state *domain.State) error {
	if state == nil {
		return errors.New("nil state")
	}
	var errs []error
	if !r.Contains(state.CurrentStageID) {
		errs = append(errs, fmt.Errorf("current stage: %w: %q", domain.ErrUnknownStage, state.CurrentStageID))
	}
	for _, id := range state.CompletedIDs() {
		if !r.Contains(id) {
			errs = append(errs, fmt.Errorf("completed set: %w: %q", domain.ErrUnknownStage, id))
		}
	}
	return errors.Join(errs...)
}
