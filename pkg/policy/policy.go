package policy

import (
	"fmt"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/registry"
)

// Policy decides whether a registered stage may be entered from the given state.
// Implementations must be pure: they must not mutate state and must not block.
// The controller only consults the policy for ids already known to the registry.
type Policy interface {
	IsReachable(stageID string, state *domain.State, stages *registry.Registry) bool
}

// Func adapts a plain function to the Policy interface.
type Func func(stageID string, state *domain.State, stages *registry.Registry) bool

// IsReachable implements Policy.
func (f Func) IsReachable(stageID string, state *domain.State, stages *registry.Registry) bool {
	return f(stageID, state, stages)
}

// Permissive lets users jump to any registered stage at any time, regardless of completion.
// It is the default policy.
type Permissive struct{}

// IsReachable implements Policy.
func (Permissive) IsReachable(string, *domain.State, *registry.Registry) bool {
	return true
}

// Sequential allows stages up to and including the first incomplete one in registry order.
// Once every stage is completed, all stages are reachable.
type Sequential struct{}

// IsReachable implements Policy.
func (Sequential) IsReachable(stageID string, state *domain.State, stages *registry.Registry) bool {
	target, ok := stages.Index(stageID)
	if !ok {
		return false
	}
	for i, id := range stages.IDs() {
		if !state.IsCompleted(id) {
			return target <= i
		}
	}
	return true
}

// Policy names accepted by ByName.
const (
	NamePermissive = "permissive"
	NameSequential = "sequential"
)

// ByName resolves a policy from configuration. Empty selects Permissive.
func ByName(name string) (Policy, error) {
	switch name {
	case "", NamePermissive:
		return Permissive{}, nil
	case NameSequential:
		return Sequential{}, nil
	default:
		return nil, fmt.Errorf("unknown access policy %q (expected %q or %q)", name, NamePermissive, NameSequential)
	}
}
