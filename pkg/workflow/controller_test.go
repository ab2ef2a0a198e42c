package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/navigation"
	"github.com/aretw0/stageflow/pkg/policy"
	"github.com/aretw0/stageflow/pkg/registry"
	"github.com/aretw0/stageflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abc() *registry.Registry {
	return registry.MustNew(
		domain.Stage{ID: "A", Name: "Alpha", Target: "/a"},
		domain.Stage{ID: "B", Name: "Bravo", Target: "/b"},
		domain.Stage{ID: "C", Name: "Charlie", Target: "/c"},
	)
}

func newController(t *testing.T, opts ...workflow.Option) *workflow.Controller {
	t.Helper()
	c, err := workflow.New(abc(), opts...)
	require.NoError(t, err)
	return c
}

func currentCount(steps []domain.StageStatus) int {
	n := 0
	for _, s := range steps {
		if s.Current {
			n++
		}
	}
	return n
}

func TestNew_DefaultsToFirstStage(t *testing.T) {
	c := newController(t, workflow.WithSessionID("sess-1"))

	assert.Equal(t, "A", c.CurrentStage().ID)
	assert.Empty(t, c.Completed())
	snap := c.Snapshot()
	assert.Equal(t, "sess-1", snap.SessionID)
	assert.Equal(t, []string{"A"}, snap.History)
}

func TestNew_NilRegistry(t *testing.T) {
	_, err := workflow.New(nil)
	assert.Error(t, err)
}

func TestNew_NilOptionsKeepDefaults(t *testing.T) {
	c := newController(t,
		workflow.WithPolicy(nil),
		workflow.WithNavigator(nil),
		workflow.WithLogger(nil),
	)
	ctx := context.Background()

	stage, err := c.RequestTransition(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, "C", stage.ID)
	require.NoError(t, c.MarkCompleted(ctx, "A"))
	assert.Len(t, c.ReachableStages(), 3, "permissive policy stays in place")
}

func TestMarkCompleted_Idempotent(t *testing.T) {
	ctx := context.Background()
	for _, id := range abc().IDs() {
		t.Run(id, func(t *testing.T) {
			c := newController(t)

			require.NoError(t, c.MarkCompleted(ctx, id))
			done, err := c.IsCompleted(id)
			require.NoError(t, err)
			assert.True(t, done)

			before := c.Snapshot()
			require.NoError(t, c.MarkCompleted(ctx, id))
			assert.Equal(t, before, c.Snapshot(), "re-marking must leave the state unchanged")
		})
	}
}

func TestMarkCompleted_DoesNotNavigate(t *testing.T) {
	nav := &navigation.Recorder{}
	c := newController(t, workflow.WithNavigator(nav))

	require.NoError(t, c.MarkCompleted(context.Background(), "B"))
	assert.Empty(t, nav.Targets())
	assert.Equal(t, "A", c.CurrentStage().ID)
}

func TestRequestTransition_EveryStage(t *testing.T) {
	ctx := context.Background()
	for _, id := range abc().IDs() {
		t.Run(id, func(t *testing.T) {
			nav := &navigation.Recorder{}
			c := newController(t, workflow.WithNavigator(nav))

			stage, err := c.RequestTransition(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, stage.ID)
			assert.Equal(t, id, c.CurrentStage().ID)
			assert.Equal(t, stage.Target, nav.Last())
			assert.Equal(t, 1, currentCount(c.Steps()))
		})
	}
}

func TestUnknownStage_LeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	nav := &navigation.Recorder{}
	c := newController(t, workflow.WithNavigator(nav))
	require.NoError(t, c.MarkCompleted(ctx, "A"))
	before := c.Snapshot()

	_, err := c.RequestTransition(ctx, "Z")
	assert.ErrorIs(t, err, domain.ErrUnknownStage)

	err = c.MarkCompleted(ctx, "Z")
	assert.ErrorIs(t, err, domain.ErrUnknownStage)

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, workflow.OpMarkCompleted, stageErr.Op)
	assert.Equal(t, "Z", stageErr.StageID)

	_, err = c.IsCompleted("Z")
	assert.ErrorIs(t, err, domain.ErrUnknownStage)
	_, err = c.IsReachable("Z")
	assert.ErrorIs(t, err, domain.ErrUnknownStage)

	assert.Equal(t, before, c.Snapshot())
	assert.Empty(t, nav.Targets())
}

func TestReachableStages_PermissiveEqualsRegistry(t *testing.T) {
	ctx := context.Background()
	c := newController(t)

	assert.Equal(t, abc().Stages(), c.ReachableStages())

	_, err := c.RequestTransition(ctx, "C")
	require.NoError(t, err)
	require.NoError(t, c.MarkCompleted(ctx, "B"))
	assert.Equal(t, abc().Stages(), c.ReachableStages())

	for _, id := range abc().IDs() {
		require.NoError(t, c.MarkCompleted(ctx, id))
	}
	assert.Equal(t, abc().Stages(), c.ReachableStages())
}

func TestScenario_JumpCompleteAndReject(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	require.Equal(t, "A", c.CurrentStage().ID)

	stage, err := c.RequestTransition(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, "C", stage.ID)
	assert.Equal(t, "C", c.CurrentStage().ID)
	assert.Empty(t, c.Completed())

	require.NoError(t, c.MarkCompleted(ctx, "A"))
	done, err := c.IsCompleted("A")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "C", c.CurrentStage().ID)

	_, err = c.RequestTransition(ctx, "Z")
	assert.ErrorIs(t, err, domain.ErrUnknownStage)
	assert.Equal(t, "C", c.CurrentStage().ID)
}

func TestRequestTransition_LastStageReenterable(t *testing.T) {
	ctx := context.Background()
	nav := &navigation.Recorder{}
	c := newController(t, workflow.WithNavigator(nav))

	for i := 0; i < 2; i++ {
		_, err := c.RequestTransition(ctx, "C")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"/c", "/c"}, nav.Targets())
	assert.Equal(t, []string{"A", "C", "C"}, c.Snapshot().History)
}

func TestRequestTransition_NavigationFailureKeepsState(t *testing.T) {
	nav := &navigation.Recorder{Err: errors.New("router unavailable")}
	c := newController(t, workflow.WithNavigator(nav))

	stage, err := c.RequestTransition(context.Background(), "B")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNavigationFailed)

	var navErr *domain.NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, "/b", navErr.Target)
	assert.EqualError(t, navErr.Err, "router unavailable")

	assert.Equal(t, "B", stage.ID, "the committed stage is still returned")
	assert.Equal(t, "B", c.CurrentStage().ID, "state is not rolled back on navigation failure")
}

func TestRequestTransition_AccessDenied(t *testing.T) {
	ctx := context.Background()
	nav := &navigation.Recorder{}
	var denied []string
	hooks := domain.LifecycleHooks{
		OnTransitionDenied: func(ctx context.Context, e *domain.StageEvent) { denied = append(denied, e.StageID) },
	}
	c := newController(t,
		workflow.WithPolicy(policy.Sequential{}),
		workflow.WithNavigator(nav),
		workflow.WithLifecycleHooks(hooks),
	)
	before := c.Snapshot()

	_, err := c.RequestTransition(ctx, "C")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Equal(t, before, c.Snapshot())
	assert.Empty(t, nav.Targets())
	assert.Equal(t, []string{"C"}, denied)

	reachable, err := c.IsReachable("C")
	require.NoError(t, err)
	assert.False(t, reachable)
	assert.Equal(t, []string{"A"}, ids(c.ReachableStages()))

	require.NoError(t, c.MarkCompleted(ctx, "A"))
	_, err = c.RequestTransition(ctx, "B")
	assert.NoError(t, err)
}

func TestCommitter_FailureDiscardsChange(t *testing.T) {
	ctx := context.Background()
	nav := &navigation.Recorder{}
	fail := true
	var committed []*domain.State
	commit := func(ctx context.Context, s *domain.State) error {
		if fail {
			return errors.New("disk full")
		}
		committed = append(committed, s)
		return nil
	}
	c := newController(t, workflow.WithNavigator(nav), workflow.WithCommitter(commit))

	_, err := c.RequestTransition(ctx, "B")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNavigationFailed)
	assert.Equal(t, "A", c.CurrentStage().ID)
	assert.Empty(t, nav.Targets(), "no navigation without a commit")

	require.Error(t, c.MarkCompleted(ctx, "A"))
	assert.Empty(t, c.Completed())

	fail = false
	_, err = c.RequestTransition(ctx, "B")
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, "B", committed[0].CurrentStageID)
	assert.Equal(t, []string{"/b"}, nav.Targets())
}

func TestHooks_Order(t *testing.T) {
	ctx := context.Background()
	var events []string
	record := func(ctx context.Context, e *domain.StageEvent) {
		events = append(events, fmt.Sprintf("%s:%s", e.Type, e.StageID))
	}
	hooks := domain.LifecycleHooks{
		OnStageEnter:       record,
		OnStageLeave:       record,
		OnStageCompleted:   record,
		OnNavigationFailed: record,
	}
	nav := &navigation.Recorder{}
	c := newController(t, workflow.WithLifecycleHooks(hooks), workflow.WithNavigator(nav))

	require.NoError(t, c.MarkCompleted(ctx, "A"))
	require.NoError(t, c.MarkCompleted(ctx, "A"))
	_, err := c.RequestTransition(ctx, "B")
	require.NoError(t, err)
	nav.Err = errors.New("nope")
	_, _ = c.RequestTransition(ctx, "C")

	assert.Equal(t, []string{
		"stage_completed:A",
		"stage_leave:A",
		"stage_enter:B",
		"stage_leave:B",
		"stage_enter:C",
		"navigation_failed:C",
	}, events)
}

func TestHooks_MayReadController(t *testing.T) {
	var c *workflow.Controller
	var seen string
	hooks := domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			seen = c.CurrentStage().ID
		},
	}
	c = newController(t, workflow.WithLifecycleHooks(hooks))

	_, err := c.RequestTransition(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, "B", seen)
}

func TestWithState_Restore(t *testing.T) {
	snap := domain.NewState("sess-9", "A")
	snap.CurrentStageID = "B"
	snap.Completed["A"] = true

	c := newController(t, workflow.WithState(snap))
	assert.Equal(t, "B", c.CurrentStage().ID)
	assert.Equal(t, []string{"A"}, ids(c.Completed()))

	snap.Completed["C"] = true
	done, _ := c.IsCompleted("C")
	assert.False(t, done, "controller must own a copy of the snapshot")

	bad := domain.NewState("sess-9", "Z")
	_, err := workflow.New(abc(), workflow.WithState(bad))
	assert.ErrorIs(t, err, domain.ErrUnknownStage)
}

func TestSteps(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	_, err := c.RequestTransition(ctx, "B")
	require.NoError(t, err)
	require.NoError(t, c.MarkCompleted(ctx, "A"))

	steps := c.Steps()
	require.Len(t, steps, 3)
	assert.True(t, steps[0].Completed)
	assert.False(t, steps[0].Current)
	assert.True(t, steps[1].Current)
	assert.False(t, steps[2].Completed)
	for _, s := range steps {
		assert.True(t, s.Reachable)
	}
}

func TestConcurrentTransitions_SingleCurrent(t *testing.T) {
	ctx := context.Background()
	nav := &navigation.Recorder{}
	c := newController(t, workflow.WithNavigator(nav))
	stages := abc().IDs()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := c.RequestTransition(ctx, stages[i%len(stages)])
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.MarkCompleted(ctx, stages[i%len(stages)]))
			assert.Equal(t, 1, currentCount(c.Steps()))
			assert.NotEmpty(t, c.ReachableStages())
		}(i)
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Len(t, snap.History, 51)
	assert.Len(t, nav.Targets(), 50)
	assert.Equal(t, snap.History[len(snap.History)-1], snap.CurrentStageID)
	assert.Len(t, c.Completed(), 3)
}

func ids(stages []domain.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.ID
	}
	return out
}
