/*
Package stageflow tracks a user's progress through a fixed, ordered pipeline of stages.

Each session has exactly one current stage and a set of completed stages. Moving
between stages is gated by an access policy (permissive by default: any registered
stage may be entered at any time, regardless of completion) and, once committed,
triggers a navigation side effect so the view can follow.

# Concept

The stage catalog (registry) is immutable after construction. The per-session state is
owned by a workflow controller, which serializes writes and exposes consistent reads.
The Engine in this package hosts many sessions over one registry, persisting them in a
StateStore (memory or Redis) and locking each session while it is mutated. Outer
surfaces (HTTP, MCP, CLI) are thin adapters over the Engine.

# Usage

	eng, err := stageflow.New(
		stageflow.WithNavigator(navigation.Func(func(ctx context.Context, target string) error {
			log.Println("show", target)
			return nil
		})),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, _ := eng.Start(ctx, "session-123")
	log.Println("current:", state.CurrentStageID)

	if _, err := eng.RequestTransition(ctx, "session-123", "model-evaluation"); err != nil {
		log.Println(err)
	}
	_, _ = eng.MarkCompleted(ctx, "session-123", "project-setup")

# Errors

Failures are reported with sentinels from pkg/domain and can be matched with errors.Is:
ErrUnknownStage, ErrAccessDenied, ErrNavigationFailed and ErrSessionNotFound.
A navigation failure never rolls back a committed transition.
*/
package stageflow
