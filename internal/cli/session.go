package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/stageflow"
	"github.com/aretw0/stageflow/internal/presentation/graph"
	"github.com/aretw0/stageflow/internal/presentation/tui"
)

// ListSessions prints one live session id per line.
func ListSessions(ctx context.Context, engine *stageflow.Engine, out io.Writer) error {
	ids, err := engine.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(ids) == 0 {
		printSystemMessage(out, "No active sessions.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

// InspectSession prints the progress of a session, as a sidebar or a Mermaid diagram.
func InspectSession(ctx context.Context, engine *stageflow.Engine, sessionID string, mermaid bool, out io.Writer) error {
	state, err := engine.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	steps, err := engine.Steps(ctx, sessionID)
	if err != nil {
		return err
	}

	if mermaid {
		fmt.Fprint(out, graph.GenerateMermaid(engine.Stages(), graph.OverlayFromSteps(steps)))
		return nil
	}

	fmt.Fprintf(out, "Session:  %s\n", state.SessionID)
	fmt.Fprintf(out, "Current:  %s\n", state.CurrentStageID)
	fmt.Fprintf(out, "Updated:  %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintln(out, tui.Sidebar(steps))
	return nil
}

// RemoveSession discards a session.
func RemoveSession(ctx context.Context, engine *stageflow.Engine, sessionID string, out io.Writer) error {
	if err := engine.End(ctx, sessionID); err != nil {
		return err
	}
	printSystemMessage(out, "Session '%s' removed.", sessionID)
	return nil
}
