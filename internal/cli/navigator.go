package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/stageflow/internal/presentation/tui"
	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/registry"
)

// TerminalNavigator shows the page of the stage a session moved to.
// Stages must be set before the first transition.
type TerminalNavigator struct {
	Out    io.Writer
	Stages *registry.Registry
	Render func(string) (string, error)
}

// Navigate implements ports.Navigator.
func (n *TerminalNavigator) Navigate(ctx context.Context, target string) error {
	if n.Stages == nil {
		return fmt.Errorf("terminal navigator has no registry")
	}
	stage, ok := n.Stages.ByTarget(target)
	if !ok {
		return fmt.Errorf("no stage renders at %q", target)
	}
	return n.Show(stage, false)
}

// Show renders one stage page.
func (n *TerminalNavigator) Show(stage domain.Stage, completed bool) error {
	page := tui.StagePage(stage, completed)
	if n.Render != nil {
		rendered, err := n.Render(page)
		if err != nil {
			return fmt.Errorf("render %q: %w", stage.ID, err)
		}
		page = rendered
	}
	_, err := fmt.Fprint(n.Out, page)
	return err
}
