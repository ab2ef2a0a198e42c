package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Without options it detects a light/dark background.
func NewRenderer(opts ...glamour.TermRendererOption) (func(string) (string, error), error) {
	if len(opts) == 0 {
		opts = []glamour.TermRendererOption{glamour.WithAutoStyle()}
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// StagePage builds the markdown page shown when a stage is entered.
func StagePage(stage domain.Stage, completed bool) string {
	var sb strings.Builder
	name := stage.Name
	if name == "" {
		name = stage.ID
	}
	sb.WriteString("# " + name)
	if completed {
		sb.WriteString(" ✓")
	}
	sb.WriteString("\n\n")
	if desc := strings.TrimSpace(stage.Description); desc != "" {
		sb.WriteString(desc + "\n\n")
	}
	if stage.Target != "" {
		sb.WriteString(fmt.Sprintf("_Location:_ `%s`\n", stage.Target))
	}
	return sb.String()
}
