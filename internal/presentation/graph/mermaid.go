package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stageflow/pkg/domain"
)

// Overlay contains session state to visualize on the pipeline.
type Overlay struct {
	Completed []string
	Current   string
	// Locked lists stages the access policy currently rejects.
	Locked []string
}

// OverlayFromSteps builds an overlay from a derived per-stage view.
func OverlayFromSteps(steps []domain.StageStatus) *Overlay {
	o := &Overlay{}
	for _, st := range steps {
		if st.Current {
			o.Current = st.ID
		}
		if st.Completed {
			o.Completed = append(o.Completed, st.ID)
		}
		if !st.Reachable {
			o.Locked = append(o.Locked, st.ID)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the pipeline in registry order.
// The first stage is drawn as a stadium, the rest as rectangles labelled with
// the stage name. Completed/current/locked styles are applied if overlay is non-nil.
func GenerateMermaid(stages []domain.Stage, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	for i, stage := range stages {
		safeID := sanitizeMermaidID(stage.ID)
		opener, closer := "[", "]"
		if i == 0 {
			opener, closer = "([", "])"
		}

		label := stage.Name
		if label == "" {
			label = stage.ID
		}
		label = strings.ReplaceAll(label, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		if i > 0 {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(stages[i-1].ID), safeID))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme
		sb.WriteString("    classDef completed fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef locked fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4 4,color:#616161;\n")

		writeClass(&sb, overlay.Locked, "locked")
		writeClass(&sb, overlay.Completed, "completed")
		if overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
		}
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, ids []string, class string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		safeID := sanitizeMermaidID(id)
		if safeID == "" || seen[safeID] {
			continue
		}
		seen[safeID] = true
		sb.WriteString(fmt.Sprintf("    class %s %s;\n", safeID, class))
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
