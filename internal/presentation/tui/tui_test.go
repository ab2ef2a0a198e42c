package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagePage(t *testing.T) {
	stage := domain.Stage{ID: "review", Name: "Review", Target: "/review", Description: "Check the **draft**.\n"}

	page := StagePage(stage, false)
	assert.True(t, strings.HasPrefix(page, "# Review\n\n"))
	assert.Contains(t, page, "Check the **draft**.")
	assert.Contains(t, page, "`/review`")

	assert.Contains(t, StagePage(domain.Stage{ID: "bare"}, true), "# bare ✓")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer(glamour.WithStandardStyle("notty"), glamour.WithWordWrap(80))
	require.NoError(t, err)

	out, err := render(StagePage(domain.Stage{ID: "a", Name: "Alpha", Description: "hello world"}, false))
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "hello world")
}

func TestSidebar(t *testing.T) {
	steps := []domain.StageStatus{
		{Stage: domain.Stage{ID: "a", Name: "Alpha"}, Completed: true, Reachable: true},
		{Stage: domain.Stage{ID: "b", Name: "Beta"}, Current: true, Reachable: true},
		{Stage: domain.Stage{ID: "c"}, Reachable: true},
		{Stage: domain.Stage{ID: "d", Name: "Delta"}},
	}

	out := Sidebar(steps)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 6, out)

	assert.Contains(t, out, MarkCompleted+" 1. Alpha")
	assert.Contains(t, out, MarkCurrent+" 2. Beta")
	assert.Contains(t, out, MarkOpen+" 3. c")
	assert.Contains(t, out, MarkLocked+" 4. Delta")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
	assert.NotContains(t, buf.String(), "\x1b[", "no colors when writing to a buffer")
}
