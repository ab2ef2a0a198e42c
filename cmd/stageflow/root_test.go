package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/stageflow/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const registryDoc = `
stages:
  - id: draft
    name: Draft
    target: /draft
  - id: review
    name: Review
    target: /review
`

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "stageflow version "))
}

func TestStagesLs_Default(t *testing.T) {
	out, err := execute(t, "", "stages", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "project-setup")
	assert.Contains(t, out, "/reports")
}

func TestStagesGraph_RegistryFlag(t *testing.T) {
	path := testutils.WriteRegistryFile(t, t.TempDir(), registryDoc)

	out, err := execute(t, "", "stages", "graph", "--registry", path)
	require.NoError(t, err)
	assert.Contains(t, out, "flowchart LR")
	assert.Contains(t, out, "draft --> review")
}

func TestValidate(t *testing.T) {
	path := testutils.WriteRegistryFile(t, t.TempDir(), registryDoc)

	out, err := execute(t, "", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 stages OK")

	bad := testutils.WriteRegistryFile(t, t.TempDir(), "stages:\n  - name: no id\n")
	_, err = execute(t, "", "validate", bad)
	assert.Error(t, err)
}

func TestRun_Scripted(t *testing.T) {
	path := testutils.WriteRegistryFile(t, t.TempDir(), registryDoc)

	out, err := execute(t, "next\nq\n", "run", "--registry", path, "--session", "cli")
	require.NoError(t, err)
	assert.Contains(t, out, "Session 'cli' active.")
	assert.Contains(t, out, "Review")
	assert.Contains(t, out, "Bye!")
}

func TestSessionLs_Empty(t *testing.T) {
	out, err := execute(t, "", "session", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No active sessions.")
}

func TestConfig_EnvAndFlagPrecedence(t *testing.T) {
	t.Setenv("STAGEFLOW_POLICY", "strict")

	_, err := execute(t, "", "session", "ls")
	assert.ErrorContains(t, err, "unknown access policy")

	_, err = execute(t, "", "session", "ls", "--policy", "sequential")
	assert.NoError(t, err, "flags override the environment")
}

func TestConfig_InvalidStore(t *testing.T) {
	_, err := execute(t, "", "session", "ls", "--store", "sqlite")
	assert.ErrorContains(t, err, "unsupported driver")
}
