package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/stageflow"
	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/navigation"
	"github.com/aretw0/stageflow/pkg/policy"
	"github.com/aretw0/stageflow/pkg/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...stageflow.Option) *Server {
	t.Helper()
	reg := registry.MustNew(
		domain.Stage{ID: "a", Name: "A", Target: "/a"},
		domain.Stage{ID: "b", Name: "B", Target: "/b"},
		domain.Stage{ID: "c", Name: "C", Target: "/c"},
	)
	engine, err := stageflow.New(append([]stageflow.Option{stageflow.WithRegistry(reg)}, opts...)...)
	require.NoError(t, err)
	return NewServer(engine)
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func sessionOf(t *testing.T, res *mcp.CallToolResult) SessionView {
	t.Helper()
	require.False(t, res.IsError, textOf(t, res))
	var v SessionView
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &v))
	return v
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := newTestServer(t)

	resp := s.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, name := range []string{
		"list_stages", "start_session", "get_session", "request_transition",
		"mark_completed", "reachable_stages", "end_session",
	} {
		assert.Contains(t, string(data), `"name":"`+name+`"`)
	}
}

func TestListStages(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleListStages(ctx, call("list_stages", nil))
	require.NoError(t, err)

	var stages []domain.Stage
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &stages))
	require.Len(t, stages, 3)
	assert.Equal(t, "a", stages[0].ID)
}

func TestSessionFlow(t *testing.T) {
	rec := &navigation.Recorder{}
	s := newTestServer(t, stageflow.WithNavigator(rec))
	ctx := context.Background()

	res, err := s.handleStartSession(ctx, call("start_session", map[string]any{"session_id": "s1"}))
	require.NoError(t, err)
	v := sessionOf(t, res)
	assert.Equal(t, "s1", v.SessionID)
	assert.Equal(t, "a", v.CurrentStage.ID)

	res, err = s.handleRequestTransition(ctx, call("request_transition", map[string]any{"session_id": "s1", "stage_id": "c"}))
	require.NoError(t, err)
	v = sessionOf(t, res)
	assert.Equal(t, "c", v.CurrentStage.ID)
	assert.Empty(t, v.NavigationError)
	assert.Equal(t, []string{"/c"}, rec.Targets())

	res, err = s.handleMarkCompleted(ctx, call("mark_completed", map[string]any{"session_id": "s1", "stage_id": "a"}))
	require.NoError(t, err)
	v = sessionOf(t, res)
	assert.Equal(t, []string{"a"}, v.Completed)
	assert.Equal(t, "c", v.CurrentStage.ID)

	res, err = s.handleGetSession(ctx, call("get_session", map[string]any{"session_id": "s1"}))
	require.NoError(t, err)
	v = sessionOf(t, res)
	require.Len(t, v.Steps, 3)
	assert.True(t, v.Steps[0].Completed)
	assert.True(t, v.Steps[2].Current)

	res, err = s.handleEndSession(ctx, call("end_session", map[string]any{"session_id": "s1"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleGetSession(ctx, call("get_session", map[string]any{"session_id": "s1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRequestTransition_NavigationFailureIsReported(t *testing.T) {
	rec := &navigation.Recorder{Err: assert.AnError}
	s := newTestServer(t, stageflow.WithNavigator(rec))
	ctx := context.Background()

	_, err := s.handleStartSession(ctx, call("start_session", map[string]any{"session_id": "s1"}))
	require.NoError(t, err)

	res, err := s.handleRequestTransition(ctx, call("request_transition", map[string]any{"session_id": "s1", "stage_id": "b"}))
	require.NoError(t, err)
	v := sessionOf(t, res)
	assert.Equal(t, "b", v.CurrentStage.ID)
	assert.Contains(t, v.NavigationError, assert.AnError.Error())
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t, stageflow.WithPolicy(policy.Sequential{}))
	ctx := context.Background()
	_, err := s.handleStartSession(ctx, call("start_session", map[string]any{"session_id": "s1"}))
	require.NoError(t, err)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]any
		want    string
	}{
		{"unknown stage", s.handleRequestTransition, map[string]any{"session_id": "s1", "stage_id": "z"}, domain.ErrUnknownStage.Error()},
		{"denied", s.handleRequestTransition, map[string]any{"session_id": "s1", "stage_id": "c"}, domain.ErrAccessDenied.Error()},
		{"missing stage arg", s.handleMarkCompleted, map[string]any{"session_id": "s1"}, "stage_id"},
		{"missing session", s.handleReachableStages, map[string]any{"session_id": "nope"}, domain.ErrSessionNotFound.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.handler(ctx, call("", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, textOf(t, res), tt.want)
		})
	}
}

func TestReachableStages_Sequential(t *testing.T) {
	s := newTestServer(t, stageflow.WithPolicy(policy.Sequential{}))
	ctx := context.Background()
	_, err := s.handleStartSession(ctx, call("start_session", map[string]any{"session_id": "s1"}))
	require.NoError(t, err)

	res, err := s.handleReachableStages(ctx, call("reachable_stages", map[string]any{"session_id": "s1"}))
	require.NoError(t, err)
	var stages []domain.Stage
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &stages))
	require.Len(t, stages, 1)
	assert.Equal(t, "a", stages[0].ID)
}

func TestStagesResource(t *testing.T) {
	s := newTestServer(t)

	contents, err := s.readStages(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, StagesURI, text.URI)
	assert.Contains(t, text.Text, `"id":"b"`)
}
