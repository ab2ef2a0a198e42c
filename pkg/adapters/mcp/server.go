package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stageflow"
	"github.com/aretw0/stageflow/internal/logging"
	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/policy"
	"github.com/aretw0/stageflow/pkg/registry"
	"github.com/aretw0/stageflow/pkg/workflow"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StagesURI is the resource exposing the stage registry.
const StagesURI = "stageflow://stages"

// SessionView aligns with the HTTP Session schema and provides a unified structure across adapters.
type SessionView struct {
	SessionID       string               `json:"session_id" jsonschema_description:"The session identifier"`
	CurrentStage    domain.Stage         `json:"current_stage" jsonschema_description:"The active stage"`
	Completed       []string             `json:"completed" jsonschema_description:"Ids of completed stages"`
	Steps           []domain.StageStatus `json:"steps" jsonschema_description:"Every stage with its current/completed/reachable flags"`
	NavigationError string               `json:"navigation_error,omitempty" jsonschema_description:"Set when the transition was committed but the view could not follow"`
}

// Engine defines the interface required by the MCP server to interact with Stageflow.
type Engine interface {
	Registry() *registry.Registry
	Policy() policy.Policy
	Start(ctx context.Context, sessionID string) (*domain.State, error)
	Load(ctx context.Context, sessionID string) (*domain.State, error)
	End(ctx context.Context, sessionID string) error
	MarkCompleted(ctx context.Context, sessionID, stageID string) (*stageflow.Result, error)
	RequestTransition(ctx context.Context, sessionID, stageID string) (*stageflow.Result, error)
	ReachableStages(ctx context.Context, sessionID string) ([]domain.Stage, error)
}

// Server wraps the Stageflow Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("stageflow-mcp", strings.TrimSpace(stageflow.Version), server.WithToolCapabilities(false)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server (e.g. for in-process clients).
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_stages",
		mcp.WithDescription("List the pipeline stages in order."),
	), s.handleListStages)

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a session at the first stage, or resume it if it already exists."),
		mcp.WithString("session_id", mcp.Description("Session id (generated when omitted)")),
		mcp.WithOutputSchema[SessionView](),
	), s.handleStartSession)

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the current stage, completed stages and per-stage status of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[SessionView](),
	), s.handleGetSession)

	s.mcpServer.AddTool(mcp.NewTool("request_transition",
		mcp.WithDescription("Move the session to a stage. Denied when the access policy rejects it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("stage_id", mcp.Required(), mcp.Description("Target stage id")),
		mcp.WithOutputSchema[SessionView](),
	), s.handleRequestTransition)

	s.mcpServer.AddTool(mcp.NewTool("mark_completed",
		mcp.WithDescription("Mark a stage as completed without changing the current stage."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("stage_id", mcp.Required(), mcp.Description("Stage id")),
		mcp.WithOutputSchema[SessionView](),
	), s.handleMarkCompleted)

	s.mcpServer.AddTool(mcp.NewTool("reachable_stages",
		mcp.WithDescription("List the stages the access policy currently allows for the session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.handleReachableStages)

	s.mcpServer.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("Discard a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.handleEndSession)
}

func (s *Server) handleListStages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.engine.Registry().Stages())
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := s.engine.Start(ctx, request.GetString("session_id", ""))
	if err != nil {
		return s.toolError("start_session", err), nil
	}
	return structuredResult(s.view(state, ""))
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, err := s.engine.Load(ctx, sessionID)
	if err != nil {
		return s.toolError("get_session", err), nil
	}
	return structuredResult(s.view(state, ""))
}

func (s *Server) handleRequestTransition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, stageID, errResult := sessionAndStage(request)
	if errResult != nil {
		return errResult, nil
	}
	res, err := s.engine.RequestTransition(ctx, sessionID, stageID)
	if err != nil && !errors.Is(err, domain.ErrNavigationFailed) {
		return s.toolError("request_transition", err), nil
	}
	navErr := ""
	if err != nil {
		navErr = err.Error()
		s.logger.Warn("MCP RequestTransition: navigation failed", "session_id", sessionID, "stage", stageID, "err", err)
	}
	return structuredResult(s.view(res.State, navErr))
}

func (s *Server) handleMarkCompleted(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, stageID, errResult := sessionAndStage(request)
	if errResult != nil {
		return errResult, nil
	}
	res, err := s.engine.MarkCompleted(ctx, sessionID, stageID)
	if err != nil {
		return s.toolError("mark_completed", err), nil
	}
	return structuredResult(s.view(res.State, ""))
}

func (s *Server) handleReachableStages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stages, err := s.engine.ReachableStages(ctx, sessionID)
	if err != nil {
		return s.toolError("reachable_stages", err), nil
	}
	if stages == nil {
		stages = []domain.Stage{}
	}
	return jsonResult(stages)
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.End(ctx, sessionID); err != nil {
		return s.toolError("end_session", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("session %s ended", sessionID)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StagesURI, "Stage Pipeline",
		mcp.WithResourceDescription("The ordered stage registry"),
		mcp.WithMIMEType("application/json"),
	), s.readStages)
}

func (s *Server) readStages(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.engine.Registry().Stages())
	if err != nil {
		return nil, fmt.Errorf("failed to encode stages: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StagesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// toolError reports domain failures as tool results so the model can react to them.
func (s *Server) toolError(op string, err error) *mcp.CallToolResult {
	s.logger.Debug("MCP tool failed", "tool", op, "err", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, err))
}

func sessionAndStage(request mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	stageID, err := request.RequireString("stage_id")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return sessionID, stageID, nil
}

func (s *Server) view(state *domain.State, navErr string) SessionView {
	current, _ := s.engine.Registry().Get(state.CurrentStageID)
	completed := state.CompletedIDs()
	if completed == nil {
		completed = []string{}
	}
	return SessionView{
		SessionID:       state.SessionID,
		CurrentStage:    current,
		Completed:       completed,
		Steps:           workflow.StatusOf(s.engine.Registry(), s.engine.Policy(), state),
		NavigationError: navErr,
	}
}

func structuredResult(v SessionView) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return mcp.NewToolResultStructured(v, string(data)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
