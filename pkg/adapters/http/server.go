package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/stageflow"
	"github.com/aretw0/stageflow/internal/logging"
	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/policy"
	"github.com/aretw0/stageflow/pkg/registry"
	"github.com/aretw0/stageflow/pkg/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Engine defines the operations the HTTP adapter needs from the Stageflow engine.
type Engine interface {
	Registry() *registry.Registry
	Policy() policy.Policy
	Start(ctx context.Context, sessionID string) (*domain.State, error)
	Load(ctx context.Context, sessionID string) (*domain.State, error)
	End(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context) ([]string, error)
	MarkCompleted(ctx context.Context, sessionID, stageID string) (*stageflow.Result, error)
	RequestTransition(ctx context.Context, sessionID, stageID string) (*stageflow.Result, error)
	ReachableStages(ctx context.Context, sessionID string) ([]domain.Stage, error)
	Watch(ctx context.Context) (<-chan string, error)
}

// Pinger is implemented by stores that can report connectivity (e.g. Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the Stageflow REST API.
type Server struct {
	Engine   Engine
	Streams  *StreamManager
	logger   *slog.Logger
	pinger   Pinger
	metrics  http.Handler
	validate bool
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager that is also the engine's navigator.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHealthCheck makes /health report the store's connectivity.
func WithHealthCheck(p Pinger) Option {
	return func(s *Server) {
		s.pinger = p
	}
}

// WithMetricsHandler mounts h (typically promhttp.Handler) at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithRequestValidation toggles OpenAPI request validation (default on).
func WithRequestValidation(enabled bool) Option {
	return func(s *Server) {
		s.validate = enabled
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	s := &Server{
		Engine:   engine,
		logger:   logging.NewNop(),
		validate: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(enableCORS)
	if s.validate {
		doc, err := GetSwagger()
		if err != nil {
			return nil, err
		}
		mw, err := validateRequests(doc, s.logger)
		if err != nil {
			return nil, err
		}
		r.Use(mw)
	}

	r.Get("/openapi.yaml", s.getSpec)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/stages", s.ListStages)
	r.Get("/events", s.SubscribeReload)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.StartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.EndSession)
			r.Post("/transitions", s.RequestTransition)
			r.Post("/completions", s.MarkCompleted)
			r.Get("/reachable", s.ReachableStages)
			r.Get("/stages/{stageID}", s.GetStageStatus)
			r.Get("/events", s.SubscribeSession)
		})
	})

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Stageflow API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

func (s *Server) getSpec(w http.ResponseWriter, r *http.Request) {
	spec, err := rawSpec()
	if err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to load spec")
		return
	}
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(spec)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("Health: store unreachable", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, Health{Status: "degraded", StoreError: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, Health{Status: "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	writeJSON(w, http.StatusOK, Info{
		App:        "stageflow-http",
		Version:    strings.TrimSpace(stageflow.Version),
		APIVersion: apiVersion,
	})
}

// ListStages handles GET /stages.
func (s *Server) ListStages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Registry().Stages())
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Sessions(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		s.logger.Warn("StartSession: Invalid request body", "err", err)
		return
	}

	state, err := s.Engine.Start(r.Context(), body.SessionID)
	if err != nil {
		s.fail(w, "StartSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(state))
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionParam(w, r)
	if !ok {
		return
	}
	state, err := s.Engine.Load(r.Context(), sessionID)
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(state))
}

// EndSession handles DELETE /sessions/{sessionID}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionParam(w, r)
	if !ok {
		return
	}
	if err := s.Engine.End(r.Context(), sessionID); err != nil {
		s.fail(w, "EndSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestTransition handles POST /sessions/{sessionID}/transitions.
func (s *Server) RequestTransition(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionParam(w, r)
	if !ok {
		return
	}
	stageID, ok := s.stageBody(w, r)
	if !ok {
		return
	}

	res, err := s.Engine.RequestTransition(r.Context(), sessionID, stageID)
	if err != nil && !errors.Is(err, domain.ErrNavigationFailed) {
		s.fail(w, "RequestTransition", err)
		return
	}

	resp := TransitionResponse{Session: s.view(res.State)}
	if err != nil {
		resp.NavigationError = err.Error()
		s.logger.Warn("RequestTransition: navigation failed", "session_id", sessionID, "stage", stageID, "err", err)
	}
	s.broadcastDiff(sessionID, res.Diff)
	writeJSON(w, http.StatusOK, resp)
}

// MarkCompleted handles POST /sessions/{sessionID}/completions.
func (s *Server) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionParam(w, r)
	if !ok {
		return
	}
	stageID, ok := s.stageBody(w, r)
	if !ok {
		return
	}

	res, err := s.Engine.MarkCompleted(r.Context(), sessionID, stageID)
	if err != nil {
		s.fail(w, "MarkCompleted", err)
		return
	}
	s.broadcastDiff(sessionID, res.Diff)
	writeJSON(w, http.StatusOK, s.view(res.State))
}

// ReachableStages handles GET /sessions/{sessionID}/reachable.
func (s *Server) ReachableStages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionParam(w, r)
	if !ok {
		return
	}
	stages, err := s.Engine.ReachableStages(r.Context(), sessionID)
	if err != nil {
		s.fail(w, "ReachableStages", err)
		return
	}
	if stages == nil {
		stages = []domain.Stage{}
	}
	writeJSON(w, http.StatusOK, stages)
}

// GetStageStatus handles GET /sessions/{sessionID}/stages/{stageID}.
func (s *Server) GetStageStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionParam(w, r)
	if !ok {
		return
	}
	var stageID string
	if err := bindPath("stageID", chi.URLParam(r, "stageID"), &stageID); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	state, err := s.Engine.Load(r.Context(), sessionID)
	if err != nil {
		s.fail(w, "GetStageStatus", err)
		return
	}
	for _, st := range s.steps(state) {
		if st.ID == stageID {
			writeJSON(w, http.StatusOK, st)
			return
		}
	}
	s.fail(w, "GetStageStatus", &domain.StageError{Op: "get_stage", StageID: stageID, Err: domain.ErrUnknownStage})
}

// SubscribeReload handles GET /events: a stream of stage source changes.
func (s *Server) SubscribeReload(w http.ResponseWriter, r *http.Request) {
	events, err := s.Engine.Watch(r.Context())
	if err != nil {
		writeError(w, http.StatusNotImplemented, codeInternal, fmt.Sprintf("watch unavailable: %v", err))
		return
	}
	flusher, ok := startStream(w)
	if !ok {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, Event{Name: EventReload, Data: id})
			flusher.Flush()
		}
	}
}

// SubscribeSession handles GET /sessions/{sessionID}/events.
func (s *Server) SubscribeSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionParam(w, r)
	if !ok {
		return
	}
	if _, err := s.Engine.Load(r.Context(), sessionID); err != nil {
		s.fail(w, "SubscribeSession", err)
		return
	}

	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			watch = append(watch, strings.TrimSpace(f))
		}
	}

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	flusher, ok := startStream(w)
	if !ok {
		return
	}
	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.Name == EventDiff && !keepDiff(evt.Data, watch) {
				continue
			}
			writeEvent(w, evt)
			flusher.Flush()
		}
	}
}

// keepDiff applies the ?watch= filter to a diff event.
func keepDiff(data string, watch []string) bool {
	if len(watch) == 0 {
		return true
	}
	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(data), &diff); err != nil {
		return true
	}
	for _, field := range watch {
		switch field {
		case "current":
			if diff.CurrentStageID != nil {
				return true
			}
		case "completed":
			if len(diff.Completed) > 0 || len(diff.Uncompleted) > 0 {
				return true
			}
		case "history":
			if diff.HistoryParams != nil {
				return true
			}
		}
	}
	return false
}

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternal, "streaming not supported")
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, Event{Name: EventPing, Data: "connected"})
	flusher.Flush()
	return flusher, true
}

func writeEvent(w io.Writer, evt Event) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Name, evt.Data)
}

func (s *Server) broadcastDiff(sessionID string, diff *domain.StateDiff) {
	if diff == nil {
		return
	}
	if _, err := s.Streams.BroadcastJSON(sessionID, EventDiff, diff); err != nil {
		s.logger.Error("Failed to broadcast diff", "session_id", sessionID, "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "err", err)
	}
	writeError(w, status, code, err.Error())
}

func (s *Server) sessionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	var sessionID string
	if err := bindPath("sessionID", chi.URLParam(r, "sessionID"), &sessionID); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return "", false
	}
	return sessionID, true
}

func (s *Server) stageBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body StageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return "", false
	}
	if body.StageID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "stage_id is required")
		return "", false
	}
	return body.StageID, true
}

func bindPath(name, value string, dest *string) error {
	return runtime.BindStyledParameterWithOptions("simple", name, value, dest, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
}

func (s *Server) steps(state *domain.State) []domain.StageStatus {
	return workflow.StatusOf(s.Engine.Registry(), s.Engine.Policy(), state)
}

func (s *Server) view(state *domain.State) Session {
	current, _ := s.Engine.Registry().Get(state.CurrentStageID)
	completed := state.CompletedIDs()
	if completed == nil {
		completed = []string{}
	}
	return Session{
		SessionID:    state.SessionID,
		CurrentStage: current,
		Completed:    completed,
		History:      state.History,
		Steps:        s.steps(state),
		UpdatedAt:    state.UpdatedAt,
	}
}
