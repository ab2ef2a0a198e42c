package http

import (
	"time"

	"github.com/aretw0/stageflow/pkg/domain"
)

// Health is the body of GET /health.
type Health struct {
	Status     string `json:"status"`
	StoreError string `json:"store_error,omitempty"`
}

// Info is the body of GET /info.
type Info struct {
	App        string `json:"app"`
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
}

// StartSessionRequest is the optional body of POST /sessions.
type StartSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// StageRequest is the body of transition and completion requests.
type StageRequest struct {
	StageID string `json:"stage_id"`
}

// Session is the wire form of a session snapshot.
type Session struct {
	SessionID    string               `json:"session_id"`
	CurrentStage domain.Stage         `json:"current_stage"`
	Completed    []string             `json:"completed"`
	History      []string             `json:"history,omitempty"`
	Steps        []domain.StageStatus `json:"steps"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// TransitionResponse is the body of a committed transition.
type TransitionResponse struct {
	Session         Session `json:"session"`
	NavigationError string  `json:"navigation_error,omitempty"`
}

// Error is the body of every non-2xx JSON response.
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SSE event names.
const (
	EventPing     = "ping"
	EventNavigate = "navigate"
	EventDiff     = "diff"
	EventReload   = "reload"
)

// NavigatePayload is the data of a navigate event.
type NavigatePayload struct {
	SessionID string `json:"session_id"`
	Target    string `json:"target"`
}
