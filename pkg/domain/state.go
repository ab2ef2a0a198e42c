package domain

import (
	"sort"
	"time"
)

// State represents the progress snapshot of one session.
type State struct {
	// SessionID identifies the session owning this state.
	SessionID string `json:"session_id"`

	// CurrentStageID is the single active stage. "Current" is never stored per stage.
	CurrentStageID string `json:"current_stage_id"`

	// Completed holds the ids of stages marked done.
	Completed map[string]bool `json:"completed,omitempty"`

	// History tracks the stages entered, starting with the initial one.
	History []string `json:"history,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a clean state positioned at the given stage.
func NewState(sessionID, startStageID string) *State {
	return &State{
		SessionID:      sessionID,
		CurrentStageID: startStageID,
		Completed:      make(map[string]bool),
		History:        []string{startStageID},
		UpdatedAt:      time.Now().UTC(),
	}
}

// IsCompleted reports whether the stage id is in the completed set.
func (s *State) IsCompleted(stageID string) bool {
	return s.Completed[stageID]
}

// CompletedIDs returns the completed ids sorted lexically.
// Callers needing pipeline order should go through the registry.
func (s *State) CompletedIDs() []string {
	ids := make([]string, 0, len(s.Completed))
	for id, done := range s.Completed {
		if done {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Completed = make(map[string]bool, len(s.Completed))
	for k, v := range s.Completed {
		c.Completed[k] = v
	}
	if s.History != nil {
		c.History = append([]string(nil), s.History...)
	}
	return &c
}
