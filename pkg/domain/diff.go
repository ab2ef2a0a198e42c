package domain

// StateDiff represents the changes between two states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentStageID *string `json:"current_stage_id,omitempty"`

	// Completed lists stage ids that became completed.
	Completed []string `json:"completed,omitempty"`

	// Uncompleted lists stage ids no longer completed. No core operation produces
	// this today, but restored snapshots may.
	Uncompleted []string `json:"uncompleted,omitempty"`

	HistoryParams *HistoryDelta `json:"history,omitempty"`
}

// HistoryDelta represents changes to the history stack.
type HistoryDelta struct {
	Appended []string `json:"appended"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// Returns nil when nothing changed.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.CurrentStageID != newState.CurrentStageID {
		diff.CurrentStageID = &newState.CurrentStageID
	}

	for _, id := range newState.CompletedIDs() {
		if oldState == nil || !oldState.IsCompleted(id) {
			diff.Completed = append(diff.Completed, id)
		}
	}
	if oldState != nil {
		for _, id := range oldState.CompletedIDs() {
			if !newState.IsCompleted(id) {
				diff.Uncompleted = append(diff.Uncompleted, id)
			}
		}
	}

	diff.HistoryParams = diffHistory(oldState, newState)

	if diff.CurrentStageID == nil &&
		len(diff.Completed) == 0 &&
		len(diff.Uncompleted) == 0 &&
		diff.HistoryParams == nil {
		return nil
	}

	return diff
}

// diffHistory assumes standard append-only behavior for History.
func diffHistory(old *State, new *State) *HistoryDelta {
	if len(new.History) == 0 {
		return nil
	}

	if old == nil {
		return &HistoryDelta{Appended: new.History}
	}

	oldLen := len(old.History)
	if len(new.History) > oldLen {
		return &HistoryDelta{
			Appended: new.History[oldLen:],
		}
	}

	return nil
}
