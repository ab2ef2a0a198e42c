package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStageEnter       EventType = "stage_enter"
	EventStageLeave       EventType = "stage_leave"
	EventStageCompleted   EventType = "stage_completed"
	EventTransitionDenied EventType = "transition_denied"
	EventNavigationFailed EventType = "navigation_failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// StageEvent is emitted by the workflow controller.
type StageEvent struct {
	EventBase
	StageID string `json:"stage_id"`
	Target  string `json:"target,omitempty"`
	Err     error  `json:"-"`
}

// NewStageEvent stamps a new event.
func NewStageEvent(typ EventType, sessionID string, stage Stage) *StageEvent {
	return &StageEvent{
		EventBase: EventBase{
			Timestamp: time.Now().UTC(),
			Type:      typ,
			SessionID: sessionID,
		},
		StageID: stage.ID,
		Target:  stage.Target,
	}
}

// LifecycleHooks defines callbacks for controller observability.
// Hooks run after the controller released its lock, so they may call read operations.
type LifecycleHooks struct {
	OnStageEnter       func(context.Context, *StageEvent)
	OnStageLeave       func(context.Context, *StageEvent)
	OnStageCompleted   func(context.Context, *StageEvent)
	OnTransitionDenied func(context.Context, *StageEvent)
	OnNavigationFailed func(context.Context, *StageEvent)
}

// Emit dispatches the event to the matching hook, if any.
func (h LifecycleHooks) Emit(ctx context.Context, e *StageEvent) {
	var fn func(context.Context, *StageEvent)
	switch e.Type {
	case EventStageEnter:
		fn = h.OnStageEnter
	case EventStageLeave:
		fn = h.OnStageLeave
	case EventStageCompleted:
		fn = h.OnStageCompleted
	case EventTransitionDenied:
		fn = h.OnTransitionDenied
	case EventNavigationFailed:
		fn = h.OnNavigationFailed
	}
	if fn != nil {
		fn(ctx, e)
	}
}

// ComposeHooks merges several hook sets; each event reaches every set in order.
func ComposeHooks(sets ...LifecycleHooks) LifecycleHooks {
	fanout := func(pick func(LifecycleHooks) func(context.Context, *StageEvent)) func(context.Context, *StageEvent) {
		var fns []func(context.Context, *StageEvent)
		for _, s := range sets {
			if fn := pick(s); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *StageEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}
	return LifecycleHooks{
		OnStageEnter:       fanout(func(h LifecycleHooks) func(context.Context, *StageEvent) { return h.OnStageEnter }),
		OnStageLeave:       fanout(func(h LifecycleHooks) func(context.Context, *StageEvent) { return h.OnStageLeave }),
		OnStageCompleted:   fanout(func(h LifecycleHooks) func(context.Context, *StageEvent) { return h.OnStageCompleted }),
		OnTransitionDenied: fanout(func(h LifecycleHooks) func(context.Context, *StageEvent) { return h.OnTransitionDenied }),
		OnNavigationFailed: fanout(func(h LifecycleHooks) func(context.Context, *StageEvent) { return h.OnNavigationFailed }),
	}
}
