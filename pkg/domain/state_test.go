package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestState_CloneIsDeep(t *testing.T) {
	s := NewState("sess", "setup")
	s.Completed["setup"] = true

	c := s.Clone()
	c.Completed["reports"] = true
	c.History = append(c.History, "reports")
	c.CurrentStageID = "reports"

	if s.IsCompleted("reports") {
		t.Error("mutating the clone leaked into the original completed set")
	}
	if len(s.History) != 1 {
		t.Errorf("original history changed: %v", s.History)
	}
	if s.CurrentStageID != "setup" {
		t.Errorf("original current stage changed: %s", s.CurrentStageID)
	}
}

func TestNavigationError_MatchesSentinel(t *testing.T) {
	cause := errors.New("router unavailable")
	var err error = &NavigationError{StageID: "reports", Target: "/reports", Err: cause}
	wrapped := fmt.Errorf("transition: %w", err)

	if !errors.Is(wrapped, ErrNavigationFailed) {
		t.Error("expected errors.Is(ErrNavigationFailed)")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected the cause to stay reachable")
	}

	var navErr *NavigationError
	if !errors.As(wrapped, &navErr) || navErr.Target != "/reports" {
		t.Errorf("expected NavigationError with target, got %v", navErr)
	}
}

func TestStageError_Unwrap(t *testing.T) {
	err := &StageError{Op: "mark_completed", StageID: "zzz", Err: ErrUnknownStage}
	if !errors.Is(err, ErrUnknownStage) {
		t.Error("expected ErrUnknownStage")
	}
	if errors.Is(err, ErrAccessDenied) {
		t.Error("did not expect ErrAccessDenied")
	}
	if got, want := err.Error(), `mark_completed "zzz": unknown stage`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestComposeHooks(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnStageEnter: func(ctx context.Context, e *StageEvent) { calls = append(calls, "a:"+e.StageID) }}
	b := LifecycleHooks{
		OnStageEnter:     func(ctx context.Context, e *StageEvent) { calls = append(calls, "b:"+e.StageID) },
		OnStageCompleted: func(ctx context.Context, e *StageEvent) { calls = append(calls, "done:"+e.StageID) },
	}

	hooks := ComposeHooks(a, b, LifecycleHooks{})
	hooks.Emit(context.Background(), NewStageEvent(EventStageEnter, "s", Stage{ID: "x"}))
	hooks.Emit(context.Background(), NewStageEvent(EventStageCompleted, "s", Stage{ID: "y"}))
	hooks.Emit(context.Background(), NewStageEvent(EventNavigationFailed, "s", Stage{ID: "z"}))

	want := []string{"a:x", "b:x", "done:y"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if hooks.OnNavigationFailed != nil {
		t.Error("expected nil hook when no set defines it")
	}
}
