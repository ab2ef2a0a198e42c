package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stageflow/pkg/domain"
)

// AuditHooks logs every lifecycle event at Info (Warn for denials and navigation failures).
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(level slog.Level) func(context.Context, *domain.StageEvent) {
		return func(ctx context.Context, e *domain.StageEvent) {
			attrs := []any{
				"event", string(e.Type),
				"session_id", e.SessionID,
				"stage", e.StageID,
			}
			if e.Target != "" {
				attrs = append(attrs, "target", e.Target)
			}
			if e.Err != nil {
				attrs = append(attrs, "err", e.Err)
			}
			logger.Log(ctx, level, "stage event", attrs...)
		}
	}
	return domain.LifecycleHooks{
		OnStageEnter:       log(slog.LevelInfo),
		OnStageLeave:       log(slog.LevelDebug),
		OnStageCompleted:   log(slog.LevelInfo),
		OnTransitionDenied: log(slog.LevelWarn),
		OnNavigationFailed: log(slog.LevelWarn),
	}
}
