package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/stageflow/pkg/ports"
	"github.com/aretw0/stageflow/pkg/registry"
)

// reloadDelay lets editors finish writing before the stage source is re-read.
const reloadDelay = 100 * time.Millisecond

// Validate loads the stage source at path and reports the pipeline or the problems found.
func Validate(ctx context.Context, path string, out io.Writer) error {
	reg, loader, err := StageSource(path)
	if err != nil {
		return err
	}
	if loader != nil {
		if reg, err = registry.FromLoader(ctx, loader); err != nil {
			return err
		}
	}
	report(out, path, reg)
	return nil
}

func report(out io.Writer, path string, reg *registry.Registry) {
	if path == "" {
		path = "default pipeline"
	}
	printSystemMessage(out, "%s: %d stages OK", path, reg.Len())
	for i, s := range reg.Stages() {
		fmt.Fprintf(out, "  %2d. %-24s %s\n", i+1, s.ID, s.Target)
	}
}

// WatchValidate re-validates a stage directory every time it changes, until ctx is done.
func WatchValidate(ctx context.Context, path string, out io.Writer, logger *slog.Logger) error {
	_, loader, err := StageSource(path)
	if err != nil {
		return err
	}
	w, ok := loader.(ports.Watchable)
	if !ok {
		return errors.New("--watch requires a stage directory")
	}

	events, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	check := func() {
		reg, err := registry.FromLoader(ctx, loader)
		if err != nil {
			printSystemMessage(out, "%s: invalid: %v", path, err)
			return
		}
		report(out, path, reg)
	}

	check()
	printSystemMessage(out, "Waiting for changes...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			logger.Info("Change detected, revalidating", "event", event)
			printSystemMessage(out, "Change detected in '%s'.", event)
			select {
			case <-time.After(reloadDelay):
			case <-ctx.Done():
				return nil
			}
			check()
		}
	}
}
