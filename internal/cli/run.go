package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/stageflow"
	"github.com/aretw0/stageflow/internal/presentation/tui"
	"github.com/aretw0/stageflow/pkg/domain"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	SessionID string
	// Fresh discards any saved progress of SessionID before starting.
	Fresh bool
	In    io.Reader
	Out   io.Writer
	// Navigator renders stage pages; it must be the engine's navigator.
	Navigator *TerminalNavigator
}

const runHelp = `Commands:
  next | <enter>   complete the current stage and move to the next one
  go <stage>       move to a stage
  done [stage]     mark a stage (default: current) completed
  ls               show progress
  help             show this help
  q | quit | exit  leave (progress is kept)`

// Run walks a session through the pipeline interactively.
func Run(ctx context.Context, engine *stageflow.Engine, opts RunOptions) error {
	out := opts.Out
	if opts.Fresh && opts.SessionID != "" {
		if err := engine.End(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("reset session: %w", err)
		}
	}

	state, err := engine.Start(ctx, opts.SessionID)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}
	sessionID := state.SessionID
	printSystemMessage(out, "Session '%s' active.", sessionID)

	current, err := engine.CurrentStage(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := opts.Navigator.Show(current, state.IsCompleted(current.ID)); err != nil {
		return err
	}
	if err := printProgress(ctx, engine, sessionID, out); err != nil {
		return err
	}

	lines := readLines(ctx, opts.In)
	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return io.EOF
			}
			if l.err != nil {
				return fmt.Errorf("read input: %w", l.err)
			}
			clean, err := SanitizeInput(l.text)
			if err != nil {
				printSystemMessage(out, "%v", err)
				continue
			}
			line = strings.TrimSpace(clean)
		}

		quit, err := dispatch(ctx, engine, sessionID, line, out)
		if err != nil {
			printSystemMessage(out, "%v", err)
		}
		if quit {
			return nil
		}
	}
}

func dispatch(ctx context.Context, engine *stageflow.Engine, sessionID, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	cmd := ""
	if len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch cmd {
	case "q", "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(out, runHelp)
	case "ls", "steps":
		return false, printProgress(ctx, engine, sessionID, out)
	case "done":
		if arg == "" {
			current, err := engine.CurrentStage(ctx, sessionID)
			if err != nil {
				return false, err
			}
			arg = current.ID
		}
		res, err := engine.MarkCompleted(ctx, sessionID, arg)
		if err != nil {
			return false, err
		}
		if res.Diff == nil {
			printSystemMessage(out, "'%s' was already completed.", arg)
		} else {
			printSystemMessage(out, "Completed '%s'.", arg)
		}
	case "go":
		if arg == "" {
			return false, errors.New("usage: go <stage>")
		}
		return false, transition(ctx, engine, sessionID, arg, out)
	case "", "next":
		return advance(ctx, engine, sessionID, out)
	default:
		return false, fmt.Errorf("unknown command %q (type 'help')", cmd)
	}
	return false, nil
}

// advance completes the current stage and moves to the following one.
// It reports quit once the last stage is completed.
func advance(ctx context.Context, engine *stageflow.Engine, sessionID string, out io.Writer) (bool, error) {
	current, err := engine.CurrentStage(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if _, err := engine.MarkCompleted(ctx, sessionID, current.ID); err != nil {
		return false, err
	}

	reg := engine.Registry()
	idx, _ := reg.Index(current.ID)
	stages := reg.Stages()
	if idx+1 >= len(stages) {
		printSystemMessage(out, "Pipeline finished at '%s'.", current.ID)
		return true, printProgress(ctx, engine, sessionID, out)
	}
	return false, transition(ctx, engine, sessionID, stages[idx+1].ID, out)
}

func transition(ctx context.Context, engine *stageflow.Engine, sessionID, stageID string, out io.Writer) error {
	if _, err := engine.RequestTransition(ctx, sessionID, stageID); err != nil {
		if errors.Is(err, domain.ErrNavigationFailed) {
			printSystemMessage(out, "Moved to '%s' but the page could not be shown: %v", stageID, err)
			return nil
		}
		return err
	}
	return printProgress(ctx, engine, sessionID, out)
}

func printProgress(ctx context.Context, engine *stageflow.Engine, sessionID string, out io.Writer) error {
	steps, err := engine.Steps(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tui.Sidebar(steps))
	return nil
}

// maxLineBytes bounds what the scanner buffers for one line. Anything
// between this and the sanitizer limit is read whole and then rejected.
const maxLineBytes = 1 << 20

type inputLine struct {
	text string
	err  error
}

// readLines pumps r into a channel so the prompt loop can also watch ctx.
// A read failure is delivered as the final item before the channel closes.
func readLines(ctx context.Context, r io.Reader) <-chan inputLine {
	ch := make(chan inputLine)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case ch <- inputLine{text: scanner.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case ch <- inputLine{err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}
