package main

import (
	"context"
	"os"
	"time"

	"github.com/aretw0/stageflow/internal/cli"
	"github.com/aretw0/stageflow/internal/presentation/tui"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Walk a session through the pipeline interactively",
		Long: `Shows the current stage page and a progress sidebar, then reads commands
(next, go <stage>, done [stage], ls, q) from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			fresh, _ := cmd.Flags().GetBool("fresh")
			out := cmd.OutOrStdout()

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			interactive := term.IsTerminal(int(os.Stdout.Fd()))
			render, err := tui.NewRenderer(rendererOptions(interactive)...)
			if err != nil {
				return err
			}
			nav := &cli.TerminalNavigator{Out: out, Render: render}

			rt, err := a.runtime(sigCtx, cli.WithNavigator(nav))
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = rt.Close(ctx)
			}()
			nav.Stages = rt.Engine.Registry()

			if interactive {
				tui.PrintBanner(out)
			}

			err = cli.Run(sigCtx, rt.Engine, cli.RunOptions{
				SessionID: sessionID,
				Fresh:     fresh,
				In:        cmd.InOrStdin(),
				Out:       out,
				Navigator: nav,
			})
			return cli.Finish(out, sigCtx, err)
		},
	}

	cmd.Flags().StringP("session", "s", "", "Session id to create or resume (default: a new random id)")
	cmd.Flags().Bool("fresh", false, "Discard saved progress of --session before starting")
	return cmd
}

// rendererOptions word-wraps to the terminal width and drops styling when not on a TTY.
func rendererOptions(interactive bool) []glamour.TermRendererOption {
	if !interactive {
		return []glamour.TermRendererOption{glamour.WithStandardStyle("notty")}
	}
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 20 {
		opts = append(opts, glamour.WithWordWrap(width-4))
	}
	return opts
}
