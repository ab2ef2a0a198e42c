package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/stageflow/internal/cli"
	"github.com/spf13/cobra"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage live sessions",
		Long:  `List, inspect, and remove sessions held by the configured store (use --store redis for shared sessions).`,
	}

	withEngine := func(fn func(cmd *cobra.Command, rt *cli.Runtime, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = rt.Close(ctx)
			}()
			return fn(cmd, rt, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List all active sessions",
		RunE: withEngine(func(cmd *cobra.Command, rt *cli.Runtime, args []string) error {
			return cli.ListSessions(cmd.Context(), rt.Engine, cmd.OutOrStdout())
		}),
	})

	inspect := &cobra.Command{
		Use:   "inspect <session-id>",
		Short: "Inspect the progress of a session",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(cmd *cobra.Command, rt *cli.Runtime, args []string) error {
			mermaid, _ := cmd.Flags().GetBool("mermaid")
			return cli.InspectSession(cmd.Context(), rt.Engine, args[0], mermaid, cmd.OutOrStdout())
		}),
	}
	inspect.Flags().Bool("mermaid", false, "Print a Mermaid diagram with the session overlay")
	cmd.AddCommand(inspect)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <session-id>...",
		Short: "Remove one or more sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: withEngine(func(cmd *cobra.Command, rt *cli.Runtime, args []string) error {
			var errs []error
			for _, sessionID := range args {
				if err := cli.RemoveSession(cmd.Context(), rt.Engine, sessionID, cmd.OutOrStdout()); err != nil {
					errs = append(errs, fmt.Errorf("remove %q: %w", sessionID, err))
				}
			}
			return errors.Join(errs...)
		}),
	})

	return cmd
}
