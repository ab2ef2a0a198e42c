package main

import (
	"github.com/aretw0/stageflow/internal/cli"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [source]",
		Short: "Check a stage source for consistency",
		Long: `Loads the stage registry (the argument, or the configured registry) and reports
empty pipelines, missing or duplicate ids. With --watch a stage directory is
re-validated on every change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			source := cfg.Registry
			if len(args) > 0 {
				source = args[0]
			}

			watch, _ := cmd.Flags().GetBool("watch")
			if !watch {
				return cli.Validate(cmd.Context(), source, cmd.OutOrStdout())
			}

			logger, err := cli.CreateLogger(cfg.Log)
			if err != nil {
				return err
			}
			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()
			return cli.WatchValidate(sigCtx, source, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().BoolP("watch", "w", false, "Re-validate a stage directory whenever it changes")
	return cmd
}
