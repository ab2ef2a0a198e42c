package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/stageflow"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of stageflow",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stageflow version %s\n", strings.TrimSpace(stageflow.Version))
		},
	}
}
