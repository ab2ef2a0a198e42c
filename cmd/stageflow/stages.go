package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/aretw0/stageflow/internal/cli"
	"github.com/aretw0/stageflow/internal/presentation/graph"
	"github.com/aretw0/stageflow/pkg/registry"
	"github.com/spf13/cobra"
)

func newStagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Inspect the stage pipeline",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List the stages in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.stages(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tID\tNAME\tTARGET")
			for i, s := range reg.Stages() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, s.ID, s.Name, s.Target)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "graph",
		Short: "Export the pipeline as a Mermaid diagram",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.stages(cmd)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(reg.Stages(), nil))
			return nil
		},
	})

	return cmd
}

// stages loads the configured catalog without starting an engine.
func (a *app) stages(cmd *cobra.Command) (*registry.Registry, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, err
	}
	reg, loader, err := cli.StageSource(cfg.Registry)
	if err != nil {
		return nil, err
	}
	if loader != nil {
		return registry.FromLoader(cmd.Context(), loader)
	}
	return reg, nil
}
