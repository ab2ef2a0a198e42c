package main

import (
	"context"
	"fmt"

	"github.com/aretw0/stageflow/internal/cli"
	"github.com/aretw0/stageflow/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the layered configuration shared by every subcommand.
type app struct {
	v          *viper.Viper
	configPath string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "stageflow",
		Short: "Stageflow tracks progress through an ordered pipeline of stages",
		Long: `Stageflow keeps one current stage and a set of completed stages per session,
gates transitions with an access policy and tells the view where to go.

Configuration is read from stageflow.yaml (or --config), STAGEFLOW_* environment
variables and the flags below, in increasing order of precedence.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default ./stageflow.yaml when present)")
	flags.String("registry", "", "Stage source: a YAML/JSON registry file or a directory of stage documents (default: built-in pipeline)")
	flags.String("policy", "", "Access policy: permissive or sequential")
	flags.String("store", "", "Session store: memory or redis")
	flags.String("redis-addr", "", "Redis address for the redis store")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("commands", "", "Commands file for the local command navigator (YAML/JSON)")

	for key, flag := range map[string]string{
		"registry":           "registry",
		"policy":             "policy",
		"store.driver":       "store",
		"store.redis.addr":   "redis-addr",
		"log.level":          "log-level",
		"log.format":         "log-format",
		"navigator.commands": "commands",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(
		newServeCmd(a),
		newMCPCmd(a),
		newRunCmd(a),
		newStagesCmd(a),
		newValidateCmd(a),
		newSessionCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// load merges config sources once flags are parsed.
func (a *app) load() (config.Config, error) {
	return config.Load(a.v, a.configPath)
}

// runtime builds the engine for commands that drive sessions.
func (a *app) runtime(ctx context.Context, opts ...cli.RuntimeOption) (*cli.Runtime, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, err
	}
	logger, err := cli.CreateLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	return cli.NewRuntime(ctx, cfg, logger, opts...)
}
