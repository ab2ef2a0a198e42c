package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aretw0/stageflow/internal/cli"
	"github.com/aretw0/stageflow/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Starts the Stageflow engine as an MCP Server.
This allows AI agents to list stages and drive sessions as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, _ := cmd.Flags().GetString("transport")
			port, _ := cmd.Flags().GetInt("port")

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			rt, err := a.runtime(sigCtx)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = rt.Close(ctx)
			}()

			srv := mcp.NewServer(rt.Engine, mcp.WithLogger(rt.Logger))

			switch transport {
			case "stdio":
				// Ensure logs don't corrupt JSON-RPC on Stdout
				log.SetOutput(os.Stderr)
				rt.Logger.Info("Starting Stageflow MCP Server (Stdio)")
				return srv.ServeStdio()
			case "sse":
				rt.Logger.Info("Starting Stageflow MCP Server (SSE)", "port", port)
				if err := srv.ServeSSE(sigCtx, port); err != nil {
					return fmt.Errorf("MCP server execution failed: %w", err)
				}
				rt.Logger.Info("MCP Server stopped gracefully")
				return nil
			default:
				return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
			}
		},
	}

	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	return cmd
}
