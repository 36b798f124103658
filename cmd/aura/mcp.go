package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aura/internal/mcp"
	"aura/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server on stdio",
	Long: `Start the Model Context Protocol (MCP) server.

The server reads line-delimited JSON-RPC 2.0 requests on stdin and writes
responses on stdout. Logs go to .aura/logs/mcp.log (or stderr when file
logging is disabled).

This command is typically invoked by MCP clients, not directly by users.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := a.serverOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewMCPServer(version.Info(), opts, a.logger)
	server.SetStdin(cmd.InOrStdin())
	server.SetStdout(cmd.OutOrStdout())
	if err := server.Start(ctx); err != nil {
		a.logger.Error("MCP server error", "error", err.Error())
		return err
	}
	return nil
}
