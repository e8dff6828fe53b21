package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"relay/internal/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP (Model Context Protocol) server on stdin/stdout",
	Long:  "Exposes every routed slash command as an MCP tool. Agents can discover and run commands via the MCP protocol.",
	Args:  cobra.NoArgs,
	RunE:  serveMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func serveMCP(cmd *cobra.Command, args []string) error {
	catalog, reg, err := loadCatalog()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := server.NewMCPServer(catalog, newRuntime(reg, nil))
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}
