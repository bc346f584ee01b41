package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analyze_document tool over MCP stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing one tool,
analyze_document(path, mode), backed by the local pipeline.

Logs go to stderr. Example client entry:
  {"command": "intake", "args": ["mcp"]}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadApp(os.Stderr)
		if err != nil {
			return err
		}
		rt.config.WatchConfig()
		return mcp.New(rt.services, rt.logger).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
