package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intake server",
	Long: `Start the intake HTTP server.

The server provides:
  - POST /api/analyze - Classify and extract an uploaded document (field "document")
  - /health           - Basic server health check
  - /ready            - Readiness check (fails when no oracle provider is configured)
  - /status           - Providers and pipeline settings
  - /api/metrics      - Oracle call history and cost summary
  - /api/prompts      - Prompts as the oracle sees them
  - /openapi.json     - OpenAPI document (browse at /docs)

The config file is watched; provider and pipeline changes apply to new requests.

Examples:
  intake serve                    # Start on the configured port (default 8080)
  intake serve --port 3000        # Start on custom port
  intake serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rt, err := loadApp(os.Stdout)
		if err != nil {
			return err
		}
		if err := rt.home.EnsureExists(); err != nil {
			return err
		}
		rt.config.WatchConfig()

		cfg := rt.config.Get()
		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host:     host,
			Port:     port,
			Services: rt.services,
			Logger:   rt.logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
