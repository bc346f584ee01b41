package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/config"
	"github.com/jackzampolin/intake/internal/home"
	"github.com/jackzampolin/intake/internal/svcctx"
	"github.com/jackzampolin/intake/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Classify résumés and ID cards and extract their fields with an LLM",
	Long: `intake classifies an uploaded document as a résumé (CV), an identity
card (CI) or neither, and extracts a validated JSON record.

The pipeline includes:
  - Fast-path text extraction for digital PDFs
  - Vision fallback over the rendered first page or the uploaded photo
  - JSON schema validation of every oracle answer
  - An HTTP API, a local runner and an MCP tool over the same pipeline`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.intake/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "intake home directory (default: ~/.intake)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// app is everything a local command needs to run the pipeline.
type app struct {
	home     *home.Dir
	config   *config.Manager
	logger   *slog.Logger
	services *svcctx.Services
}

// loadApp resolves the home directory, loads .env files and config,
// and wires the service graph. Logs go to logOut.
func loadApp(logOut io.Writer) (*app, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	// ./.env wins over the home one since godotenv never overwrites.
	if err := config.LoadDotEnv(".env", h.EnvPath()); err != nil {
		return nil, err
	}

	cm, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cm.Get().Log, logOut)
	cm.SetLogger(logger)
	if f := cm.ConfigFile(); f != "" {
		logger.Debug("loaded config", "file", f)
	}

	return &app{
		home:     h,
		config:   cm,
		logger:   logger,
		services: svcctx.New(cm, nil, h, logger),
	}, nil
}
