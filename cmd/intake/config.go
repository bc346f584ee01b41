package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/config"
	"github.com/jackzampolin/intake/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		path := cfgFile
		if path == "" {
			path = h.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (API keys redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := config.LoadDotEnv(".env", h.EnvPath()); err != nil {
			return err
		}
		cm, err := config.NewManager(cfgFile, h.Path())
		if err != nil {
			return err
		}

		cfg := *cm.Get()
		cfg.LLMProviders = make(map[string]config.LLMProviderCfg, len(cm.Get().LLMProviders))
		for name, p := range cm.Get().LLMProviders {
			p.APIKey = redact(config.ResolveEnvVars(p.APIKey))
			cfg.LLMProviders[name] = p
		}
		return api.Output(cfg)
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every config key with its default and description",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := config.DefaultEntries()
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		return api.Output(entries)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "default <key>",
	Short: "Print the default value of a config key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.DefaultValue(args[0])
		if errors.Is(err, config.ErrNoDefault) {
			return fmt.Errorf("unknown key %q (see `intake config keys`)", args[0])
		}
		if err != nil {
			return err
		}
		return api.Output(v)
	},
}

// redact keeps enough of a key to tell which one is loaded.
func redact(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "****" + key[len(key)-4:]
	}
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}
