package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nodedesk/pkg/config"
	"nodedesk/pkg/version"
)

const defaultConfigPath = "configs/nodedesk.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		os.Exit(1)
	}
}

// cliOptions holds the persistent flags shared by all commands.
type cliOptions struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "nodedesk",
		Short: "Settings service for the node desktop client",
		Long: `nodedesk keeps the desktop client's settings record, decides which node
the client talks to, and serves both to the renderer over HTTP.

Run without a subcommand to start the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "Path to the YAML config file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "Additional .env files to load (default .env)")

	root.AddCommand(
		newServeCmd(opts),
		newSettingsCmd(opts),
		newConnectionCmd(opts),
		newInitConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the settings server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
}

func newInitConfigCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Generate the default config file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.GenerateDefault(opts.configPath); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file generated: %s\n", opts.configPath)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	}
}

// loadConfig reads the env files and the config file, then applies the
// environment overrides.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	if err := config.LoadEnv(opts.envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(cfg)
	return cfg, nil
}

func appVersion(cfg *config.Config) string {
	if cfg.App.Version != "" {
		return cfg.App.Version
	}
	return version.Version
}
