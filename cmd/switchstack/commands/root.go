package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"switchstack/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "switchstack",
	Short: "Control rooms and switches of a SwitchStack home",
	Long: `switchstack - keep room and switch state in sync with the home server.

The session, user and last known rooms are cached on disk so every command
starts from the previous state and works with the server unreachable.

Examples:
  switchstack login --email ana@example.com --password secret
  switchstack rooms list
  switchstack toggle esp-kitchen 64f0c2
  switchstack watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with ctx, which is cancelled on SIGINT.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig falls back to defaults when the default config file is absent.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("config not available: %w", err)
}
