package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/logger"
)

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "wayplat",
		Short: "wayplat - Wayland client platform layer",
		Long: `wayplat connects to a Wayland compositor and exposes the pieces a UI
toolkit needs: the global registry, the screen layout, toplevel windows,
and clipboard / drag-and-drop transfers.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.SetConfigPath(configPath)
			}
			if err := config.Init(); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if logLevel != "" {
				logger.SetLevel(logLevel)
			}
			return nil
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/wayplat/wayplat.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}
