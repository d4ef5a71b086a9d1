package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wayplat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		logger.Infof("Config file: %s", config.GetConfigPath())

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, row := range configRows(cfg) {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", row[0], row[1]); err != nil {
				logger.Errorf("Failed to write setting: %v", err)
			}
		}
		return w.Flush()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.GetConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(configPath); err == nil && !force {
			logger.Infof("Configuration file already exists at: %s", configPath)
			logger.Info("Use --force to overwrite")
			return nil
		}

		cfg := *config.Get()
		if useDefaults, _ := cmd.Flags().GetBool("defaults"); useDefaults {
			cfg = config.DefaultConfig
		} else if err := promptConfig(&cfg); err != nil {
			return fmt.Errorf("configuration cancelled: %w", err)
		}

		if err := config.Update(cfg); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		return nil
	},
}

func configRows(cfg *config.Config) [][2]string {
	socket := cfg.Display.Socket
	if socket == "" {
		socket = "$WAYLAND_DISPLAY"
	}
	level := cfg.Logging.LogLevel
	if level == "" {
		level = "$LOG_LEVEL"
	}
	return [][2]string{
		{"display.socket", socket},
		{"display.roundtrip_timeout", cfg.Display.RoundtripTimeout.String()},
		{"window.app_id", cfg.Window.AppID},
		{"window.title", cfg.Window.Title},
		{"window.fallback_size", fmt.Sprintf("%dx%d", cfg.Window.FallbackWidth, cfg.Window.FallbackHeight)},
		{"window.ratio", fmt.Sprintf("%.2f x %.2f", cfg.Window.WidthRatio, cfg.Window.HeightRatio)},
		{"transfer.read_timeout", cfg.Transfer.ReadTimeout.String()},
		{"transfer.write_timeout", cfg.Transfer.WriteTimeout.String()},
		{"logging.log_level", level},
	}
}

// validateAppID checks the reverse-DNS shape xdg_toplevel.set_app_id expects.
func validateAppID(id string) error {
	if id == "" {
		return fmt.Errorf("app id cannot be empty")
	}
	parts := strings.Split(id, ".")
	if len(parts) < 2 {
		return fmt.Errorf("app id should be reverse-DNS, like org.example.App")
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("app id has an empty segment")
		}
	}
	return nil
}

func promptConfig(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Application ID").
				Description("Used by the compositor to group windows").
				Value(&cfg.Window.AppID).
				Validate(validateAppID),
			huh.NewInput().
				Title("Default window title").
				Value(&cfg.Window.Title),
			huh.NewInput().
				Title("Wayland socket").
				Description("Leave empty to use $WAYLAND_DISPLAY").
				Value(&cfg.Display.Socket),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("From $LOG_LEVEL", ""),
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&cfg.Logging.LogLevel),
		),
	)
	return form.Run()
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	configInitCmd.Flags().Bool("defaults", false, "Write defaults without prompting")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
