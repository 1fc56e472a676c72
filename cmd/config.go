package cmd

import (
	"fmt"
	"os"

	"github.com/bnema/pointerlock/internal/config"
	"github.com/bnema/pointerlock/internal/logger"
	"github.com/bnema/pointerlock/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pointerlock configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.FormatHeader("Configuration"))
		fmt.Fprintln(out, ui.SubtleStyle.Render("file: "+config.GetConfigPath()))
		fmt.Fprintln(out, ui.BoxStyle.Render(ui.FormatTable(configRows(cfg))))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		return nil
	},
}

func configRows(cfg *config.Config) []ui.Row {
	level := cfg.Logging.LogLevel
	if level == "" {
		level = "(LOG_LEVEL)"
	}
	return []ui.Row{
		{Label: "lock.roundtrip_timeout", Value: cfg.Lock.RoundtripTimeout.String(), OK: true},
		{Label: "lock.lifetime", Value: cfg.Lock.Lifetime, OK: true},
		{Label: "relay.sink", Value: cfg.Relay.Sink, OK: true},
		{Label: "relay.use_unaccelerated", Value: fmt.Sprint(cfg.Relay.UseUnaccelerated), OK: true},
		{Label: "relay.sensitivity", Value: fmt.Sprintf("%.2f", cfg.Relay.Sensitivity), OK: true},
		{Label: "relay.uinput_path", Value: cfg.Relay.UinputPath, OK: true},
		{Label: "relay.uinput_name", Value: cfg.Relay.UinputName, OK: true},
		{Label: "relay.stream_path", Value: cfg.Relay.StreamPath, OK: true},
		{Label: "logging.log_level", Value: level, OK: true},
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
}
