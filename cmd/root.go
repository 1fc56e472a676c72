package cmd

import (
	"github.com/bnema/pointerlock/internal/config"
	"github.com/bnema/pointerlock/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version info, set with -ldflags at build time
	Version = "0.1.0-dev"
	Commit  = "unknown"
	Date    = "unknown"

	configFile  string
	displayName string

	rootCmd = &cobra.Command{
		Use:   "pointerlock",
		Short: "Wayland pointer lock and relative motion relay",
		Long: `pointerlock locks the pointer to a Wayland surface through
zwp_pointer_constraints_v1 and relays the raw relative motion reported by
zwp_relative_pointer_v1 to a sink: the log, a uinput virtual mouse, or a
length-prefixed protobuf stream.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
)

// Config keys that a command flag of the same meaning overrides.
var flagKeys = map[string]string{
	"sink":          "relay.sink",
	"unaccelerated": "relay.use_unaccelerated",
	"sensitivity":   "relay.sensitivity",
	"output":        "relay.stream_path",
	"lifetime":      "lock.lifetime",
	"timeout":       "lock.roundtrip_timeout",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $HOME/.config/pointerlock/pointerlock.toml)")
	rootCmd.PersistentFlags().StringVar(&displayName, "display", "", "Wayland display: a socket name in $XDG_RUNTIME_DIR or an absolute path (default $WAYLAND_DISPLAY)")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	config.SetConfigPath(configFile)

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	if err := config.Init(); err != nil {
		return err
	}
	return logger.Configure(config.Get().Logging.LogLevel)
}
