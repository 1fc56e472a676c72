package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "pointerlock %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date); err != nil {
			return fmt.Errorf("failed to write version: %w", err)
		}
		return nil
	},
}
