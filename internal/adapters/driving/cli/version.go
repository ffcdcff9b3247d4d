package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	// Overrides the root hook so printing the version never builds services.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("connectorctl version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
