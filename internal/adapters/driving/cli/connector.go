package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driving"
)

var (
	addName       string
	addVersion    string
	addPrerelease bool
	addForce      bool

	updateVersion    string
	updatePrerelease bool

	removeConfigurationOnly bool

	populatePrerelease bool
)

var addCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Install a connector and add it to the configuration",
	Long: `Install a connector from the registry and add a configuration entry for it.

The entry is named after the connector id unless --name is given. Without
--version the latest version is installed.`,
	Example: `  connectorctl add Reductech.Sequence.Connectors.FileSystem
  connectorctl add Reductech.Sequence.Connectors.Nuix --version 0.13.0-beta.1 --name nuix-old`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var updateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Update a configured connector to another version",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a connector configuration and its install directory",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var enableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a configured connector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd, args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a configured connector without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd, args[0], false)
	},
}

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Add every registry connector to an empty configuration",
	Long: `Seed an empty configuration with the latest version of every connector
in the registry. Nothing is installed; run verify to download them.`,
	Args: cobra.NoArgs,
	RunE: runPopulate,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "configuration name (default: the connector id)")
	addCmd.Flags().StringVar(&addVersion, "version", "", "version to install (default: latest)")
	addCmd.Flags().BoolVar(&addPrerelease, "prerelease", false, "include prerelease versions")
	addCmd.Flags().BoolVarP(&addForce, "force", "f", false, "overwrite an existing configuration and install directory")

	updateCmd.Flags().StringVar(&updateVersion, "version", "", "version to update to (default: latest)")
	updateCmd.Flags().BoolVar(&updatePrerelease, "prerelease", false, "include prerelease versions")

	removeCmd.Flags().BoolVar(&removeConfigurationOnly, "configuration-only", false,
		"remove the configuration entry but keep the install directory")

	populateCmd.Flags().BoolVar(&populatePrerelease, "prerelease", false, "include prerelease versions")

	rootCmd.AddCommand(addCmd, updateCmd, removeCmd, enableCmd, disableCmd, populateCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if err := requireManager(); err != nil {
		return err
	}

	settings, err := connectorManager.Add(cmd.Context(), args[0], driving.AddOptions{
		Name:       addName,
		Version:    addVersion,
		Prerelease: addPrerelease,
		Force:      addForce,
	})
	if err != nil {
		return fmt.Errorf("failed to add connector: %w", err)
	}

	cmd.Printf("Added %s\n", settings.VersionString())
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if err := requireManager(); err != nil {
		return err
	}

	result, settings, err := connectorManager.Update(cmd.Context(), args[0], driving.UpdateOptions{
		Version:    updateVersion,
		Prerelease: updatePrerelease,
	})
	if err != nil {
		return fmt.Errorf("failed to update connector: %w", err)
	}

	switch result {
	case domain.UpdateResultUpdated:
		cmd.Printf("Updated '%s' to %s\n", args[0], settings.VersionString())
	default:
		cmd.Printf("'%s': %s (%s)\n", args[0], result.Description(), settings.Version)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := requireManager(); err != nil {
		return err
	}

	if err := connectorManager.Remove(cmd.Context(), args[0], removeConfigurationOnly); err != nil {
		return fmt.Errorf("failed to remove connector: %w", err)
	}

	cmd.Printf("Removed '%s'\n", args[0])
	return nil
}

func runSetEnabled(cmd *cobra.Command, name string, enable bool) error {
	if err := requireManager(); err != nil {
		return err
	}

	if err := connectorManager.SetEnabled(cmd.Context(), name, enable); err != nil {
		return fmt.Errorf("failed to update connector: %w", err)
	}

	state := "Disabled"
	if enable {
		state = "Enabled"
	}
	cmd.Printf("%s '%s'\n", state, name)
	return nil
}

func runPopulate(cmd *cobra.Command, _ []string) error {
	if err := requireManager(); err != nil {
		return err
	}

	if len(connectorManager.Configurations()) > 0 {
		cmd.Println("Configuration is not empty; nothing added.")
		return nil
	}

	added, err := connectorManager.Populate(cmd.Context(), populatePrerelease)
	if err != nil {
		return fmt.Errorf("failed to populate configuration: %w", err)
	}

	if added == 0 {
		cmd.Println("No connectors found in the registry; nothing added.")
		return nil
	}
	cmd.Printf("Added %d connectors. Run 'connectorctl verify' to install them.\n", added)
	return nil
}
