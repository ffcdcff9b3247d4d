package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
)

var (
	registryUser  string
	registryToken string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure install paths, registry feeds and other options.

Environment variables (CONNECTORCTL_*) override stored values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a stored setting.

Keys:
  connector-path       root directory for installed connectors
  configuration-path   connector configuration file (.json, .db or .sqlite)
  auto-download        install missing connectors during verify (true/false)
  binary-extension     suffix appended to connector ids to name binaries
  requests-per-second  request limit per HTTP feed, 0 for none
  verbose              enable debug output (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsRegistryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage registry feeds",
}

var settingsRegistryAddCmd = &cobra.Command{
	Use:   "add <uri>",
	Short: "Add a registry feed",
	Long: `Add a NuGet v3 service index (https://...) or S3 bucket (s3://bucket/prefix).

Feeds are searched in the order they were added. Adding an existing URI
replaces its credentials.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsRegistryAdd,
}

var settingsRegistryRemoveCmd = &cobra.Command{
	Use:     "remove <uri>",
	Aliases: []string{"rm"},
	Short:   "Remove a registry feed",
	Args:    cobra.ExactArgs(1),
	RunE:    runSettingsRegistryRemove,
}

func init() {
	settingsRegistryAddCmd.Flags().StringVar(&registryUser, "user", "", "user name for private feeds")
	settingsRegistryAddCmd.Flags().StringVar(&registryToken, "token", "", "token or password for private feeds")

	settingsRegistryCmd.AddCommand(settingsRegistryAddCmd)
	settingsRegistryCmd.AddCommand(settingsRegistryRemoveCmd)

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsRegistryCmd)
	rootCmd.AddCommand(settingsCmd)
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("  File: %s\n", settingsService.Path())
	cmd.Println()

	cmd.Println("[Install]")
	cmd.Printf("  Connector path: %s\n", settings.Manager.ConnectorPath)
	cmd.Printf("  Configuration path: %s\n", settings.Manager.ConfigurationPath)
	cmd.Printf("  Auto-download: %s\n", yesNo(settings.Manager.AutoDownload))
	if settings.Manager.BinaryExtension != "" {
		cmd.Printf("  Binary extension: %s\n", settings.Manager.BinaryExtension)
	} else {
		cmd.Printf("  Binary extension: (none)\n")
	}
	cmd.Println()

	cmd.Println("[Registries]")
	if settings.RequestsPerSecond > 0 {
		cmd.Printf("  Requests per second: %s\n", strconv.FormatFloat(settings.RequestsPerSecond, 'f', -1, 64))
	} else {
		cmd.Printf("  Requests per second: unlimited\n")
	}
	if len(settings.Registries) == 0 {
		cmd.Println("  (none configured)")
		cmd.Println()
		cmd.Println("Run 'connectorctl settings registry add <uri>' to add a feed.")
		return nil
	}
	for i, r := range settings.Registries {
		cmd.Printf("  %d. %s\n", i+1, r.URI)
		if r.User != "" {
			cmd.Printf("     User: %s\n", r.User)
		}
		if r.Token != "" {
			cmd.Printf("     Token: %s\n", maskToken(r.Token))
		}
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	key, value := args[0], args[1]
	switch key {
	case "connector-path":
		settings.Manager.ConnectorPath = value
	case "configuration-path":
		settings.Manager.ConfigurationPath = value
	case "binary-extension":
		settings.Manager.BinaryExtension = value
	case "auto-download":
		b, err := parseBool(key, value)
		if err != nil {
			return err
		}
		settings.Manager.AutoDownload = b
	case "verbose":
		b, err := parseBool(key, value)
		if err != nil {
			return err
		}
		settings.Verbose = b
	case "requests-per-second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s must be a non-negative number: %w", key, domain.ErrInvalidInput)
		}
		settings.RequestsPerSecond = f
	default:
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Set %s to %s\n", key, value)
	return nil
}

func runSettingsRegistryAdd(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	endpoint := domain.RegistryEndpoint{URI: args[0], User: registryUser, Token: registryToken}
	if err := settingsService.AddRegistry(endpoint); err != nil {
		return fmt.Errorf("failed to add registry: %w", err)
	}
	cmd.Printf("Added registry %s\n", endpoint)
	return nil
}

func runSettingsRegistryRemove(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	if err := settingsService.RemoveRegistry(args[0]); err != nil {
		return fmt.Errorf("failed to remove registry: %w", err)
	}
	cmd.Printf("Removed registry %s\n", args[0])
	return nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, domain.ErrInvalidInput)
	}
	return b, nil
}

// maskToken masks a token for display, showing first 4 and last 4 characters.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
