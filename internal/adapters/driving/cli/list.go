package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	outputFlag string

	findPrerelease     bool
	versionsPrerelease bool
)

var listCmd = &cobra.Command{
	Use:     "list [pattern]",
	Aliases: []string{"ls"},
	Short:   "List configured connectors that load successfully",
	Long: `List configured connectors. The optional pattern is a glob matched
against configuration names, for example 'Reductech.*.Nuix'.

Connectors that fail to load are reported on stderr and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

var findCmd = &cobra.Command{
	Use:   "find [search]",
	Short: "Search the registry for connectors",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFind,
}

var versionsCmd = &cobra.Command{
	Use:   "versions <id>",
	Short: "List the registry versions of a connector",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

func init() {
	for _, c := range []*cobra.Command{listCmd, findCmd, versionsCmd} {
		c.Flags().StringVarP(&outputFlag, "output", "o", string(OutputFormatTable), "output format: table, json or yaml")
	}
	findCmd.Flags().BoolVar(&findPrerelease, "prerelease", false, "include prerelease versions")
	versionsCmd.Flags().BoolVar(&versionsPrerelease, "prerelease", false, "include prerelease versions")

	rootCmd.AddCommand(listCmd, findCmd, versionsCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if err := requireManager(); err != nil {
		return err
	}
	format, err := parseOutputFormat(outputFlag)
	if err != nil {
		return err
	}

	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}

	connectors, err := connectorManager.List(cmd.Context(), pattern)
	if err != nil {
		return fmt.Errorf("failed to list connectors: %w", err)
	}

	views := []connectorView{}
	data := tableData{header: table.Row{"Name", "ID", "Version", "Enabled"}}
	for c := range connectors {
		view := connectorView{
			Name:    c.Name,
			ID:      c.Settings.ID,
			Version: c.Settings.Version,
			Enabled: c.Settings.Enable,
		}
		if c.Module != nil {
			view.Path = c.Module.Path
		}
		views = append(views, view)
		data.rows = append(data.rows, table.Row{view.Name, view.ID, view.Version, yesNo(view.Enabled)})
	}

	if format == OutputFormatTable && len(views) == 0 {
		cmd.Println("No connectors configured.")
		return nil
	}
	return render(cmd.OutOrStdout(), format, views, data)
}

func runFind(cmd *cobra.Command, args []string) error {
	if err := requireManager(); err != nil {
		return err
	}
	format, err := parseOutputFormat(outputFlag)
	if err != nil {
		return err
	}

	search := ""
	if len(args) > 0 {
		search = args[0]
	}

	found, err := connectorManager.Find(cmd.Context(), search, findPrerelease)
	if err != nil {
		return fmt.Errorf("failed to search registry: %w", err)
	}

	if format == OutputFormatTable && len(found) == 0 {
		cmd.Println("No connectors found.")
		return nil
	}

	data := tableData{header: table.Row{"ID", "Latest Version"}}
	for _, m := range found {
		data.rows = append(data.rows, table.Row{m.ID, m.Version})
	}
	return render(cmd.OutOrStdout(), format, found, data)
}

func runVersions(cmd *cobra.Command, args []string) error {
	if err := requireManager(); err != nil {
		return err
	}
	format, err := parseOutputFormat(outputFlag)
	if err != nil {
		return err
	}

	versions, err := connectorManager.Versions(cmd.Context(), args[0], versionsPrerelease)
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}
	if versions == nil {
		versions = []string{}
	}

	if format == OutputFormatTable && len(versions) == 0 {
		cmd.Printf("No versions found for '%s'.\n", args[0])
		return nil
	}

	data := tableData{header: table.Row{"Version"}}
	for _, v := range versions {
		data.rows = append(data.rows, table.Row{v})
	}
	return render(cmd.OutOrStdout(), format, versions, data)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
