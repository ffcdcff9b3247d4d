package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
)

var verifyOutputFlag string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every configured connector is installed",
	Long: `Check every configuration entry for its install directory and binary.

Missing installs are downloaded when auto-download is enabled. The command
fails if any entry is still unusable afterwards.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyOutputFlag, "output", "o", string(OutputFormatTable), "output format: table, json or yaml")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	if err := requireManager(); err != nil {
		return err
	}
	format, err := parseOutputFormat(verifyOutputFlag)
	if err != nil {
		return err
	}

	report, err := connectorManager.Verify(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to verify connectors: %w", err)
	}

	color := format == OutputFormatTable && isTerminal(cmd.OutOrStdout())
	views := make([]verifyView, 0, len(report.Entries))
	data := tableData{header: table.Row{"Name", "ID", "Version", "Status"}}
	for _, e := range report.Entries {
		view := verifyView{
			Name:    e.Name,
			ID:      e.Settings.ID,
			Version: e.Settings.Version,
			Status:  e.Status.String(),
		}
		if e.Err != nil {
			view.Error = e.Err.Error()
		}
		views = append(views, view)
		data.rows = append(data.rows, table.Row{view.Name, view.ID, view.Version, statusText(e.Status, color)})
	}

	if format == OutputFormatTable && len(views) == 0 {
		cmd.Println("No connectors configured.")
	} else if err := render(cmd.OutOrStdout(), format, views, data); err != nil {
		return err
	}

	if !report.OK() {
		return fmt.Errorf("%d of %d connectors failed: %w", len(report.Failed()), len(report.Entries), domain.ErrVerificationFailed)
	}
	return nil
}
