package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

// Supported output formats.
const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

var outputFormats = []OutputFormat{OutputFormatTable, OutputFormatJSON, OutputFormatYAML}

func parseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(s)
	if !slices.Contains(outputFormats, f) {
		return "", fmt.Errorf("unknown output format %q, expected one of table, json, yaml: %w", s, domain.ErrInvalidInput)
	}
	return f, nil
}

// connectorView is the printable form of a configuration entry.
type connectorView struct {
	Name    string `json:"name" yaml:"name"`
	ID      string `json:"id" yaml:"id"`
	Version string `json:"version" yaml:"version"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// verifyView is the printable form of a verification entry.
type verifyView struct {
	Name    string `json:"name" yaml:"name"`
	ID      string `json:"id" yaml:"id"`
	Version string `json:"version" yaml:"version"`
	Status  string `json:"status" yaml:"status"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// tableData is a header plus rows for table output.
type tableData struct {
	header table.Row
	rows   []table.Row
}

// render writes v as JSON or YAML, or data as a table.
func render(w io.Writer, format OutputFormat, v any, data tableData) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case OutputFormatTable:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(data.header)
		t.AppendRows(data.rows)
		style := table.StyleLight
		style.Options.DrawBorder = false
		t.SetStyle(style)
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// Status colours, matching the terminal palette used elsewhere.
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
)

// statusText returns the description of status, coloured when color is set.
func statusText(status domain.VerifyStatus, color bool) string {
	text := status.Description()
	if !color {
		return text
	}
	switch status {
	case domain.VerifyStatusOK:
		return successStyle.Render(text)
	case domain.VerifyStatusRepaired:
		return warningStyle.Render(text)
	default:
		return errorStyle.Render(text)
	}
}
