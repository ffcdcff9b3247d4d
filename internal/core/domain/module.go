package domain

import (
	"context"
	"os/exec"
	"slices"
)

// ManifestCommand is the argument a connector binary answers with its JSON manifest.
const ManifestCommand = "manifest"

// Manifest is what a connector binary reports about itself.
type Manifest struct {
	ID           string   `json:"id"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Module is a connector binary resolved inside its own isolation context.
// Each distinct binary path gets exactly one Module for the process lifetime.
type Module struct {
	// Path is the absolute path of the connector binary.
	Path string

	// Dir is the install directory; dependencies are resolved here first.
	Dir string

	// Env is the environment the connector process runs with.
	Env []string

	// Manifest is the handshake result.
	Manifest Manifest
}

// Command returns a command that runs the connector inside its isolation context.
func (m *Module) Command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, m.Path, args...) //nolint:gosec // path comes from the install layout
	cmd.Dir = m.Dir
	cmd.Env = slices.Clone(m.Env)
	return cmd
}

// HasCapability reports whether the manifest lists capability.
func (m *Module) HasCapability(capability string) bool {
	return slices.Contains(m.Manifest.Capabilities, capability)
}
