// Package domain defines the core business entities for connectorctl.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ConnectorSettings: One named configuration entry (id, version, enable, settings)
//   - ConnectorMetadata: Identity of a package as reported by a registry feed
//   - ConnectorData: A configuration entry paired with its loaded module
//   - Module: A connector binary resolved inside its own isolation context
//   - ManagerSettings: Install root, configuration path and auto-download policy
//   - AppSettings, RegistryEndpoint: Application settings and feed endpoints
//   - UpdateResult, VerifyReport: Outcomes of Update and Verify
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
