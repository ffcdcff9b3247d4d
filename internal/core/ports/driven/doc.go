// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ConnectorConfiguration: Named connector settings persistence
//   - ConnectorRegistry: Version resolution and package download across feeds
//   - Loader: Isolated loading of connector binaries
//   - ConfigStore: Application configuration
//
// # Supporting Interfaces
//
//   - Feed: A single remote feed endpoint, aggregated by ConnectorRegistry
//   - ConnectorPackage: A downloaded package that can be extracted
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
