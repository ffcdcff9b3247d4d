package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotImplemented indicates a required collaborator is not configured.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Registry Errors.

	// ErrConnectorNotFound indicates the registry has no versions for a connector id.
	ErrConnectorNotFound = errors.New("connector not found in registry")

	// ErrVersionNotFound indicates the registry does not list the requested version.
	ErrVersionNotFound = errors.New("version not found in registry")

	// ErrInvalidVersion indicates a version string could not be parsed.
	// Distinct from ErrVersionNotFound: the request itself is malformed.
	ErrInvalidVersion = errors.New("could not parse version")

	// ErrPackageNotFound indicates no feed endpoint returned a payload for id and version.
	ErrPackageNotFound = errors.New("package not found")

	// ErrNoRegistries indicates no feed endpoints are configured.
	ErrNoRegistries = errors.New("no registry endpoints configured")

	// Configuration Errors.

	// ErrAlreadyExists indicates a configuration name is already taken.
	ErrAlreadyExists = errors.New("connector configuration already exists")

	// ErrConfigurationNotFound indicates no configuration entry has the given name.
	ErrConfigurationNotFound = errors.New("connector configuration not found")

	// ErrMalformedConfiguration indicates the configuration backing store could not be parsed.
	ErrMalformedConfiguration = errors.New("malformed connector configuration")

	// ErrDuplicateConnectorID indicates more than one enabled configuration shares an id.
	ErrDuplicateConnectorID = errors.New("more than one connector configuration with the same id")

	// Installation Errors.

	// ErrDirectoryExists indicates an install directory is already present.
	ErrDirectoryExists = errors.New("connector directory already exists")

	// ErrDirectoryNotFound indicates an install directory is missing.
	// Reported as a warning by Remove.
	ErrDirectoryNotFound = errors.New("connector directory not found")

	// ErrInstallationMissing indicates an install directory is absent and auto-download is off.
	ErrInstallationMissing = errors.New("installation path missing")

	// ErrPartialInstall indicates an install directory exists without the connector binary.
	ErrPartialInstall = errors.New("connector binary missing")

	// ErrVerificationFailed indicates at least one configuration entry failed verification.
	ErrVerificationFailed = errors.New("could not validate installed connectors")

	// Loader Errors.

	// ErrLoadFailed indicates a connector binary could not be loaded.
	ErrLoadFailed = errors.New("failed to load connector")
)
