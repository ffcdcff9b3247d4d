// Package loader resolves connector binaries into isolated modules.
//
// Each connector runs in its own process. A module's environment lists the
// install directory first on PATH and the dynamic library search paths, so
// a connector resolves its own dependencies before the host's. Modules are
// cached per absolute binary path for the life of the process.
package loader
