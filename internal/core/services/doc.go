// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Filesystem access is limited to the
// connector install tree; everything else goes through driven ports.
package services
