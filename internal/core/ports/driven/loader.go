package driven

import (
	"context"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
)

// Loader resolves connector binaries into isolated modules.
// Repeated loads of the same path return the same isolation context.
type Loader interface {
	// Load resolves the binary at path. Failures wrap domain.ErrLoadFailed.
	Load(ctx context.Context, path string) (*domain.Module, error)
}
