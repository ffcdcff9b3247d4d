package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
)

// ConnectorRegistry queries the configured package feeds.
//
// Id and version lookups are case-insensitive. Returned metadata carries the
// casing reported by the feed.
type ConnectorRegistry interface {
	// Find returns the latest version of every package whose id matches search,
	// aggregated across all feeds. Prerelease versions are considered only when
	// prerelease is true.
	Find(ctx context.Context, search string, prerelease bool) ([]domain.ConnectorMetadata, error)

	// Exists reports whether id is known. When version is non-empty it must
	// also be listed.
	Exists(ctx context.Context, id, version string) (bool, error)

	// GetVersions returns the versions of id in ascending precedence.
	// Unknown ids yield an empty list, not an error.
	GetVersions(ctx context.Context, id string, prerelease bool) ([]string, error)

	// GetPackage fetches id at version from the first feed returning a
	// non-empty payload. Fails with ErrInvalidVersion or ErrPackageNotFound.
	GetPackage(ctx context.Context, id, version string) (ConnectorPackage, error)
}

// ConnectorPackage is a downloaded package.
type ConnectorPackage interface {
	// Metadata returns the canonical id and version of the package.
	Metadata() domain.ConnectorMetadata

	// Extract writes the package payload to dir as a flat connector folder.
	Extract(ctx context.Context, dir string) error

	io.Closer
}

// FeedPackage is one search hit reported by a feed.
type FeedPackage struct {
	ID       string
	Versions []string
}

// Feed is a single remote package feed endpoint.
// Feeds report raw data; version ordering and filtering happen in the registry.
type Feed interface {
	// URI identifies the feed.
	URI() string

	// Search returns packages whose id matches query.
	Search(ctx context.Context, query string, prerelease bool) ([]FeedPackage, error)

	// Versions returns every version of id. Unknown ids yield an empty list.
	Versions(ctx context.Context, id string) ([]string, error)

	// Download returns the package payload. A missing package yields an empty payload.
	Download(ctx context.Context, id, version string) ([]byte, error)
}
