package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.ConnectorRegistry = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithBinaryExtension sets the extension of connector binaries inside packages.
// Extracted binaries are marked executable.
func WithBinaryExtension(ext string) Option {
	return func(r *Registry) {
		r.binaryExtension = ext
	}
}

// Registry queries feeds in order.
type Registry struct {
	feeds           []driven.Feed
	binaryExtension string
}

// New creates a registry over feeds.
func New(feeds []driven.Feed, opts ...Option) *Registry {
	r := &Registry{
		feeds:           slices.Clone(feeds),
		binaryExtension: domain.DefaultBinaryExtension(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Feeds returns the configured feeds.
func (r *Registry) Feeds() []driven.Feed {
	return slices.Clone(r.feeds)
}

// Find returns the latest version of every matching package, sorted by id.
func (r *Registry) Find(ctx context.Context, search string, prerelease bool) ([]domain.ConnectorMetadata, error) {
	if len(r.feeds) == 0 {
		return nil, domain.ErrNoRegistries
	}

	latest := make(map[string]domain.ConnectorMetadata)
	for _, feed := range r.feeds {
		packages, err := feed.Search(ctx, search, prerelease)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", feed.URI(), err)
		}

		for _, pkg := range packages {
			version := latestVersion(pkg.Versions, prerelease)
			if version == "" {
				continue
			}

			key := strings.ToLower(pkg.ID)
			current, ok := latest[key]
			if ok && latestVersion([]string{current.Version, version}, true) == current.Version {
				continue
			}
			latest[key] = domain.ConnectorMetadata{ID: pkg.ID, Version: version}
		}
	}

	found := make([]domain.ConnectorMetadata, 0, len(latest))
	for _, meta := range latest {
		found = append(found, meta)
	}
	slices.SortFunc(found, func(a, b domain.ConnectorMetadata) int {
		return cmp.Compare(strings.ToLower(a.ID), strings.ToLower(b.ID))
	})

	logger.Debug("Found %d connectors matching '%s'", len(found), search)
	return found, nil
}

// Exists reports whether id is known, optionally at version.
func (r *Registry) Exists(ctx context.Context, id, version string) (bool, error) {
	versions, err := r.GetVersions(ctx, id, true)
	if err != nil {
		return false, err
	}
	if version == "" {
		return len(versions) > 0, nil
	}
	return slices.ContainsFunc(versions, func(v string) bool { return strings.EqualFold(v, version) }), nil
}

// GetVersions returns the versions of id across all feeds in ascending order.
func (r *Registry) GetVersions(ctx context.Context, id string, prerelease bool) ([]string, error) {
	if len(r.feeds) == 0 {
		return nil, domain.ErrNoRegistries
	}

	var all []string
	for _, feed := range r.feeds {
		versions, err := feed.Versions(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list versions of %s on %s: %w", id, feed.URI(), err)
		}
		all = append(all, versions...)
	}
	return sortVersions(all, prerelease), nil
}

// GetPackage downloads id at version from the first feed that has it.
// Feed errors are logged and the next feed is tried.
func (r *Registry) GetPackage(ctx context.Context, id, version string) (driven.ConnectorPackage, error) {
	if len(r.feeds) == 0 {
		return nil, domain.ErrNoRegistries
	}
	if !validVersion(version) {
		return nil, fmt.Errorf("'%s': %w", version, domain.ErrInvalidVersion)
	}

	var errs []error
	for _, feed := range r.feeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := feed.Download(ctx, id, version)
		if err != nil {
			logger.Warn("Could not download %s %s from %s: %v", id, version, feed.URI(), err)
			errs = append(errs, err)
			continue
		}
		if len(data) == 0 {
			logger.Debug("Package %s %s not found on %s", id, version, feed.URI())
			continue
		}

		pkg, err := OpenPackage(data, id, version, r.binaryExtension)
		if err != nil {
			return nil, fmt.Errorf("package %s %s from %s: %w", id, version, feed.URI(), err)
		}
		return pkg, nil
	}

	return nil, errors.Join(fmt.Errorf("%s %s: %w", id, version, domain.ErrPackageNotFound), errors.Join(errs...))
}
