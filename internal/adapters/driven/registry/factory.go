package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/connectorctl/internal/adapters/driven/registry/nuget"
	"github.com/custodia-labs/connectorctl/internal/adapters/driven/registry/s3"
	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
)

// NewFeed creates the feed for endpoint, selected by URI scheme.
func NewFeed(ctx context.Context, endpoint domain.RegistryEndpoint, requestsPerSecond float64) (driven.Feed, error) {
	u, err := url.Parse(endpoint.URI)
	if err != nil {
		return nil, fmt.Errorf("registry %q: %w", endpoint.URI, domain.ErrInvalidInput)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nuget.NewFeed(nuget.Options{
			URI:               endpoint.URI,
			User:              endpoint.User,
			Token:             endpoint.Token,
			RequestsPerSecond: requestsPerSecond,
		})
	case "s3":
		return s3.NewFeed(ctx, s3.Options{
			URI:       endpoint.URI,
			AccessKey: endpoint.User,
			SecretKey: endpoint.Token,
		})
	default:
		return nil, fmt.Errorf("registry %q: unsupported scheme %q: %w", endpoint.URI, u.Scheme, domain.ErrInvalidInput)
	}
}

// NewFromSettings creates a registry over every endpoint in settings.
func NewFromSettings(ctx context.Context, settings *domain.AppSettings) (*Registry, error) {
	feeds := make([]driven.Feed, 0, len(settings.Registries))
	for _, endpoint := range settings.Registries {
		feed, err := NewFeed(ctx, endpoint, settings.RequestsPerSecond)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	return New(feeds, WithBinaryExtension(settings.Manager.BinaryExtension)), nil
}
