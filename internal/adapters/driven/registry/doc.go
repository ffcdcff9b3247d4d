// Package registry implements driven.ConnectorRegistry over one or more
// package feeds.
//
// Feeds are queried in their configured order. Search results and version
// lists are merged across feeds; package downloads fall back linearly and
// the first feed returning a non-empty payload wins.
//
// Sub-packages provide the feed protocols:
//
//   - nuget: NuGet v3 HTTP service index
//   - s3: packages laid out in an S3 bucket
package registry
