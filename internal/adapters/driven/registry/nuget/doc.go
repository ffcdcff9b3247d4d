// Package nuget implements driven.Feed over a NuGet v3 HTTP service index.
//
// The service index is fetched once per feed and cached. Search uses the
// first SearchQueryService resource; versions and package downloads use the
// PackageBaseAddress flat container. Requests are throttled with a token
// bucket and authenticated with HTTP basic auth when credentials are set.
package nuget
