package nuget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// Ensure Feed implements the interface.
var _ driven.Feed = (*Feed)(nil)

const (
	// searchTake is the page size used for search queries.
	searchTake = 100

	// defaultTimeout bounds a single HTTP request.
	defaultTimeout = 60 * time.Second

	searchResourceType      = "SearchQueryService"
	packageBaseResourceType = "PackageBaseAddress/3.0.0"
)

// ErrMissingResource is returned when the service index lacks a required resource.
var ErrMissingResource = errors.New("service index is missing a required resource")

// Options configures a Feed.
type Options struct {
	// URI of the service index, usually ending in index.json.
	URI string

	// User and Token are sent as basic auth when either is set.
	User  string
	Token string

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Feed is a NuGet v3 feed.
type Feed struct {
	uri     string
	user    string
	token   string
	client  *http.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	index *serviceIndex
}

type serviceIndex struct {
	Version   string     `json:"version"`
	Resources []resource `json:"resources"`
}

type resource struct {
	ID   string `json:"@id"`
	Type string `json:"@type"`
}

type searchResponse struct {
	TotalHits int            `json:"totalHits"`
	Data      []searchResult `json:"data"`
}

type searchResult struct {
	ID       string          `json:"id"`
	Version  string          `json:"version"`
	Versions []searchVersion `json:"versions"`
}

type searchVersion struct {
	Version string `json:"version"`
}

type versionsResponse struct {
	Versions []string `json:"versions"`
}

// NewFeed creates a feed for opts.URI.
func NewFeed(opts Options) (*Feed, error) {
	u, err := url.Parse(opts.URI)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("nuget feed uri %q: %w", opts.URI, domain.ErrInvalidInput)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Feed{
		uri:     opts.URI,
		user:    opts.User,
		token:   opts.Token,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// URI returns the service index URI.
func (f *Feed) URI() string {
	return f.uri
}

// Search queries the search service for packages matching query.
func (f *Feed) Search(ctx context.Context, query string, prerelease bool) ([]driven.FeedPackage, error) {
	index, err := f.serviceIndex(ctx)
	if err != nil {
		return nil, err
	}
	base, err := index.find(searchResourceType)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("prerelease", strconv.FormatBool(prerelease))
	params.Set("skip", "0")
	params.Set("take", strconv.Itoa(searchTake))
	params.Set("semVerLevel", "2.0.0")

	var resp searchResponse
	found, err := f.getJSON(ctx, base+"?"+params.Encode(), &resp)
	if err != nil || !found {
		return nil, err
	}

	packages := make([]driven.FeedPackage, 0, len(resp.Data))
	for _, r := range resp.Data {
		pkg := driven.FeedPackage{ID: r.ID}
		for _, v := range r.Versions {
			pkg.Versions = append(pkg.Versions, v.Version)
		}
		if len(pkg.Versions) == 0 && r.Version != "" {
			pkg.Versions = []string{r.Version}
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// Versions lists every version of id from the flat container.
func (f *Feed) Versions(ctx context.Context, id string) ([]string, error) {
	base, err := f.packageBase(ctx)
	if err != nil {
		return nil, err
	}

	var resp versionsResponse
	found, err := f.getJSON(ctx, base+url.PathEscape(strings.ToLower(id))+"/index.json", &resp)
	if err != nil || !found {
		return nil, err
	}
	return resp.Versions, nil
}

// Download fetches the .nupkg for id at version. A missing package yields nil.
func (f *Feed) Download(ctx context.Context, id, version string) ([]byte, error) {
	base, err := f.packageBase(ctx)
	if err != nil {
		return nil, err
	}

	lowerID := url.PathEscape(strings.ToLower(id))
	lowerVersion := url.PathEscape(strings.ToLower(version))
	target := fmt.Sprintf("%s%s/%s/%s.%s.nupkg", base, lowerID, lowerVersion, lowerID, lowerVersion)

	body, found, err := f.get(ctx, target)
	if err != nil || !found {
		return nil, err
	}
	return body, nil
}

func (f *Feed) packageBase(ctx context.Context) (string, error) {
	index, err := f.serviceIndex(ctx)
	if err != nil {
		return "", err
	}
	base, err := index.find(packageBaseResourceType)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base, nil
}

// serviceIndex returns the cached service index, fetching it on first use.
func (f *Feed) serviceIndex(ctx context.Context) (*serviceIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		return f.index, nil
	}

	var index serviceIndex
	found, err := f.getJSON(ctx, f.uri, &index)
	if err != nil {
		return nil, fmt.Errorf("service index %s: %w", f.uri, err)
	}
	if !found {
		return nil, fmt.Errorf("service index %s not found", f.uri)
	}

	f.index = &index
	return f.index, nil
}

func (i *serviceIndex) find(resourceType string) (string, error) {
	for _, r := range i.Resources {
		if strings.HasPrefix(r.Type, resourceType) && r.ID != "" {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("%s: %w", resourceType, ErrMissingResource)
}

// getJSON decodes the response body into v. It reports false on 404.
func (f *Feed) getJSON(ctx context.Context, target string, v any) (bool, error) {
	body, found, err := f.get(ctx, target)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", target, err)
	}
	return true, nil
}

// get performs a throttled GET. It reports false on 404.
func (f *Feed) get(ctx context.Context, target string) ([]byte, bool, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	if f.user != "" || f.token != "" {
		req.SetBasicAuth(f.user, f.token)
	}

	logger.Debug("GET %s", target)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("request %s: unexpected status %s", target, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", target, err)
	}
	return body, true, nil
}
