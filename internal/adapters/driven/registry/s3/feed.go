package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// Ensure Feed implements the interface.
var _ driven.Feed = (*Feed)(nil)

const delimiter = "/"

// API is the subset of the S3 client used by Feed.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configures a Feed.
type Options struct {
	// URI of the form s3://bucket/prefix?region=...&endpoint=...
	URI string

	// AccessKey and SecretKey select static credentials. When both are
	// empty the default AWS credential chain is used.
	AccessKey string
	SecretKey string
}

// Feed reads packages from a bucket.
type Feed struct {
	uri    string
	client API
	bucket string
	prefix string
}

// NewFeed creates a feed backed by an S3 client configured from opts.
func NewFeed(ctx context.Context, opts Options) (*Feed, error) {
	u, err := url.Parse(opts.URI)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return nil, fmt.Errorf("s3 feed uri %q: bucket is required: %w", opts.URI, domain.ErrInvalidInput)
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if region := u.Query().Get("region"); region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if endpoint := u.Query().Get("endpoint"); endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	}

	return NewFeedWithClient(opts.URI, s3.NewFromConfig(cfg, s3Opts...), u.Host, u.Path), nil
}

// NewFeedWithClient creates a feed over an existing client.
func NewFeedWithClient(uri string, client API, bucket, prefix string) *Feed {
	prefix = strings.Trim(prefix, delimiter)
	if prefix != "" {
		prefix += delimiter
	}
	return &Feed{
		uri:    uri,
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// URI returns the feed URI.
func (f *Feed) URI() string {
	return f.uri
}

// Search returns every package whose id contains query, case-insensitively.
func (f *Feed) Search(ctx context.Context, query string, _ bool) ([]driven.FeedPackage, error) {
	ids, err := f.listDirs(ctx, f.prefix)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var packages []driven.FeedPackage
	for _, id := range ids {
		if !strings.Contains(strings.ToLower(id), query) {
			continue
		}
		versions, err := f.listDirs(ctx, f.prefix+id+delimiter)
		if err != nil {
			return nil, err
		}
		packages = append(packages, driven.FeedPackage{ID: id, Versions: versions})
	}
	return packages, nil
}

// Versions lists the versions of id. Unknown ids yield nil.
func (f *Feed) Versions(ctx context.Context, id string) ([]string, error) {
	canonical, err := f.resolve(ctx, f.prefix, id)
	if err != nil || canonical == "" {
		return nil, err
	}
	return f.listDirs(ctx, f.prefix+canonical+delimiter)
}

// Download fetches the package for id at version. A missing package yields nil.
func (f *Feed) Download(ctx context.Context, id, version string) ([]byte, error) {
	canonicalID, err := f.resolve(ctx, f.prefix, id)
	if err != nil || canonicalID == "" {
		return nil, err
	}
	dir := f.prefix + canonicalID + delimiter
	canonicalVersion, err := f.resolve(ctx, dir, version)
	if err != nil || canonicalVersion == "" {
		return nil, err
	}

	key, err := f.packageKey(ctx, dir+canonicalVersion+delimiter, canonicalID+"."+canonicalVersion+".nupkg")
	if err != nil || key == "" {
		return nil, err
	}

	logger.Debug("Downloading s3://%s/%s", f.bucket, key)
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// resolve returns the directory under prefix matching name case-insensitively.
func (f *Feed) resolve(ctx context.Context, prefix, name string) (string, error) {
	dirs, err := f.listDirs(ctx, prefix)
	if err != nil {
		return "", err
	}
	for _, d := range dirs {
		if strings.EqualFold(d, name) {
			return d, nil
		}
	}
	return "", nil
}

// packageKey returns the .nupkg key under dir, preferring want.
func (f *Feed) packageKey(ctx context.Context, dir, want string) (string, error) {
	var fallback string
	paginator := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(dir),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, dir)
			if strings.EqualFold(name, want) {
				return key, nil
			}
			if fallback == "" && !strings.Contains(name, delimiter) && strings.HasSuffix(strings.ToLower(name), ".nupkg") {
				fallback = key
			}
		}
	}
	return fallback, nil
}

// listDirs lists the immediate "directories" under prefix.
func (f *Feed) listDirs(ctx context.Context, prefix string) ([]string, error) {
	var dirs []string
	paginator := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(f.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String(delimiter),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			dir := strings.TrimPrefix(aws.ToString(cp.Prefix), prefix)
			dir = strings.TrimSuffix(dir, delimiter)
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs, nil
}

// isNotFound checks whether the error indicates a missing S3 object.
func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	// Some S3-compatible services return a generic "NotFound" status.
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
