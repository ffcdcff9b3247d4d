package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
)

const (
	nuixID = "Reductech.Sequence.Connectors.Nuix"
	sdID   = "Reductech.Sequence.Connectors.StructuredData"
)

// fakeS3 is an in-memory bucket implementing API.
type fakeS3 struct {
	objects map[string][]byte
	listErr error
}

func newFakeS3(keys ...string) *fakeS3 {
	f := &fakeS3{objects: make(map[string][]byte)}
	for _, k := range keys {
		f.objects[k] = []byte(k)
	}
	return f
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	seen := make(map[string]bool)
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+len(delim)]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, s3types.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func fixtureBucket() *fakeS3 {
	return newFakeS3(
		"connectors/"+nuixID+"/0.13.0-beta.1/"+nuixID+".0.13.0-beta.1.nupkg",
		"connectors/"+nuixID+"/0.13.0-beta.2/"+strings.ToLower(nuixID)+".0.13.0-beta.2.nupkg",
		"connectors/"+sdID+"/0.8.0/"+sdID+".0.8.0.nupkg",
		"connectors/"+sdID+"/0.13.0/readme.txt",
		"other/ignored.txt",
	)
}

func TestNewFeed_InvalidURI(t *testing.T) {
	for _, uri := range []string{"", "https://bucket/prefix", "s3:///prefix"} {
		_, err := NewFeed(context.Background(), Options{URI: uri})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, uri)
	}
}

func TestNewFeedWithClient_NormalisesPrefix(t *testing.T) {
	assert.Equal(t, "connectors/", NewFeedWithClient("", nil, "b", "/connectors/").prefix)
	assert.Empty(t, NewFeedWithClient("", nil, "b", "").prefix)
}

func TestFeed_Search(t *testing.T) {
	f := NewFeedWithClient("s3://bucket/connectors", fixtureBucket(), "bucket", "/connectors")

	packages, err := f.Search(context.Background(), "nuix", false)
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, nuixID, packages[0].ID)
	assert.Equal(t, []string{"0.13.0-beta.1", "0.13.0-beta.2"}, packages[0].Versions)

	all, err := f.Search(context.Background(), "", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFeed_Versions(t *testing.T) {
	f := NewFeedWithClient("s3://bucket/connectors", fixtureBucket(), "bucket", "connectors")

	versions, err := f.Versions(context.Background(), strings.ToUpper(sdID))
	require.NoError(t, err)
	assert.Equal(t, []string{"0.13.0", "0.8.0"}, versions)

	versions, err = f.Versions(context.Background(), "Unknown")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestFeed_Download(t *testing.T) {
	f := NewFeedWithClient("s3://bucket/connectors", fixtureBucket(), "bucket", "connectors")
	ctx := context.Background()

	data, err := f.Download(ctx, strings.ToLower(nuixID), "0.13.0-BETA.1")
	require.NoError(t, err)
	assert.Equal(t, "connectors/"+nuixID+"/0.13.0-beta.1/"+nuixID+".0.13.0-beta.1.nupkg", string(data))

	// Package file names match case-insensitively.
	data, err = f.Download(ctx, nuixID, "0.13.0-beta.2")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestFeed_Download_Missing(t *testing.T) {
	f := NewFeedWithClient("s3://bucket/connectors", fixtureBucket(), "bucket", "connectors")
	ctx := context.Background()

	tests := []struct {
		name, id, version string
	}{
		{"unknown id", "Unknown", "1.0.0"},
		{"unknown version", sdID, "9.9.9"},
		{"no package object", sdID, "0.13.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := f.Download(ctx, tt.id, tt.version)
			require.NoError(t, err)
			assert.Empty(t, data)
		})
	}
}

func TestFeed_ListError(t *testing.T) {
	bucket := fixtureBucket()
	bucket.listErr = errors.New("access denied")
	f := NewFeedWithClient("s3://bucket/connectors", bucket, "bucket", "connectors")

	_, err := f.Versions(context.Background(), nuixID)
	assert.ErrorContains(t, err, "access denied")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&s3types.NoSuchKey{}))
	assert.True(t, isNotFound(errors.New("api error NotFound")))
	assert.False(t, isNotFound(errors.New("access denied")))
}
