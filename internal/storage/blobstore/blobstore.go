// Package blobstore implements storage.Storage on a gocloud.dev bucket.
// Keys are split on "/" so common prefixes act as folders.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/dl-alexandre/dbxmirror/internal/api"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

const delimiter = "/"

// Storage is the bucket backend
type Storage struct {
	bucket *blob.Bucket
	client *api.Client
}

// Open opens the bucket at url (s3://, gs://, file://, mem://)
func Open(ctx context.Context, url string, client *api.Client) (*Storage, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("Failed to open bucket %s: %v", url, err)).
			WithContext("bucket", url).
			Build(), err)
	}
	return NewWithBucket(bucket, client), nil
}

// NewWithBucket wraps an open bucket; Close closes it
func NewWithBucket(bucket *blob.Bucket, client *api.Client) *Storage {
	return &Storage{bucket: bucket, client: client}
}

// ListFolder lists the keys directly under prefix
func (s *Storage) ListFolder(ctx context.Context, prefix string) ([]types.RemoteEntry, error) {
	prefix = normalizePrefix(prefix)
	reqCtx := s.client.NewRequestContext(ctx, types.RequestTypeListFolder, prefix)

	return api.ExecuteWithRetry(ctx, s.client, reqCtx, func(ctx context.Context) ([]types.RemoteEntry, error) {
		return s.list(ctx, prefix)
	})
}

func (s *Storage) list(ctx context.Context, prefix string) ([]types.RemoteEntry, error) {
	it := s.bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: delimiter})

	var entries []types.RemoteEntry
	marker := false
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch {
		case obj.Key == prefix:
			// directory marker object for the folder itself
			marker = true
		case obj.IsDir:
			entries = append(entries, types.NewFolderEntry(displayPath(obj.Key), obj.Key))
		default:
			entries = append(entries, types.NewFileEntry(displayPath(obj.Key), obj.Key, obj.Size))
		}
	}

	if prefix != "" && len(entries) == 0 && !marker {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound,
			fmt.Sprintf("No objects under prefix %q", prefix)).
			WithContext("path", prefix).
			Build())
	}
	return entries, nil
}

// DownloadFile opens a reader for the object at key
func (s *Storage) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	reqCtx := s.client.NewRequestContext(ctx, types.RequestTypeDownload, key)

	return api.ExecuteWithRetry(ctx, s.client, reqCtx, func(ctx context.Context) (io.ReadCloser, error) {
		return s.bucket.NewReader(ctx, key, nil)
	})
}

// Close closes the bucket
func (s *Storage) Close() error {
	return s.bucket.Close()
}

// normalizePrefix maps a user folder path onto a key prefix:
// "" for the whole bucket, otherwise no leading slash and one trailing slash
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), delimiter)
	if p == "" {
		return ""
	}
	return p + delimiter
}

func displayPath(key string) string {
	return delimiter + strings.TrimSuffix(key, delimiter)
}
