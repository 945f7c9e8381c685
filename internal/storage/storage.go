// Package storage defines the remote storage capability the mirror
// consumes and opens the configured backend.
package storage

import (
	"context"
	"io"

	"github.com/dl-alexandre/dbxmirror/internal/types"
)

// Storage lists remote folders and streams remote file content.
// Errors are *utils.AppError values.
type Storage interface {
	// ListFolder returns every direct child of the folder at path,
	// following pagination until the listing is complete
	ListFolder(ctx context.Context, path string) ([]types.RemoteEntry, error)
	// DownloadFile opens the content of the file at canonicalPath.
	// The caller closes the reader.
	DownloadFile(ctx context.Context, canonicalPath string) (io.ReadCloser, error)
}

// Backend is a Storage that holds resources until closed
type Backend interface {
	Storage
	io.Closer
}
