// Package dropbox implements storage.Storage on the Dropbox v2 API
package dropbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	dbx "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"

	"github.com/dl-alexandre/dbxmirror/internal/api"
	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
)

// filesAPI is the subset of files.Client the backend calls
type filesAPI interface {
	ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error)
	ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error)
	Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error)
}

// Storage is the Dropbox backend
type Storage struct {
	files  filesAPI
	client *api.Client
}

// New creates a backend whose requests go through httpClient. The client
// is expected to carry the bearer token.
func New(httpClient *http.Client, client *api.Client) *Storage {
	cfg := dbx.Config{
		LogLevel: dbx.LogOff,
		Client:   httpClient,
	}
	return newWithFiles(files.New(cfg), client)
}

func newWithFiles(f filesAPI, client *api.Client) *Storage {
	return &Storage{files: f, client: client}
}

// ListFolder lists path, following cursors until has_more is false
func (s *Storage) ListFolder(ctx context.Context, path string) ([]types.RemoteEntry, error) {
	path = normalizePath(path)
	reqCtx := s.client.NewRequestContext(ctx, types.RequestTypeListFolder, path)

	res, err := api.ExecuteWithRetry(ctx, s.client, reqCtx, func(context.Context) (*files.ListFolderResult, error) {
		return s.files.ListFolder(files.NewListFolderArg(path))
	})
	if err != nil {
		return nil, err
	}

	entries := s.convert(path, res.Entries, nil)
	for res.HasMore {
		cursor := res.Cursor
		res, err = api.ExecuteWithRetry(ctx, s.client, reqCtx, func(context.Context) (*files.ListFolderResult, error) {
			return s.files.ListFolderContinue(files.NewListFolderContinueArg(cursor))
		})
		if err != nil {
			return nil, err
		}
		entries = s.convert(path, res.Entries, entries)
	}

	return entries, nil
}

func (s *Storage) convert(parent string, in []files.IsMetadata, out []types.RemoteEntry) []types.RemoteEntry {
	for _, m := range in {
		switch e := m.(type) {
		case *files.FileMetadata:
			out = append(out, types.NewFileEntry(e.PathDisplay, e.PathLower, int64(e.Size)))
		case *files.FolderMetadata:
			out = append(out, types.NewFolderEntry(e.PathDisplay, e.PathLower))
		default:
			s.client.Logger().Debug("Ignoring entry",
				logging.F("folder", parent),
				logging.F("type", fmt.Sprintf("%T", m)),
			)
		}
	}
	return out
}

// DownloadFile opens the content of the file at canonicalPath
func (s *Storage) DownloadFile(ctx context.Context, canonicalPath string) (io.ReadCloser, error) {
	reqCtx := s.client.NewRequestContext(ctx, types.RequestTypeDownload, canonicalPath)

	return api.ExecuteWithRetry(ctx, s.client, reqCtx, func(context.Context) (io.ReadCloser, error) {
		_, content, err := s.files.Download(files.NewDownloadArg(canonicalPath))
		return content, err
	})
}

// Close is a no-op; the HTTP client is shared
func (s *Storage) Close() error {
	return nil
}

// normalizePath turns user input into the form list_folder accepts:
// "" for the root, otherwise a leading slash and no trailing one
func normalizePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "id:") && !strings.HasPrefix(p, "ns:") {
		p = "/" + p
	}
	return p
}
