// Package gdrive implements storage.Storage on the Google Drive v3 API.
//
// Drive addresses files by ID, so an entry's canonical path is its file ID
// and its display path is assembled from names while walking down from the
// mirrored root.
package gdrive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/dl-alexandre/dbxmirror/internal/api"
	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

const rootID = "root"

const listFields = "nextPageToken, files(id,name,mimeType,size)"

// Storage is the Google Drive backend
type Storage struct {
	service *drive.Service
	client  *api.Client
	// display path of every folder listed so far, keyed by folder ID
	folders sync.Map
}

// New creates a backend whose requests go through httpClient
func New(ctx context.Context, httpClient *http.Client, client *api.Client, opts ...option.ClientOption) (*Storage, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("Failed to create Drive service: %v", err)).Build())
	}
	return NewWithService(service, client), nil
}

// NewWithService wraps an existing Drive service
func NewWithService(service *drive.Service, client *api.Client) *Storage {
	s := &Storage{service: service, client: client}
	s.folders.Store(rootID, "")
	return s
}

// ListFolder lists the folder identified by folderRef. folderRef is a
// folder ID, "" for My Drive, or a "/"-rooted path of folder names.
func (s *Storage) ListFolder(ctx context.Context, folderRef string) ([]types.RemoteEntry, error) {
	folderID, display, err := s.resolveFolder(ctx, folderRef)
	if err != nil {
		return nil, err
	}

	reqCtx := s.client.NewRequestContext(ctx, types.RequestTypeListFolder, display)
	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryString(folderID))

	var children []*drive.File
	pageToken := ""
	for {
		call := s.service.Files.List().
			Q(query).
			Fields(listFields).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			PageSize(1000)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := api.ExecuteWithRetry(ctx, s.client, reqCtx, func(ctx context.Context) (*drive.FileList, error) {
			return call.Context(ctx).Do()
		})
		if err != nil {
			return nil, err
		}
		children = append(children, list.Files...)

		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	return s.toEntries(display, children), nil
}

func (s *Storage) toEntries(parentDisplay string, children []*drive.File) []types.RemoteEntry {
	logger := s.client.Logger()

	names := make(map[string]int, len(children))
	for _, f := range children {
		names[safeName(f.Name)]++
	}

	entries := make([]types.RemoteEntry, 0, len(children))
	for _, f := range children {
		name := safeName(f.Name)
		if names[name] > 1 {
			name = name + "~" + f.Id
		}
		display := parentDisplay + "/" + name

		switch {
		case f.MimeType == utils.MimeTypeFolder:
			s.folders.Store(f.Id, display)
			entries = append(entries, types.NewFolderEntry(display, f.Id))
		case f.MimeType == utils.MimeTypeShortcut || utils.IsWorkspaceMimeType(f.MimeType):
			logger.Debug("Skipping non-downloadable Drive item",
				logging.F("path", display),
				logging.F("mimeType", f.MimeType),
			)
		default:
			entries = append(entries, types.NewFileEntry(display, f.Id, f.Size))
		}
	}
	return entries
}

// DownloadFile streams the content of the file with ID canonicalPath
func (s *Storage) DownloadFile(ctx context.Context, canonicalPath string) (io.ReadCloser, error) {
	reqCtx := s.client.NewRequestContext(ctx, types.RequestTypeDownload, canonicalPath)

	return api.ExecuteWithRetry(ctx, s.client, reqCtx, func(ctx context.Context) (io.ReadCloser, error) {
		resp, err := s.service.Files.Get(canonicalPath).
			SupportsAllDrives(true).
			Context(ctx).
			Download()
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	})
}

// Close is a no-op; the HTTP client is shared
func (s *Storage) Close() error {
	return nil
}

// resolveFolder maps a folder reference to its ID and display path
func (s *Storage) resolveFolder(ctx context.Context, ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "" || ref == "/" || ref == rootID:
		return rootID, "", nil
	case strings.HasPrefix(ref, "/"):
		return s.resolvePath(ctx, ref)
	}

	if display, ok := s.folders.Load(ref); ok {
		return ref, display.(string), nil
	}
	// an ID given as the mirror root: its children land directly under the base
	s.folders.Store(ref, "")
	return ref, "", nil
}

// resolvePath walks a "/"-separated path of folder names down from My Drive
func (s *Storage) resolvePath(ctx context.Context, p string) (string, string, error) {
	clean := path.Clean(p)
	segments := strings.Split(strings.Trim(clean, "/"), "/")
	reqCtx := s.client.NewRequestContext(ctx, types.RequestTypeResolve, clean)

	currentID := rootID
	for i, segment := range segments {
		query := fmt.Sprintf("'%s' in parents and name = '%s' and mimeType = '%s' and trashed = false",
			escapeQueryString(currentID), escapeQueryString(segment), utils.MimeTypeFolder)
		call := s.service.Files.List().
			Q(query).
			Fields("files(id,name)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true)

		list, err := api.ExecuteWithRetry(ctx, s.client, reqCtx, func(ctx context.Context) (*drive.FileList, error) {
			return call.Context(ctx).Do()
		})
		if err != nil {
			return "", "", err
		}

		if len(list.Files) == 0 {
			return "", "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound,
				fmt.Sprintf("Folder not found: %s (at /%s)", segment, strings.Join(segments[:i+1], "/"))).
				WithContext("path", clean).
				WithContext("segment", segment).
				Build())
		}
		if len(list.Files) > 1 {
			s.client.Logger().Warn("Ambiguous folder name, using first match",
				logging.F("path", clean),
				logging.F("segment", segment),
				logging.F("matches", len(list.Files)),
			)
		}
		currentID = list.Files[0].Id
	}

	s.folders.Store(currentID, clean)
	return currentID, clean, nil
}

// safeName makes a Drive name usable as one local path segment
func safeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	switch name {
	case "", ".", "..":
		return "_" + name
	}
	return name
}

func escapeQueryString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}
