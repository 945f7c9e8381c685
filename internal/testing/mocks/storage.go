package mocks

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

// MockStorage is an instrumented storage.Storage.
//
// Set ListFolderFunc / DownloadFileFunc to script behaviour, or build one
// from a file map with NewTreeStorage. Every call is recorded, and the
// number of calls in progress is tracked. A download stays in progress
// until its reader is closed.
type MockStorage struct {
	ListFolderFunc   func(ctx context.Context, path string) ([]types.RemoteEntry, error)
	DownloadFileFunc func(ctx context.Context, canonicalPath string) (io.ReadCloser, error)

	// Delay is slept inside every call before it returns
	Delay time.Duration

	mu            sync.Mutex
	listCalls     []string
	downloadCalls []string

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// ListFolder implements storage.Storage
func (m *MockStorage) ListFolder(ctx context.Context, path string) ([]types.RemoteEntry, error) {
	m.enter()
	defer m.leave()

	m.mu.Lock()
	m.listCalls = append(m.listCalls, path)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.ListFolderFunc != nil {
		return m.ListFolderFunc(ctx, path)
	}
	return nil, nil
}

// DownloadFile implements storage.Storage
func (m *MockStorage) DownloadFile(ctx context.Context, canonicalPath string) (io.ReadCloser, error) {
	m.enter()

	m.mu.Lock()
	m.downloadCalls = append(m.downloadCalls, canonicalPath)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		m.leave()
		return nil, err
	}
	if m.DownloadFileFunc == nil {
		m.leave()
		return nil, notFound(canonicalPath)
	}
	rc, err := m.DownloadFileFunc(ctx, canonicalPath)
	if err != nil {
		m.leave()
		return nil, err
	}
	return &trackedReader{ReadCloser: rc, done: m.leave}, nil
}

func (m *MockStorage) enter() {
	n := m.inFlight.Add(1)
	for {
		max := m.maxInFlight.Load()
		if n <= max || m.maxInFlight.CompareAndSwap(max, n) {
			return
		}
	}
}

func (m *MockStorage) leave() {
	m.inFlight.Add(-1)
}

func (m *MockStorage) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ListCalls returns the paths passed to ListFolder, in call order
func (m *MockStorage) ListCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.listCalls...)
}

// DownloadCalls returns the paths passed to DownloadFile, in call order
func (m *MockStorage) DownloadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.downloadCalls...)
}

// MaxInFlight is the highest number of simultaneous calls observed
func (m *MockStorage) MaxInFlight() int64 {
	return m.maxInFlight.Load()
}

// InFlight is the number of calls currently in progress
func (m *MockStorage) InFlight() int64 {
	return m.inFlight.Load()
}

type trackedReader struct {
	io.ReadCloser
	once sync.Once
	done func()
}

func (r *trackedReader) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(r.done)
	return err
}

// NewTreeStorage serves files keyed by display path ("/Docs/A.txt").
// Canonical paths are the lowercased display paths, as on Dropbox.
// Folders are implied by the file paths; an entry ending in "/" declares
// an empty folder.
func NewTreeStorage(files map[string]string) *MockStorage {
	folders := map[string][]types.RemoteEntry{"": nil}
	contents := make(map[string]string)

	addFolder := func(display string) {
		canonical := strings.ToLower(display)
		if _, ok := folders[canonical]; ok {
			return
		}
		folders[canonical] = nil
		parent := canonical[:strings.LastIndex(canonical, "/")]
		folders[parent] = append(folders[parent], types.NewFolderEntry(display, canonical))
	}

	for key, content := range files {
		isDir := strings.HasSuffix(key, "/")
		display := "/" + strings.Trim(key, "/")
		parts := strings.Split(strings.Trim(key, "/"), "/")
		for i := 1; i < len(parts); i++ {
			addFolder("/" + strings.Join(parts[:i], "/"))
		}
		if isDir {
			addFolder(display)
			continue
		}
		canonical := strings.ToLower(display)
		parent := canonical[:strings.LastIndex(canonical, "/")]
		folders[parent] = append(folders[parent], types.NewFileEntry(display, canonical, int64(len(content))))
		contents[canonical] = content
	}

	for _, entries := range folders {
		sort.Slice(entries, func(i, j int) bool { return entries[i].DisplayPath < entries[j].DisplayPath })
	}

	return &MockStorage{
		ListFolderFunc: func(ctx context.Context, path string) ([]types.RemoteEntry, error) {
			entries, ok := folders[strings.ToLower(strings.TrimRight(path, "/"))]
			if !ok {
				return nil, notFound(path)
			}
			return append([]types.RemoteEntry(nil), entries...), nil
		},
		DownloadFileFunc: func(ctx context.Context, canonicalPath string) (io.ReadCloser, error) {
			content, ok := contents[canonicalPath]
			if !ok {
				return nil, notFound(canonicalPath)
			}
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func notFound(path string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound,
		fmt.Sprintf("path/not_found: %s", path)).Build())
}
