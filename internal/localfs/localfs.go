// Package localfs is the local filesystem capability the mirror writes to.
// All paths are slash-separated and relative to the base directory.
package localfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

const (
	dirPerm  = 0755
	filePerm = 0644
)

// FS wraps a billy.Filesystem rooted at the mirror's base directory
type FS struct {
	fs   billy.Filesystem
	base string
}

// NewOSFS creates base if needed and returns an FS bound to it.
// Paths that would leave base are rejected by the filesystem.
func NewOSFS(base string) (*FS, error) {
	f, err := OpenOSFS(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(f.base, dirPerm); err != nil {
		return nil, utils.LocalIOError("mkdir", f.base, err)
	}
	return f, nil
}

// OpenOSFS is NewOSFS without creating base. Dry runs use it.
func OpenOSFS(base string) (*FS, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, utils.LocalIOError("resolve", base, err)
	}
	return NewFS(osfs.New(abs, osfs.WithBoundOS()), abs), nil
}

// NewMemFS returns an in-memory FS
func NewMemFS() *FS {
	return NewFS(memfs.New(), "/")
}

// NewFS wraps an existing billy filesystem; base is only used by Abs
func NewFS(fs billy.Filesystem, base string) *FS {
	return &FS{fs: fs, base: base}
}

// Raw returns the underlying billy filesystem
func (f *FS) Raw() billy.Filesystem {
	return f.fs
}

// EnsureDir creates rel and any missing parents. An existing directory
// is not an error.
func (f *FS) EnsureDir(rel string) error {
	if rel == "" {
		return nil
	}
	if err := f.fs.MkdirAll(rel, dirPerm); err != nil {
		return utils.LocalIOError("mkdir", f.Abs(rel), err)
	}
	return nil
}

// EnsureParent creates the directory that will hold rel
func (f *FS) EnsureParent(rel string) error {
	dir := path.Dir(rel)
	if dir == "." {
		return nil
	}
	return f.EnsureDir(dir)
}

// OpenForWrite creates rel, truncating any existing file
func (f *FS) OpenForWrite(rel string) (io.WriteCloser, error) {
	file, err := f.fs.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, utils.LocalIOError("create", f.Abs(rel), err)
	}
	return file, nil
}

// Stat reports the size of rel and whether it is a regular file.
// A missing path is exists=false with a nil error.
func (f *FS) Stat(rel string) (size int64, regular bool, exists bool, err error) {
	info, statErr := f.fs.Stat(rel)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return 0, false, false, nil
		}
		return 0, false, false, utils.LocalIOError("stat", f.Abs(rel), statErr)
	}
	return info.Size(), info.Mode().IsRegular(), true, nil
}

// Abs returns the absolute local path of rel, for messages
func (f *FS) Abs(rel string) string {
	if rel == "" {
		return f.base
	}
	return filepath.Join(f.base, filepath.FromSlash(rel))
}

// TargetPath maps a remote display path to a path relative to the base
// directory by stripping leading and trailing separators. The mapping is
// pure. A ".." segment is rejected rather than resolved, so distinct
// display paths never collapse onto one target.
func TargetPath(displayPath string) (string, error) {
	trimmed := strings.Trim(displayPath, "/")
	if trimmed == "" {
		return "", nil
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." {
			return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath,
				fmt.Sprintf("Remote path %q escapes the local base directory", displayPath)).
				WithContext("path", displayPath).
				Build())
		}
	}
	return path.Clean(trimmed), nil
}
