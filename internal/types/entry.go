package types

import "fmt"

// EntryKind discriminates the variants of RemoteEntry
type EntryKind int

const (
	// EntryKindFile is a downloadable file with a byte size
	EntryKindFile EntryKind = iota + 1
	// EntryKindFolder is a folder that can be listed
	EntryKindFolder
)

func (k EntryKind) String() string {
	switch k {
	case EntryKindFile:
		return "file"
	case EntryKindFolder:
		return "folder"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// RemoteEntry is one listed item returned by a storage backend.
//
// DisplayPath preserves the case the user sees and is used to derive the
// local target path. CanonicalPath is whatever the backend uses to address
// the entry in later API calls: the lowercase path on Dropbox, the file ID on
// Google Drive, the object key on buckets.
type RemoteEntry struct {
	Kind          EntryKind `json:"kind"`
	DisplayPath   string    `json:"displayPath"`
	CanonicalPath string    `json:"canonicalPath"`
	Size          int64     `json:"size,omitempty"`
}

// NewFileEntry creates a file entry
func NewFileEntry(displayPath, canonicalPath string, size int64) RemoteEntry {
	return RemoteEntry{
		Kind:          EntryKindFile,
		DisplayPath:   displayPath,
		CanonicalPath: canonicalPath,
		Size:          size,
	}
}

// NewFolderEntry creates a folder entry
func NewFolderEntry(displayPath, canonicalPath string) RemoteEntry {
	return RemoteEntry{
		Kind:          EntryKindFolder,
		DisplayPath:   displayPath,
		CanonicalPath: canonicalPath,
	}
}

// IsFolder reports whether the entry is a folder
func (e RemoteEntry) IsFolder() bool {
	return e.Kind == EntryKindFolder
}
