package utils

// Transfer defaults
const (
	DefaultChunkSize   = 4096
	MaxChunkSize       = 64 * 1024 * 1024 // 64 MiB
	DefaultConcurrency = 10
	MaxConcurrency     = 256
)

// Retry configuration
const (
	DefaultMaxRetries     = 3
	DefaultRetryDelayMs   = 1000
	MaxRetryDelayMs       = 32000
	DefaultRequestTimeout = 60 // seconds
)

// Schema version
const SchemaVersion = "1.0"

// Keyring service name used for read-only token lookup
const KeyringService = "dbxmirror"

// Storage backends
const (
	BackendDropbox = "dropbox"
	BackendGDrive  = "gdrive"
	BackendBlob    = "blob"
)

// Google Drive MIME types
const (
	MimeTypeFolder   = "application/vnd.google-apps.folder"
	MimeTypeShortcut = "application/vnd.google-apps.shortcut"
	mimeTypeGoogle   = "application/vnd.google-apps."
)

// IsWorkspaceMimeType checks if a MIME type is a Google Workspace type.
// Those have no blob content and need an export instead of a download.
func IsWorkspaceMimeType(mimeType string) bool {
	return len(mimeType) > len(mimeTypeGoogle) && mimeType[:len(mimeTypeGoogle)] == mimeTypeGoogle
}
