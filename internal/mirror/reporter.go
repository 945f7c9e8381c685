package mirror

// EventKind identifies a progress event
type EventKind int

const (
	// EventDownloadStart is sent before a file is fetched
	EventDownloadStart EventKind = iota
	// EventDownloadDone is sent after a file was fully written
	EventDownloadDone
	// EventSkip is sent when the local file already has the remote size
	EventSkip
	// EventExclude is sent for entries matching an exclude pattern
	EventExclude
	// EventFailure is sent for every recorded ItemError
	EventFailure
)

// Event describes one step of a run. RemotePath is the display path and
// LocalPath the absolute local target.
type Event struct {
	Kind       EventKind
	RemotePath string
	LocalPath  string
	Size       int64
	Bytes      int64
	Folder     bool
	DryRun     bool
	Err        *ItemError
}

// Reporter receives progress events. Concurrent runs call Report from
// many goroutines.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(Event)

// Report calls f(e)
func (f ReporterFunc) Report(e Event) { f(e) }

// NopReporter discards events
type NopReporter struct{}

// Report does nothing
func (NopReporter) Report(Event) {}
