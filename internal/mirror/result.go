package mirror

import (
	"fmt"
	"sync"
	"time"

	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

// Item operations recorded in ItemError.Op
const (
	OpList     = "list"
	OpMkdir    = "mkdir"
	OpDownload = "download"
)

// ItemError is one failed list, mkdir or download
type ItemError struct {
	Op         string
	RemotePath string
	LocalPath  string
	Err        error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.RemotePath, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Code returns the error code of the underlying failure
func (e ItemError) Code() string {
	return utils.ErrorCode(e.Err)
}

// Result summarizes a run
type Result struct {
	Downloaded int
	Skipped    int
	Excluded   int
	Bytes      int64
	Errors     []ItemError
	Duration   time.Duration
}

// OK reports whether every item was downloaded, skipped or excluded
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

type tally struct {
	mu         sync.Mutex
	downloaded int
	skipped    int
	excluded   int
	bytes      int64
	errors     []ItemError
}

func (t *tally) download(n int64) {
	t.mu.Lock()
	t.downloaded++
	t.bytes += n
	t.mu.Unlock()
}

func (t *tally) skip() {
	t.mu.Lock()
	t.skipped++
	t.mu.Unlock()
}

func (t *tally) exclude() {
	t.mu.Lock()
	t.excluded++
	t.mu.Unlock()
}

func (t *tally) fail(e ItemError) {
	t.mu.Lock()
	t.errors = append(t.errors, e)
	t.mu.Unlock()
}

func (t *tally) result(d time.Duration) Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Result{
		Downloaded: t.downloaded,
		Skipped:    t.skipped,
		Excluded:   t.excluded,
		Bytes:      t.bytes,
		Errors:     append([]ItemError(nil), t.errors...),
		Duration:   d,
	}
}
