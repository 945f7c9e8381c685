// Package mirror downloads a remote folder tree into a local directory.
//
// The local tree mirrors the remote structure. A file is skipped when a
// regular local file of the same byte size already exists at its target;
// this size-only check is deliberately weak and can both miss stale files
// and trust truncated ones. There is no other comparison and no deletion.
package mirror

import (
	"context"
	"time"

	"github.com/dl-alexandre/dbxmirror/internal/exclude"
	"github.com/dl-alexandre/dbxmirror/internal/localfs"
	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/storage"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

// Mode selects the scheduling model
type Mode int

const (
	// ModeConcurrent runs every listing and download in its own goroutine,
	// with at most Options.Concurrency of them doing I/O at once
	ModeConcurrent Mode = iota
	// ModeSequential walks the tree depth-first on the calling goroutine
	ModeSequential
)

func (m Mode) String() string {
	if m == ModeSequential {
		return "sequential"
	}
	return "concurrent"
}

// Options configures a Mirror
type Options struct {
	Mode        Mode
	Concurrency int
	ChunkSize   int
	Exclude     *exclude.Matcher
	DryRun      bool
	Reporter    Reporter
	Logger      logging.Logger
}

// Mirror copies one remote tree to a local filesystem
type Mirror struct {
	store  storage.Storage
	fs     *localfs.FS
	opts   Options
	logger logging.Logger
}

// New creates a Mirror. Zero option values fall back to defaults.
func New(store storage.Storage, fs *localfs.FS, opts Options) *Mirror {
	if opts.Concurrency <= 0 {
		opts.Concurrency = utils.DefaultConcurrency
	}
	if opts.Mode == ModeSequential {
		opts.Concurrency = 1
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = utils.DefaultChunkSize
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNoOpLogger()
	}
	return &Mirror{store: store, fs: fs, opts: opts, logger: opts.Logger}
}

// Run mirrors the folder at remoteRoot into the local base directory.
//
// Per-item failures are collected in Result.Errors and never stop sibling
// work. The returned error is non-nil only when the run as a whole failed:
// an authentication error from any call, a missing root folder, or ctx
// being cancelled (ctx.Err() is returned). Files already written stay on
// disk in every case.
func (m *Mirror) Run(ctx context.Context, remoteRoot string) (Result, error) {
	start := time.Now()
	w := newWalker(ctx, m)
	defer w.cancel(nil)

	m.logger.Info("Mirror starting",
		logging.F("remoteRoot", remoteRoot),
		logging.F("localBase", m.fs.Abs("")),
		logging.F("mode", m.opts.Mode.String()),
		logging.F("concurrency", m.opts.Concurrency),
		logging.F("dryRun", m.opts.DryRun),
	)

	w.spawn(func() { w.folderTask(remoteRoot, "", true) })
	w.wait()

	result := w.tally.result(time.Since(start))
	err := w.fatalError()
	if err == nil {
		err = ctx.Err()
	}

	m.logger.Info("Mirror finished",
		logging.F("downloaded", result.Downloaded),
		logging.F("skipped", result.Skipped),
		logging.F("excluded", result.Excluded),
		logging.F("failed", len(result.Errors)),
		logging.F("bytes", result.Bytes),
		logging.F("duration_ms", result.Duration.Milliseconds()),
	)
	return result, err
}
