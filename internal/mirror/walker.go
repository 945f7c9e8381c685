package mirror

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/dl-alexandre/dbxmirror/internal/localfs"
	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

// walker holds the state of one Run. Folder and file tasks are started
// through spawn: on their own goroutine in concurrent mode, inline in
// sequential mode. The semaphore is held only around remote I/O, so a
// task waiting for its children never occupies a slot.
type walker struct {
	m      *Mirror
	ctx    context.Context
	cancel context.CancelCauseFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	tally  tally

	fatalMu sync.Mutex
	fatal   error
}

func newWalker(parent context.Context, m *Mirror) *walker {
	ctx, cancel := context.WithCancelCause(parent)
	return &walker{
		m:      m,
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(int64(m.opts.Concurrency)),
	}
}

func (w *walker) spawn(fn func()) {
	if w.m.opts.Mode == ModeSequential {
		fn()
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
}

func (w *walker) wait() {
	w.wg.Wait()
}

// abort stops the whole run. Only the first cause is kept.
func (w *walker) abort(err error) {
	w.fatalMu.Lock()
	if w.fatal == nil {
		w.fatal = err
	}
	w.fatalMu.Unlock()
	w.cancel(err)
}

func (w *walker) fatalError() error {
	w.fatalMu.Lock()
	defer w.fatalMu.Unlock()
	return w.fatal
}

// record files an item failure, or aborts the run when the failure is
// an authentication error. Failures caused by the run being cancelled
// are dropped.
func (w *walker) record(item ItemError) {
	if w.ctx.Err() != nil {
		return
	}
	if utils.IsAuthError(item.Err) {
		w.m.logger.Error("Authentication failed, stopping",
			logging.F("path", item.RemotePath),
			logging.F("code", item.Code()),
		)
		w.abort(item.Err)
		return
	}
	w.m.logger.Warn("Item failed",
		logging.F("op", item.Op),
		logging.F("path", item.RemotePath),
		logging.F("code", item.Code()),
		logging.F("error", item.Err),
	)
	w.tally.fail(item)
	w.m.opts.Reporter.Report(Event{
		Kind:       EventFailure,
		RemotePath: item.RemotePath,
		LocalPath:  item.LocalPath,
		DryRun:     w.m.opts.DryRun,
		Err:        &item,
	})
}

// acquire takes an I/O slot. It fails only when the run is cancelled.
func (w *walker) acquire() bool {
	return w.sem.Acquire(w.ctx, 1) == nil
}

func (w *walker) release() {
	w.sem.Release(1)
}

// folderTask lists one folder and starts a task for every child. It
// returns once the downloads of its direct files are finished; subfolder
// tasks are tracked by the walker.
func (w *walker) folderTask(canonical, display string, root bool) {
	entries, err := w.list(canonical)
	if err != nil {
		if root && utils.IsNotFound(err) {
			w.abort(err)
			return
		}
		w.record(ItemError{
			Op:         OpList,
			RemotePath: displayOrRoot(display, canonical),
			LocalPath:  w.localOf(display),
			Err:        err,
		})
		return
	}

	w.m.logger.Debug("Listed folder",
		logging.F("path", displayOrRoot(display, canonical)),
		logging.F("entries", len(entries)),
	)

	var files sync.WaitGroup
	for _, entry := range entries {
		if w.ctx.Err() != nil {
			break
		}

		target, err := localfs.TargetPath(entry.DisplayPath)
		if err != nil {
			w.record(ItemError{Op: opFor(entry), RemotePath: entry.DisplayPath, Err: err})
			continue
		}
		if w.excluded(entry, target) {
			continue
		}

		switch entry.Kind {
		case types.EntryKindFolder:
			if !w.m.opts.DryRun {
				if err := w.m.fs.EnsureDir(target); err != nil {
					w.record(ItemError{
						Op:         OpMkdir,
						RemotePath: entry.DisplayPath,
						LocalPath:  w.m.fs.Abs(target),
						Err:        err,
					})
					continue
				}
			}
			w.spawn(func() { w.folderTask(entry.CanonicalPath, entry.DisplayPath, false) })
		case types.EntryKindFile:
			files.Add(1)
			w.spawn(func() {
				defer files.Done()
				w.fileTask(entry, target)
			})
		default:
			w.record(ItemError{
				Op:         OpList,
				RemotePath: entry.DisplayPath,
				Err: utils.NewAppError(utils.NewCLIError(utils.ErrCodeUnknown,
					fmt.Sprintf("Unsupported entry kind %s", entry.Kind)).
					WithContext("path", entry.DisplayPath).
					Build()),
			})
		}
	}
	files.Wait()
}

// list runs one ListFolder call inside an I/O slot
func (w *walker) list(canonical string) ([]types.RemoteEntry, error) {
	if !w.acquire() {
		return nil, w.ctx.Err()
	}
	defer w.release()

	return w.m.store.ListFolder(w.ctx, canonical)
}

func (w *walker) excluded(entry types.RemoteEntry, target string) bool {
	matcher := w.m.opts.Exclude
	if matcher == nil || !matcher.IsExcluded(target, entry.IsFolder()) {
		return false
	}
	w.m.logger.Debug("Excluded", logging.F("path", entry.DisplayPath))
	w.tally.exclude()
	w.m.opts.Reporter.Report(Event{
		Kind:       EventExclude,
		RemotePath: entry.DisplayPath,
		LocalPath:  w.m.fs.Abs(target),
		Folder:     entry.IsFolder(),
		DryRun:     w.m.opts.DryRun,
	})
	return true
}

func (w *walker) localOf(display string) string {
	target, err := localfs.TargetPath(display)
	if err != nil {
		return ""
	}
	return w.m.fs.Abs(target)
}

func opFor(entry types.RemoteEntry) string {
	if entry.IsFolder() {
		return OpMkdir
	}
	return OpDownload
}

func displayOrRoot(display, canonical string) string {
	if display != "" {
		return display
	}
	if canonical == "" {
		return "/"
	}
	return canonical
}
