package mirror

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

// fileTask applies the size-only skip check and otherwise downloads entry
// to target, overwriting whatever is there
func (w *walker) fileTask(entry types.RemoteEntry, target string) {
	local := w.m.fs.Abs(target)
	fail := func(op string, err error) {
		w.record(ItemError{Op: op, RemotePath: entry.DisplayPath, LocalPath: local, Err: err})
	}

	size, regular, exists, err := w.m.fs.Stat(target)
	if err != nil {
		fail(OpDownload, err)
		return
	}
	if exists && regular && size == entry.Size {
		w.m.logger.Debug("Skipping, same size", logging.F("path", entry.DisplayPath), logging.F("size", size))
		w.tally.skip()
		w.m.opts.Reporter.Report(Event{
			Kind:       EventSkip,
			RemotePath: entry.DisplayPath,
			LocalPath:  local,
			Size:       entry.Size,
			DryRun:     w.m.opts.DryRun,
		})
		return
	}

	w.m.opts.Reporter.Report(Event{
		Kind:       EventDownloadStart,
		RemotePath: entry.DisplayPath,
		LocalPath:  local,
		Size:       entry.Size,
		DryRun:     w.m.opts.DryRun,
	})
	if w.m.opts.DryRun {
		w.tally.download(0)
		return
	}

	if err := w.m.fs.EnsureParent(target); err != nil {
		fail(OpMkdir, err)
		return
	}

	if !w.acquire() {
		return
	}
	written, err := w.download(entry, target)
	w.release()
	if err != nil {
		fail(OpDownload, err)
		return
	}

	if written != entry.Size {
		w.m.logger.Warn("Downloaded size differs from listed size",
			logging.F("path", entry.DisplayPath),
			logging.F("listed", entry.Size),
			logging.F("written", written),
		)
	}
	w.tally.download(written)
	w.m.opts.Reporter.Report(Event{
		Kind:       EventDownloadDone,
		RemotePath: entry.DisplayPath,
		LocalPath:  local,
		Size:       entry.Size,
		Bytes:      written,
	})
}

// download streams one file to disk. The caller holds an I/O slot.
func (w *walker) download(entry types.RemoteEntry, target string) (int64, error) {
	body, err := w.m.store.DownloadFile(w.ctx, entry.CanonicalPath)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	out, err := w.m.fs.OpenForWrite(target)
	if err != nil {
		return 0, err
	}
	written, copyErr := copyChunks(w.ctx, out, body, w.m.opts.ChunkSize)
	if closeErr := out.Close(); copyErr == nil && closeErr != nil {
		copyErr = utils.LocalIOError("close", w.m.fs.Abs(target), closeErr)
	}
	if copyErr != nil {
		return written, w.streamError(copyErr, entry, target)
	}
	return written, nil
}

func (w *walker) streamError(err error, entry types.RemoteEntry, target string) error {
	var appErr *utils.AppError
	if stderrors.As(err, &appErr) || w.ctx.Err() != nil {
		return err
	}
	var we *errWrite
	if stderrors.As(err, &we) {
		return utils.LocalIOError("write", w.m.fs.Abs(target), we.err)
	}
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeNetworkError,
		fmt.Sprintf("Download of %s interrupted: %v", entry.DisplayPath, err)).
		WithContext("path", entry.DisplayPath).
		WithContext("localPath", w.m.fs.Abs(target)).
		Build(), err)
}

// errWrite marks a failure on the local side of copyChunks
type errWrite struct{ err error }

func (e *errWrite) Error() string { return e.err.Error() }
func (e *errWrite) Unwrap() error { return e.err }

// copyChunks copies src to dst in reads of at most chunkSize bytes and
// checks ctx before every read. The byte count so far is returned with
// any error; the partial file is left for the next run to replace.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			m, err := dst.Write(buf[:n])
			written += int64(m)
			if err == nil && m != n {
				err = io.ErrShortWrite
			}
			if err != nil {
				return written, &errWrite{err: err}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
