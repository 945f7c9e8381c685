package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/dl-alexandre/dbxmirror/internal/auth"
	"github.com/dl-alexandre/dbxmirror/internal/exclude"
	"github.com/dl-alexandre/dbxmirror/internal/localfs"
	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/mirror"
	"github.com/dl-alexandre/dbxmirror/internal/storage"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

const mirrorCommand = "mirror"

func (a *app) runMirror(ctx context.Context, tokenArg string) error {
	cfg := a.cfg
	ctx = logging.ContextWithTraceID(ctx, a.traceID)

	token := ""
	if cfg.Backend != utils.BackendBlob {
		tok, err := auth.ResolveToken(tokenArg, cfg.DefaultProfile)
		if err != nil {
			return a.fail(err)
		}
		a.logger.Debug("Resolved access token", logging.F("source", string(tok.Source)))
		token = tok.Value
	}

	patterns := cfg.Exclude
	if a.flags.DefaultExcludes {
		patterns = append(append([]string(nil), patterns...), exclude.DefaultPatterns()...)
	}
	matcher, err := exclude.New(patterns)
	if err != nil {
		return a.fail(invalidArgument(err.Error()))
	}

	var fs *localfs.FS
	if a.flags.DryRun {
		fs, err = localfs.OpenOSFS(a.flags.LocalPath)
	} else {
		fs, err = localfs.NewOSFS(a.flags.LocalPath)
	}
	if err != nil {
		return a.fail(err)
	}

	store, err := storage.Open(ctx, storage.Options{
		Backend:        cfg.Backend,
		Token:          token,
		Bucket:         cfg.Bucket,
		Profile:        cfg.DefaultProfile,
		MaxRetries:     cfg.MaxRetries,
		RetryDelayMs:   cfg.RetryBaseDelay,
		RequestTimeout: cfg.GetRequestTimeout(),
		Debug:          a.flags.Debug,
		Logger:         a.logger,
	})
	if err != nil {
		return a.fail(err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("Closing storage failed", logging.F("error", err))
		}
	}()

	mode := mirror.ModeConcurrent
	if a.flags.Sequential {
		mode = mirror.ModeSequential
	}
	m := mirror.New(store, fs, mirror.Options{
		Mode:        mode,
		Concurrency: cfg.Concurrency,
		ChunkSize:   cfg.ChunkSize,
		Exclude:     matcher,
		DryRun:      a.flags.DryRun,
		Reporter:    statusReporter{out: a.out},
		Logger:      a.logger,
	})

	result, runErr := m.Run(ctx, a.flags.RemotePath)
	summary := newMirrorSummary(result, cfg.Backend, a.flags.RemotePath, fs.Abs(""), mode, a.flags.DryRun)

	if runErr != nil {
		a.reported = true
		errs := append([]types.CLIError{cliErrorOf(runErr)}, summary.cliErrors(result)...)
		if err := a.out.WriteFailure(a.traceID, mirrorCommand, summary, errs); err != nil {
			return err
		}
		return runErr
	}

	if err := a.out.WriteSuccess(a.traceID, mirrorCommand, summary, summary.cliErrors(result)); err != nil {
		return err
	}
	if !result.OK() {
		a.reported = true
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeBatchPartialFailure,
			fmt.Sprintf("%d item(s) failed", len(result.Errors))).Build())
	}
	return nil
}

// fail reports an error that stopped the command before any transfer
func (a *app) fail(err error) error {
	a.reported = true
	if werr := a.out.WriteError(a.traceID, mirrorCommand, cliErrorOf(err)); werr != nil {
		a.logger.Error("Writing error output failed", logging.F("error", werr))
	}
	return err
}

// statusReporter turns mirror events into status lines
type statusReporter struct {
	out *OutputWriter
}

func (r statusReporter) Report(e mirror.Event) {
	prefix := ""
	if e.DryRun {
		prefix = "[dry-run] "
	}
	switch e.Kind {
	case mirror.EventDownloadStart:
		r.out.Status("%sDownloading %s to %s...", prefix, e.RemotePath, e.LocalPath)
	case mirror.EventSkip:
		r.out.Status("%sSkipping %s, %s already present", prefix, e.RemotePath, humanize.IBytes(uint64(e.Size)))
	case mirror.EventFailure:
		r.out.Status("%sFailed to %s %s: %s", prefix, e.Err.Op, e.RemotePath, cliErrorOf(e.Err.Err).Message)
	case mirror.EventExclude:
		r.out.Verbose("%sExcluding %s", prefix, e.RemotePath)
	case mirror.EventDownloadDone:
		r.out.Verbose("Downloaded %s (%s)", e.RemotePath, humanize.IBytes(uint64(e.Bytes)))
	}
}
