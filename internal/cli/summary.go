package cli

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dl-alexandre/dbxmirror/internal/mirror"
	"github.com/dl-alexandre/dbxmirror/internal/types"
)

// MirrorSummary is the data of the mirror command's output
type MirrorSummary struct {
	Backend    string          `json:"backend"`
	RemoteRoot string          `json:"remoteRoot"`
	LocalBase  string          `json:"localBase"`
	Mode       string          `json:"mode"`
	DryRun     bool            `json:"dryRun"`
	Downloaded int             `json:"downloaded"`
	Skipped    int             `json:"skipped"`
	Excluded   int             `json:"excluded"`
	Failed     int             `json:"failed"`
	Bytes      int64           `json:"bytes"`
	DurationMs int64           `json:"durationMs"`
	Failures   []MirrorFailure `json:"failures"`
}

// MirrorFailure is one failed item
type MirrorFailure struct {
	Op         string `json:"op"`
	RemotePath string `json:"remotePath"`
	LocalPath  string `json:"localPath,omitempty"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func newMirrorSummary(r mirror.Result, backend, remoteRoot, localBase string, mode mirror.Mode, dryRun bool) *MirrorSummary {
	s := &MirrorSummary{
		Backend:    backend,
		RemoteRoot: remoteRoot,
		LocalBase:  localBase,
		Mode:       mode.String(),
		DryRun:     dryRun,
		Downloaded: r.Downloaded,
		Skipped:    r.Skipped,
		Excluded:   r.Excluded,
		Failed:     len(r.Errors),
		Bytes:      r.Bytes,
		DurationMs: r.Duration.Milliseconds(),
		Failures:   make([]MirrorFailure, 0, len(r.Errors)),
	}
	for _, e := range r.Errors {
		s.Failures = append(s.Failures, MirrorFailure{
			Op:         e.Op,
			RemotePath: e.RemotePath,
			LocalPath:  e.LocalPath,
			Code:       e.Code(),
			Message:    cliErrorOf(e.Err).Message,
		})
	}
	return s
}

// cliErrors returns the per-item errors for the JSON envelope
func (s *MirrorSummary) cliErrors(r mirror.Result) []types.CLIError {
	out := make([]types.CLIError, 0, len(r.Errors))
	for _, e := range r.Errors {
		cliErr := cliErrorOf(e.Err)
		ctx := make(map[string]interface{}, len(cliErr.Context)+3)
		for k, v := range cliErr.Context {
			ctx[k] = v
		}
		ctx["op"] = e.Op
		ctx["remotePath"] = e.RemotePath
		if e.LocalPath != "" {
			ctx["localPath"] = e.LocalPath
		}
		cliErr.Context = ctx
		out = append(out, cliErr)
	}
	return out
}

// Tables renders the totals and, when present, the failures
func (s *MirrorSummary) Tables() []types.TableRenderer {
	return []types.TableRenderer{totalsTable{s}, failuresTable(s.Failures)}
}

type totalsTable struct{ s *MirrorSummary }

func (t totalsTable) Headers() []string {
	first := "Downloaded"
	if t.s.DryRun {
		first = "Would download"
	}
	return []string{first, "Skipped", "Excluded", "Failed", "Transferred", "Duration"}
}

func (t totalsTable) Rows() [][]string {
	return [][]string{{
		strconv.Itoa(t.s.Downloaded),
		strconv.Itoa(t.s.Skipped),
		strconv.Itoa(t.s.Excluded),
		strconv.Itoa(t.s.Failed),
		humanize.IBytes(uint64(t.s.Bytes)),
		(time.Duration(t.s.DurationMs) * time.Millisecond).String(),
	}}
}

func (t totalsTable) EmptyMessage() string { return "" }

type failuresTable []MirrorFailure

func (f failuresTable) Headers() []string {
	return []string{"Operation", "Path", "Code", "Message"}
}

func (f failuresTable) Rows() [][]string {
	rows := make([][]string, 0, len(f))
	for _, e := range f {
		rows = append(rows, []string{e.Op, truncate(e.RemotePath, 60), e.Code, truncate(e.Message, 80)})
	}
	return rows
}

func (f failuresTable) EmptyMessage() string { return "" }
