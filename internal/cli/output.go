package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"

	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

// OutputWriter handles CLI output formatting. Status lines go to stdout
// in table mode and to stderr in JSON mode, so stdout stays parseable.
type OutputWriter struct {
	format   types.OutputFormat
	quiet    bool
	verbose  bool
	stdout   io.Writer
	stderr   io.Writer
	warnings []types.CLIWarning

	// mu serializes status lines from concurrent downloads
	mu sync.Mutex
}

// NewOutputWriter creates a new output writer
func NewOutputWriter(format types.OutputFormat, quiet, verbose bool, stdout, stderr io.Writer) *OutputWriter {
	return &OutputWriter{
		format:   format,
		quiet:    quiet,
		verbose:  verbose,
		stdout:   stdout,
		stderr:   stderr,
		warnings: []types.CLIWarning{},
	}
}

// JSON reports whether results are written as a JSON envelope
func (w *OutputWriter) JSON() bool {
	return w.format == types.OutputFormatJSON
}

// AddWarning adds a warning to the output
func (w *OutputWriter) AddWarning(code, message, severity string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warnings = append(w.warnings, types.CLIWarning{
		Code:     code,
		Message:  message,
		Severity: severity,
	})
}

// WriteSuccess writes a command result. errs carries per-item failures
// that did not stop the command.
func (w *OutputWriter) WriteSuccess(traceID, command string, data interface{}, errs []types.CLIError) error {
	if w.JSON() {
		return w.writeJSON(w.envelope(traceID, command, data, errs))
	}
	w.printWarnings()
	return w.writeTable(data)
}

// WriteError writes a failed result
func (w *OutputWriter) WriteError(traceID, command string, cliErr types.CLIError) error {
	return w.WriteFailure(traceID, command, nil, []types.CLIError{cliErr})
}

// WriteFailure writes a command that stopped with errs[0] after producing
// data. In table mode data is rendered first and errs[0] goes to stderr.
func (w *OutputWriter) WriteFailure(traceID, command string, data interface{}, errs []types.CLIError) error {
	if w.JSON() {
		return w.writeJSON(w.envelope(traceID, command, data, errs))
	}
	w.printWarnings()
	if data != nil {
		if err := w.writeTable(data); err != nil {
			return err
		}
	}
	if len(errs) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w.stderr, "Error [%s]: %s\n", errs[0].Code, errs[0].Message)
	return err
}

func (w *OutputWriter) envelope(traceID, command string, data interface{}, errs []types.CLIError) types.CLIOutput {
	if errs == nil {
		errs = []types.CLIError{}
	}
	return types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       traceID,
		Command:       command,
		Data:          data,
		Warnings:      w.warnings,
		Errors:        errs,
	}
}

func (w *OutputWriter) writeJSON(output types.CLIOutput) error {
	encoder := json.NewEncoder(w.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (w *OutputWriter) printWarnings() {
	if w.quiet {
		return
	}
	for _, warning := range w.warnings {
		fmt.Fprintf(w.stderr, "Warning [%s]: %s\n", warning.Code, warning.Message)
	}
}

func (w *OutputWriter) writeTable(data interface{}) error {
	switch v := data.(type) {
	case types.MultiTableRenderable:
		for i, table := range v.Tables() {
			if i > 0 && len(table.Rows()) > 0 {
				fmt.Fprintln(w.stdout)
			}
			if err := w.renderTable(table); err != nil {
				return err
			}
		}
		return nil
	case types.TableRenderable:
		return w.renderTable(v.AsTableRenderer())
	case types.TableRenderer:
		return w.renderTable(v)
	case fmt.Stringer:
		_, err := fmt.Fprintln(w.stdout, v.String())
		return err
	default:
		return w.writeJSON(w.envelope("", "", data, nil))
	}
}

func (w *OutputWriter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		if msg := renderer.EmptyMessage(); msg != "" && !w.quiet {
			fmt.Fprintln(w.stdout, msg)
		}
		return nil
	}

	table := tablewriter.NewWriter(w.stdout)
	table.SetHeader(renderer.Headers())
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	return nil
}

// Status writes one progress line unless quiet
func (w *OutputWriter) Status(format string, args ...interface{}) {
	if w.quiet {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.statusWriter(), format+"\n", args...)
}

// Verbose writes a progress line only in verbose mode
func (w *OutputWriter) Verbose(format string, args ...interface{}) {
	if !w.verbose {
		return
	}
	w.Status(format, args...)
}

func (w *OutputWriter) statusWriter() io.Writer {
	if w.JSON() {
		return w.stderr
	}
	return w.stdout
}

// truncate shortens s to at most max runes
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
