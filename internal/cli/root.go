package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dl-alexandre/dbxmirror/internal/config"
	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
	"github.com/dl-alexandre/dbxmirror/pkg/version"
)

// mirrorFlags holds the flags of the root command
type mirrorFlags struct {
	types.GlobalFlags
	LocalPath       string
	RemotePath      string
	Backend         string
	Bucket          string
	Concurrency     int
	Sequential      bool
	ChunkSize       int
	Exclude         []string
	DefaultExcludes bool
}

// app is the state shared by the commands of one invocation
type app struct {
	flags   mirrorFlags
	cfg     *config.Config
	logger  logging.Logger
	out     *OutputWriter
	traceID string

	stdout io.Writer
	stderr io.Writer

	// reported is set once the failure was written for the user
	reported bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		logger:  logging.NewNoOpLogger(),
		traceID: uuid.New().String(),
		stdout:  stdout,
		stderr:  stderr,
	}
}

// NewRootCmd builds the dbxmirror command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp(os.Stdout, os.Stderr))
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbxmirror [access_token]",
		Short: "Mirror a remote folder tree into a local directory",
		Long: `dbxmirror downloads every file under a remote folder into a local
directory, recreating the folder structure. Files whose local copy already
has the remote byte size are skipped, so repeated runs only fetch what is
missing or changed in size. Nothing is ever uploaded or deleted.

The access token is taken from the first argument, then from
DBXMIRROR_ACCESS_TOKEN, then from the system keyring (service "dbxmirror",
user = profile). The blob backend uses the bucket's own credentials.`,
		Version:       version.Version,
		Args:          maxArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) > 0 {
				token = args[0]
			}
			return a.runMirror(cmd.Context(), token)
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return invalidArgument(err.Error())
	})

	f := &a.flags
	flags := cmd.Flags()
	flags.StringVarP(&f.LocalPath, "path_local", "p", ".", "Local directory to mirror into")
	flags.StringVarP(&f.RemotePath, "dropbox_path", "d", "", "Remote folder to mirror (\"\" is the root)")
	flags.StringVar(&f.Backend, "backend", utils.BackendDropbox, "Storage backend (dropbox, gdrive, blob)")
	flags.StringVar(&f.Bucket, "bucket", "", "Bucket URL for the blob backend (s3://, gs://, file://, mem://)")
	flags.IntVarP(&f.Concurrency, "concurrency", "c", utils.DefaultConcurrency, "Maximum simultaneous list and download calls")
	flags.BoolVar(&f.Sequential, "sequential", false, "Walk the tree one call at a time")
	flags.IntVar(&f.ChunkSize, "chunk-size", utils.DefaultChunkSize, "Streaming buffer size in bytes")
	flags.StringArrayVar(&f.Exclude, "exclude", nil, "Glob pattern to skip (repeatable; \"name/\" matches folders)")
	flags.BoolVar(&f.DefaultExcludes, "default-excludes", false, "Also skip common junk files (.DS_Store, Thumbs.db, ...)")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&f.Profile, "profile", "", "Keyring profile used for token lookup")
	persistent.StringVar((*string)(&f.OutputFormat), "output", "", "Output format (table, json)")
	persistent.BoolVar(&f.JSON, "json", false, "Output in JSON format (alias for --output json)")
	persistent.BoolVarP(&f.Quiet, "quiet", "q", false, "Suppress status lines")
	persistent.BoolVarP(&f.Verbose, "verbose", "v", false, "Enable verbose logging")
	persistent.BoolVar(&f.Debug, "debug", false, "Enable debug logging, including HTTP requests")
	persistent.BoolVar(&f.DryRun, "dry-run", false, "Show what would be downloaded without writing anything")
	persistent.StringVar(&f.Config, "config", "", "Path to configuration file")
	persistent.StringVar(&f.LogFile, "log-file", "", "Append JSON logs to this file")

	cmd.AddCommand(newVersionCmd(a), newConfigCmd(a))
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if a.out.JSON() {
				return a.out.WriteSuccess(a.traceID, "version", info, nil)
			}
			_, err := fmt.Fprintln(a.stdout, info.String())
			return err
		},
	}
}

// setup loads the configuration, applies flags over it and starts logging
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg, &a.flags); err != nil {
		return err
	}
	a.cfg = cfg

	format := cfg.DefaultOutputFormat
	if a.flags.JSON {
		format = types.OutputFormatJSON
	}
	quiet := a.flags.Quiet || cfg.LogLevel == "quiet"
	a.out = NewOutputWriter(format, quiet, a.flags.Verbose, a.stdout, a.stderr)

	level := logging.ParseLevel(cfg.LogLevel)
	if a.flags.Verbose {
		level = logging.DEBUG
	}
	if a.flags.Quiet {
		level = logging.ERROR
	}
	logConfig := logging.LogConfig{
		Level:           level,
		OutputFile:      a.flags.LogFile,
		EnableConsole:   true,
		EnableDebug:     a.flags.Debug,
		RedactSensitive: true,
		EnableColor:     cfg.ColorOutput,
		EnableTimestamp: true,
		MaxFileSize:     logging.DefaultLogConfig().MaxFileSize,
		ConsoleWriter:   a.stderr,
	}
	if format == types.OutputFormatJSON && !a.flags.Verbose && !a.flags.Debug {
		logConfig.Level = logging.WARN
	}
	logger, err := logging.NewLogger(logConfig)
	if err != nil {
		return utils.LocalIOError("open log file", a.flags.LogFile, err)
	}
	a.logger = logger.WithTraceID(a.traceID)
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.flags.Config != "" {
		cfg, err = config.LoadFrom(a.flags.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, invalidArgument(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags over cfg, giving the precedence
// flags > environment > file > defaults
func applyFlags(cmd *cobra.Command, cfg *config.Config, f *mirrorFlags) error {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("backend") {
		cfg.Backend = f.Backend
	}
	if changed("bucket") {
		cfg.Bucket = f.Bucket
	}
	if changed("concurrency") {
		cfg.Concurrency = f.Concurrency
	}
	if changed("chunk-size") {
		cfg.ChunkSize = f.ChunkSize
	}
	if changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, f.Exclude...)
	}
	if changed("profile") {
		cfg.DefaultProfile = f.Profile
	}
	if changed("output") {
		cfg.DefaultOutputFormat = f.OutputFormat
	}
	if f.JSON {
		cfg.DefaultOutputFormat = types.OutputFormatJSON
	}
	if f.Debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return invalidArgument(err.Error())
	}
	return nil
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	cmd := newRootCmd(a)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil && !a.reported {
		if a.out != nil && a.out.JSON() {
			_ = a.out.WriteError(a.traceID, cmd.Name(), cliErrorOf(err))
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}
	return exitCode(err)
}

// exitCode maps a command error onto the process exit code
func exitCode(err error) int {
	if err == nil {
		return utils.ExitSuccess
	}
	if stderrors.Is(err, context.Canceled) {
		return utils.ExitCancelled
	}
	var appErr *utils.AppError
	if stderrors.As(err, &appErr) {
		return utils.GetExitCode(appErr.CLIError.Code)
	}
	return utils.ExitUnknown
}

// cliErrorOf returns the structured form of err for the JSON envelope
func cliErrorOf(err error) types.CLIError {
	if stderrors.Is(err, context.Canceled) {
		return utils.NewCLIError(utils.ErrCodeCancelled, "Interrupted").Build()
	}
	var appErr *utils.AppError
	if stderrors.As(err, &appErr) {
		return appErr.CLIError
	}
	return utils.NewCLIError(utils.ErrCodeUnknown, err.Error()).Build()
}

func invalidArgument(msg string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, msg).Build())
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return invalidArgument(fmt.Sprintf("accepts at most %d arg(s), received %d", n, len(args)))
		}
		return nil
	}
}
