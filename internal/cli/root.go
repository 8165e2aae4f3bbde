// Package cli implements the pokedex command-line interface: catalog
// commands that call the service layer directly, and serve, which runs the
// HTTP API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pokedex/internal/logging"
	"github.com/mesh-intelligence/pokedex/internal/service"
	"github.com/mesh-intelligence/pokedex/pkg/backend"
	"github.com/mesh-intelligence/pokedex/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// OpenFunc opens the repository described by cfg.
type OpenFunc func(ctx context.Context, cfg types.Config, logger *zap.Logger) (types.Repository, error)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	logLevel  string
	jsonMode  bool
}

// app carries state shared by every subcommand of one invocation.
type app struct {
	flags    rootFlags
	settings settings
	logger   *zap.Logger
	open     OpenFunc
	stdout   io.Writer
	stderr   io.Writer

	// loggerOverride replaces the logger built from settings.
	loggerOverride *zap.Logger
}

// Option customizes the command tree.
type Option func(*app)

// WithOutput redirects command output and error messages.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *app) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithOpener replaces backend.Open.
func WithOpener(open OpenFunc) Option {
	return func(a *app) { a.open = open }
}

// WithLogger replaces the logger built from configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(a *app) { a.loggerOverride = logger }
}

// NewRootCmd creates the top-level "pokedex" command with global flags and
// all subcommands registered.
func NewRootCmd(opts ...Option) *cobra.Command {
	return newApp(opts...).rootCmd()
}

func newApp(opts ...Option) *app {
	a := &app{
		open:   backend.Open,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pokedex",
		Short: "A catalog of pokemon behind a swappable storage backend",
		Long: "Pokedex stores pokemon (number, name and types) in memory, SQLite,\n" +
			"PostgreSQL or Airtable and serves them from the command line or over HTTP.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: memory, sqlite, postgres or airtable")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		a.newVersionCmd(),
		a.newInitCmd(),
		a.newServeCmd(),
		a.newCreateCmd(),
		a.newGetCmd(),
		a.newListCmd(),
		a.newDeleteCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
	)
	return root
}

// setup loads configuration and builds the logger before any subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	s, err := loadSettings(a.flags)
	if err != nil {
		return sysError(err)
	}
	a.settings = s

	if a.loggerOverride != nil {
		a.logger = a.loggerOverride
		return nil
	}
	logger, err := logging.New(s.LogLevel, s.LogFormat)
	if err != nil {
		return userError(err)
	}
	a.logger = logger
	return nil
}

// openRepo opens the configured backend. The caller must call the returned
// release function.
func (a *app) openRepo(ctx context.Context) (types.Repository, func(), error) {
	cfg := a.settings.Backend
	if cfg.Backend == types.BackendSQLite && cfg.SQL.DSN == "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, sysError(fmt.Errorf("create data directory: %w", err))
		}
	}

	repo, err := a.open(ctx, cfg, a.logger)
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("open backend: %w", err))
	}
	release := func() {
		if err := backend.Close(repo); err != nil {
			a.logger.Warn("closing backend", zap.Error(err))
		}
	}
	return repo, release, nil
}

// withService opens the backend, runs fn against a Service over it and
// releases the backend.
func (a *app) withService(cmd *cobra.Command, fn func(context.Context, *service.Service) error) error {
	ctx := cmd.Context()
	repo, release, err := a.openRepo(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, service.New(repo, a.logger))
}

// Run executes the command tree with args and returns the process exit code.
func Run(args []string, opts ...Option) int {
	a := newApp(opts...)
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}

	fmt.Fprintln(a.stderr, "Error:", describe(err))
	return exitCode(err)
}

// Execute runs the command tree with os.Args and returns the exit code.
func Execute() int {
	return Run(os.Args[1:])
}

// exitError tags an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// exitCode maps err to a process exit code. Unknown repository failures
// and errors tagged by sysError are system errors; everything else,
// including flag and argument errors from cobra, is a user error.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, types.ErrUnknown) {
		return exitSysError
	}
	return exitUserError
}

// describe returns the message printed for err.
func describe(err error) string {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return "invalid request"
	case errors.Is(err, types.ErrConflict):
		return "pokemon already exists"
	case errors.Is(err, types.ErrNotFound):
		return "pokemon not found"
	case errors.Is(err, types.ErrUnknown):
		return "an unknown error occurred"
	default:
		return err.Error()
	}
}
