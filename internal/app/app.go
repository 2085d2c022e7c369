package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/agbru/optix/internal/config"
	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/profiler"
	"github.com/agbru/optix/internal/ui"
)

// ProfilerFactory builds the profiler a command samples from.
type ProfilerFactory func(opts ...profiler.Option) *profiler.SystemProfiler

// Application represents the optix application instance.
type Application struct {
	Config      config.AppConfig
	NewProfiler ProfilerFactory
	ErrWriter   io.Writer
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithProfilerFactory replaces the system profiler, typically with one over
// a scripted telemetry source.
func WithProfilerFactory(f ProfilerFactory) AppOption {
	return func(a *Application) { a.NewProfiler = f }
}

// New creates a new Application instance by parsing command-line arguments.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter}
	for _, opt := range opts {
		opt(app)
	}
	if app.NewProfiler == nil {
		app.NewProfiler = profiler.New
	}

	programName := "optix"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = cfg
	return app, nil
}

// Run executes the configured command and returns the process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	ui.InitTheme(a.Config.NoColor)

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	var err error
	switch a.Config.Command {
	case config.CmdProfile:
		return a.runProfile(ctx, out)
	case config.CmdWatch:
		err = a.runWatch(ctx, out)
	case config.CmdServe:
		err = a.runServe(ctx)
	case config.CmdLink:
		err = a.runLink(ctx, out)
	case config.CmdOptimize:
		err = a.runOptimize(ctx, out)
	case config.CmdTypes:
		err = a.runTypes(out)
	case config.CmdAnalyze:
		fmt.Fprintln(out, "analyze is not implemented yet")
	default:
		err = a.runSnapshot(ctx, out)
	}
	return a.exitCode(err)
}

// exitCode reports err on ErrWriter and maps it to an exit code.
func (a *Application) exitCode(err error) int {
	if err == nil {
		return apperrors.ExitSuccess
	}
	code := apperrors.ExitCodeFor(err)
	if code == apperrors.ExitErrorCanceled {
		fmt.Fprintln(a.ErrWriter, "Canceled.")
	} else {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
	}
	return code
}

// logger returns the console logger for the current command. serve logs at
// info level, the one-shot commands only report warnings unless -v is set.
func (a *Application) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if a.Config.Command == config.CmdServe {
		level = zerolog.InfoLevel
	}
	if a.Config.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: a.ErrWriter, NoColor: a.Config.NoColor, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Str("cmd", a.Config.Command).Logger()
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
