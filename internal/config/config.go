// Package config parses the optix command line into an AppConfig.
//
// Values resolve in this order, highest priority first:
//  1. Command-line flags
//  2. OPTIX_* environment variables
//  3. The YAML file named by --config (or OPTIX_CONFIG)
//  4. Built-in defaults
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/linkcfg"
	"github.com/agbru/optix/internal/server"
	"github.com/agbru/optix/internal/session"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "OPTIX_"

// Commands.
const (
	CmdSnapshot = "snapshot"
	CmdProfile  = "profile"
	CmdWatch    = "watch"
	CmdServe    = "serve"
	CmdLink     = "link"
	CmdOptimize = "optimize"
	CmdTypes    = "types"
	CmdAnalyze  = "analyze"
)

// Commands lists every command in help order.
var Commands = []string{CmdSnapshot, CmdProfile, CmdWatch, CmdServe, CmdLink, CmdOptimize, CmdTypes, CmdAnalyze}

var commandHelp = map[string]string{
	CmdSnapshot: "print one CPU and memory snapshot (default)",
	CmdProfile:  "run a program and sample it: profile [flags] <program> [args...]",
	CmdWatch:    "live terminal dashboard",
	CmdServe:    "serve /snapshot, /healthz, /types and /metrics over HTTP",
	CmdLink:     "print the native link plan; --check verifies it, --build compiles the kernels first",
	CmdOptimize: "run the optimizer on a random rows x cols matrix",
	CmdTypes:    "list the types the extension module registers",
	CmdAnalyze:  "analyze a dataset (not implemented yet)",
}

// Default values.
const (
	DefaultRows   = 100
	DefaultCols   = 100
	DefaultOutDir = "native"
	DefaultSrcDir = "native"
)

// AppConfig holds the resolved configuration of one invocation.
type AppConfig struct {
	// Command is the subcommand; CmdSnapshot when none was given.
	Command string
	// Args are the positional arguments after the flags.
	Args []string

	ConfigFile string
	Interval   time.Duration
	Duration   time.Duration
	Report     string
	Addr       string
	Rows       int
	Cols       int
	Backend    string
	SourceDir  string
	OutDir     string
	GOOS       string
	Build      bool
	Check      bool
	JSON       bool
	Verbose    bool
	NoColor    bool
}

// Default returns the configuration used when nothing overrides it.
func Default() AppConfig {
	return AppConfig{
		Command:   CmdSnapshot,
		Interval:  session.DefaultInterval,
		Duration:  session.DefaultDuration,
		Report:    session.DefaultReportPath,
		Addr:      server.DefaultConfig().Addr,
		Rows:      DefaultRows,
		Cols:      DefaultCols,
		SourceDir: DefaultSrcDir,
		OutDir:    DefaultOutDir,
		GOOS:      runtime.GOOS,
	}
}

// ParseConfig parses args (without the program name) into an AppConfig.
//
// Parameters:
//   - programName: Used in usage output.
//   - args: The command-line arguments after the program name.
//   - errorWriter: Receives usage and flag errors.
//
// Returns:
//   - AppConfig: The resolved configuration.
//   - error: flag.ErrHelp when help was requested, a ConfigError otherwise.
func ParseConfig(programName string, args []string, errorWriter io.Writer) (AppConfig, error) {
	config := Default()
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		config.Command = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)
	fs.Usage = func() { printUsage(fs, programName) }

	fs.StringVar(&config.ConfigFile, "config", "", "YAML configuration file.")
	fs.DurationVar(&config.Interval, "interval", config.Interval, "Sampling interval (profile, watch).")
	fs.DurationVar(&config.Duration, "duration", config.Duration, "Profiling time limit, 0 for none.")
	fs.StringVar(&config.Report, "report", config.Report, "Markdown report path (profile).")
	fs.StringVar(&config.Report, "o", config.Report, "Report path (shorthand).")
	fs.StringVar(&config.Addr, "addr", config.Addr, "Listen address (serve).")
	fs.IntVar(&config.Rows, "rows", config.Rows, "Matrix rows (optimize).")
	fs.IntVar(&config.Cols, "cols", config.Cols, "Matrix columns (optimize).")
	fs.StringVar(&config.Backend, "backend", config.Backend, "Force the backend (cpu or gpu) instead of asking for a suggestion.")
	fs.StringVar(&config.SourceDir, "src", config.SourceDir, "Native kernel source directory (link --build).")
	fs.StringVar(&config.OutDir, "out", config.OutDir, "Directory holding the native build tree (link).")
	fs.StringVar(&config.GOOS, "goos", config.GOOS, "Target operating system for the link plan.")
	fs.BoolVar(&config.Build, "build", false, "Compile the native kernels before checking the link plan.")
	fs.BoolVar(&config.Check, "check", false, "Fail when a library in the link plan cannot be found.")
	fs.BoolVar(&config.JSON, "json", false, "JSON output where supported.")
	fs.BoolVar(&config.Verbose, "v", false, "Verbose logging.")
	fs.BoolVar(&config.Verbose, "verbose", false, "Verbose logging.")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return config, err
		}
		return config, apperrors.ConfigError{Message: err.Error()}
	}
	config.Args = fs.Args()

	if err := applyFileConfig(&config, fs); err != nil {
		return config, err
	}
	if err := applyEnvOverrides(&config, fs); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintln(errorWriter, "Error:", err)
		return config, err
	}
	return config, nil
}

// Validate checks the fields the selected command depends on.
func (c AppConfig) Validate() error {
	if !slices.Contains(Commands, c.Command) {
		return apperrors.NewConfigError("unknown command %q (want one of %s)", c.Command, strings.Join(Commands, ", "))
	}
	if c.Interval <= 0 {
		return apperrors.NewConfigError("--interval must be positive, got %s", c.Interval)
	}
	if c.Duration < 0 {
		return apperrors.NewConfigError("--duration must not be negative, got %s", c.Duration)
	}
	switch c.Command {
	case CmdProfile:
		if len(c.Args) == 0 {
			return apperrors.NewConfigError("profile needs a program to run")
		}
		if c.Report == "" {
			return apperrors.NewConfigError("--report must not be empty")
		}
	case CmdServe:
		if c.Addr == "" {
			return apperrors.NewConfigError("--addr must not be empty")
		}
	case CmdOptimize:
		if c.Rows <= 0 || c.Cols <= 0 {
			return apperrors.NewConfigError("--rows and --cols must be positive, got %dx%d", c.Rows, c.Cols)
		}
		if c.Backend != "" && c.Backend != "cpu" && c.Backend != "gpu" {
			return apperrors.NewConfigError("--backend must be cpu or gpu, got %q", c.Backend)
		}
	case CmdLink:
		if !slices.Contains(linkcfg.Platforms(), c.GOOS) {
			return apperrors.NewConfigError("--goos %q has no link plan (want one of %s)", c.GOOS, strings.Join(linkcfg.Platforms(), ", "))
		}
	}
	return nil
}

// ProfileDuration converts the configured limit to session semantics, where
// a negative value means no limit.
func (c AppConfig) ProfileDuration() time.Duration {
	if c.Duration == 0 {
		return -1
	}
	return c.Duration
}

func printUsage(fs *flag.FlagSet, programName string) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: %s [command] [flags] [args]\n\nCommands:\n", programName)
	for _, name := range Commands {
		fmt.Fprintf(out, "  %-9s %s\n", name, commandHelp[name])
	}
	fmt.Fprintf(out, "\nFlags:\n")
	fs.PrintDefaults()
	fmt.Fprintf(out, "\nEvery flag can also be set through %s<FLAG> (e.g. %sINTERVAL=500ms).\n", EnvPrefix, EnvPrefix)
}

// configFilePath returns the YAML file to load, if any.
func configFilePath(config *AppConfig, fs *flag.FlagSet) string {
	if isFlagSet(fs, "config") {
		return config.ConfigFile
	}
	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		config.ConfigFile = path
	}
	return config.ConfigFile
}
