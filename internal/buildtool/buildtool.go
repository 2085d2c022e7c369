// Package buildtool drives the external build of the native kernel library
// and resolves the resulting link plan.
package buildtool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/linkcfg"
)

// DefaultTool is the build tool looked up on PATH.
const DefaultTool = "cmake"

// Runner executes one build tool invocation and returns its combined output.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Builder configures and builds the native sources into OutDir/build.
type Builder struct {
	// SourceDir holds the native CMakeLists.txt.
	SourceDir string
	// OutDir receives the build tree; the archive lands in OutDir/build.
	OutDir string
	// Tool is the build tool executable name or path.
	Tool string
	// GOOS selects the link plan row; defaults to the host.
	GOOS string

	lookPath func(string) (string, error)
	run      Runner
	locator  linkcfg.Locator
	logger   zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for build steps.
func WithLogger(l zerolog.Logger) Option { return func(b *Builder) { b.logger = l } }

// WithRunner replaces command execution.
func WithRunner(r Runner) Option { return func(b *Builder) { b.run = r } }

// WithLookPath replaces the PATH lookup for the build tool.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(b *Builder) { b.lookPath = fn }
}

// WithLocator replaces library resolution during verification.
func WithLocator(l linkcfg.Locator) Option { return func(b *Builder) { b.locator = l } }

// New returns a Builder for sourceDir with artifacts under outDir.
func New(sourceDir, outDir, goos string, opts ...Option) *Builder {
	b := &Builder{
		SourceDir: sourceDir,
		OutDir:    outDir,
		Tool:      DefaultTool,
		GOOS:      goos,
		lookPath:  exec.LookPath,
		run:       ExecRunner,
		locator:   linkcfg.FSLocator{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is the outcome of a successful build.
type Result struct {
	Tool     string
	BuildDir string
	Plan     linkcfg.Plan
	Elapsed  time.Duration
}

// Build locates the build tool, configures and builds the native sources,
// and verifies the link plan for b.GOOS. Every failure is an
// apperrors.LinkError; nothing is retried.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	tool, err := b.lookPath(b.Tool)
	if err != nil {
		return nil, apperrors.LinkError{Library: b.Tool, Reason: "build tool not found", Cause: err}
	}
	src, err := filepath.Abs(b.SourceDir)
	if err != nil {
		return nil, apperrors.LinkError{Library: linkcfg.KernelLibrary, Reason: "resolve source dir", Cause: err}
	}
	if _, err := os.Stat(filepath.Join(src, "CMakeLists.txt")); err != nil {
		return nil, apperrors.LinkError{Library: linkcfg.KernelLibrary, Reason: "no CMakeLists.txt in " + src, Cause: err}
	}
	out, err := filepath.Abs(b.OutDir)
	if err != nil {
		return nil, apperrors.LinkError{Library: linkcfg.KernelLibrary, Reason: "resolve output dir", Cause: err}
	}
	buildDir := filepath.Join(out, linkcfg.BuildSubdir)

	steps := [][]string{
		{"-S", src, "-B", buildDir, "-DCMAKE_BUILD_TYPE=Release"},
		{"--build", buildDir, "--config", "Release"},
	}
	for _, args := range steps {
		b.logger.Debug().Str("tool", tool).Strs("args", args).Msg("running build step")
		output, err := b.run(ctx, src, tool, args...)
		if err != nil {
			b.logger.Error().Err(err).Bytes("output", output).Msg("build step failed")
			return nil, apperrors.LinkError{
				Library: linkcfg.KernelLibrary,
				Reason:  fmt.Sprintf("%s %s failed", filepath.Base(tool), args[0]),
				Cause:   err,
			}
		}
	}

	plan := linkcfg.For(b.GOOS, out)
	if err := plan.Verify(b.locator); err != nil {
		return nil, err
	}

	res := &Result{Tool: tool, BuildDir: buildDir, Plan: plan, Elapsed: time.Since(start)}
	b.logger.Info().
		Str("plan", plan.String()).
		Str("build_dir", buildDir).
		Dur("elapsed", res.Elapsed).
		Msg("native kernels built")
	return res, nil
}
