package buildtool

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/linkcfg"
)

// recordingRunner records invocations and fails the call at failAt (1-based).
type recordingRunner struct {
	calls  [][]string
	failAt int
}

func (r *recordingRunner) run(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if len(r.calls) == r.failAt {
		return []byte("CMake Error: boom"), errors.New("exit status 1")
	}
	return nil, nil
}

type stubLocator struct{ missing string }

func (s stubLocator) FindStatic(_ string, _ []string, name string) (string, error) {
	if name == s.missing {
		return "", linkcfg.ErrNotFound
	}
	return "/x/" + name, nil
}

func (s stubLocator) FindDynamic(_, name string) (string, error) {
	if name == s.missing {
		return "", linkcfg.ErrNotFound
	}
	return "/x/" + name, nil
}

func sourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "CMakeLists.txt"), []byte("project(x C)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func foundTool(string) (string, error) { return "/usr/bin/cmake", nil }

func TestBuild_Success(t *testing.T) {
	src, out := sourceDir(t), t.TempDir()
	runner := &recordingRunner{}
	var logs bytes.Buffer

	b := New(src, out, "linux",
		WithLookPath(foundTool),
		WithRunner(runner.run),
		WithLocator(stubLocator{}),
		WithLogger(zerolog.New(&logs)),
	)
	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("expected configure and build steps, got %v", runner.calls)
	}
	if runner.calls[0][1] != "-S" || runner.calls[1][1] != "--build" {
		t.Errorf("unexpected steps: %v", runner.calls)
	}
	if res.BuildDir != filepath.Join(out, linkcfg.BuildSubdir) {
		t.Errorf("BuildDir = %q", res.BuildDir)
	}
	if _, ok := res.Plan.Links(linkcfg.OpenMPLibrary); !ok {
		t.Error("linux plan should link gomp")
	}
	if !strings.Contains(logs.String(), "native kernels built") {
		t.Errorf("missing completion log: %s", logs.String())
	}
}

func TestBuild_Failures(t *testing.T) {
	tests := []struct {
		name        string
		lookPath    func(string) (string, error)
		failAt      int
		missing     string
		noCMake     bool
		wantLibrary string
	}{
		{
			name:        "tool missing",
			lookPath:    func(string) (string, error) { return "", exec.ErrNotFound },
			wantLibrary: DefaultTool,
		},
		{
			name:        "no CMakeLists",
			lookPath:    foundTool,
			noCMake:     true,
			wantLibrary: linkcfg.KernelLibrary,
		},
		{
			name:        "configure fails",
			lookPath:    foundTool,
			failAt:      1,
			wantLibrary: linkcfg.KernelLibrary,
		},
		{
			name:        "build fails",
			lookPath:    foundTool,
			failAt:      2,
			wantLibrary: linkcfg.KernelLibrary,
		},
		{
			name:        "openmp runtime missing",
			lookPath:    foundTool,
			missing:     linkcfg.OpenMPLibrary,
			wantLibrary: linkcfg.OpenMPLibrary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := sourceDir(t)
			if tt.noCMake {
				src = t.TempDir()
			}
			runner := &recordingRunner{failAt: tt.failAt}
			b := New(src, t.TempDir(), "linux",
				WithLookPath(tt.lookPath),
				WithRunner(runner.run),
				WithLocator(stubLocator{missing: tt.missing}),
			)

			_, err := b.Build(context.Background())
			var linkErr apperrors.LinkError
			if !errors.As(err, &linkErr) {
				t.Fatalf("Build() = %v, want LinkError", err)
			}
			if linkErr.Library != tt.wantLibrary {
				t.Errorf("Library = %q, want %q", linkErr.Library, tt.wantLibrary)
			}
			if apperrors.ExitCodeFor(err) != apperrors.ExitErrorLink {
				t.Errorf("exit code = %d, want %d", apperrors.ExitCodeFor(err), apperrors.ExitErrorLink)
			}
			if tt.failAt > 0 && len(runner.calls) != tt.failAt {
				t.Errorf("build continued after failing step: %v", runner.calls)
			}
		})
	}
}

func TestBuild_NonLinuxSkipsOpenMP(t *testing.T) {
	b := New(sourceDir(t), t.TempDir(), "darwin",
		WithLookPath(foundTool),
		WithRunner((&recordingRunner{}).run),
		WithLocator(stubLocator{missing: linkcfg.OpenMPLibrary}),
	)
	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := res.Plan.Dynamic(); len(got) != 0 {
		t.Errorf("darwin plan should have no dynamic libraries, got %v", got)
	}
}
