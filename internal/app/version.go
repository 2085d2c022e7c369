package app

import (
	"fmt"
	"io"
	"runtime"

	"github.com/agbru/optix/internal/kernels"
)

// Build metadata, set with -ldflags "-X github.com/agbru/optix/internal/app.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// HasVersionFlag reports whether args ask for the version.
func HasVersionFlag(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--version", "-version", "-V":
			return true
		}
	}
	return false
}

// PrintVersion writes the version, build metadata and kernel backend to out.
func PrintVersion(out io.Writer) {
	fmt.Fprintf(out, "optix %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	fmt.Fprintf(out, "go %s %s/%s, kernels %s [%s]\n", runtime.Version(), runtime.GOOS, runtime.GOARCH, kernels.Backend(), kernels.Features())
}
