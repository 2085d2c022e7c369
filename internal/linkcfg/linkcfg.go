// Package linkcfg decides which native libraries the kernel bridge links
// against on a given target platform.
//
// The decision is a table lookup keyed by GOOS, evaluated once per build. The
// kernel archive is always linked statically; the OpenMP runtime is linked
// dynamically on Linux only. The cgo directives in internal/kernels encode
// the same table through build constraints.
package linkcfg

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/agbru/optix/internal/errors"
)

const (
	// KernelLibrary is the static archive produced by the native build.
	KernelLibrary = "kernels_cpu"
	// OpenMPLibrary is the GNU OpenMP runtime.
	OpenMPLibrary = "gomp"
	// BuildSubdir is where the external build tool leaves its artifacts,
	// relative to the output directory.
	BuildSubdir = "build"
)

// Linkage is how a library is bound into the extension.
type Linkage int

const (
	Static Linkage = iota
	Dynamic
)

func (l Linkage) String() string {
	if l == Static {
		return "static"
	}
	return "dynamic"
}

// MarshalText encodes the linkage by name.
func (l Linkage) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Library is one link-time dependency.
type Library struct {
	Name    string  `json:"name"`
	Linkage Linkage `json:"linkage"`
}

// entry is one row of the platform table.
type entry struct {
	libraries []Library
	// gnuLinker toggles -Bstatic/-Bdynamic bracketing, which only GNU-style
	// linkers understand.
	gnuLinker bool
}

var kernel = Library{Name: KernelLibrary, Linkage: Static}

var defaultEntry = entry{libraries: []Library{kernel}}

var table = map[string]entry{
	"linux": {
		libraries: []Library{kernel, {Name: OpenMPLibrary, Linkage: Dynamic}},
		gnuLinker: true,
	},
	"darwin":  defaultEntry,
	"windows": defaultEntry,
	"freebsd": {libraries: []Library{kernel}, gnuLinker: true},
}

// Platforms returns the GOOS values with an explicit table row, sorted.
func Platforms() []string {
	out := make([]string, 0, len(table))
	for goos := range table {
		out = append(out, goos)
	}
	sort.Strings(out)
	return out
}

// Plan is the resolved link configuration for one build.
type Plan struct {
	GOOS       string
	SearchDirs []string
	Libraries  []Library
	gnuLinker  bool
}

// For resolves the plan for goos with artifacts under outDir. Unknown
// platforms get the kernel library only.
func For(goos, outDir string) Plan {
	e, ok := table[goos]
	if !ok {
		e = defaultEntry
	}
	libs := make([]Library, len(e.libraries))
	copy(libs, e.libraries)
	return Plan{
		GOOS:       goos,
		SearchDirs: []string{filepath.Join(outDir, BuildSubdir)},
		Libraries:  libs,
		gnuLinker:  e.gnuLinker,
	}
}

// Static returns the names of statically linked libraries.
func (p Plan) Static() []string { return p.names(Static) }

// Dynamic returns the names of dynamically linked libraries.
func (p Plan) Dynamic() []string { return p.names(Dynamic) }

func (p Plan) names(l Linkage) []string {
	var out []string
	for _, lib := range p.Libraries {
		if lib.Linkage == l {
			out = append(out, lib.Name)
		}
	}
	return out
}

// Links reports whether the plan links name, and how.
func (p Plan) Links(name string) (Linkage, bool) {
	for _, lib := range p.Libraries {
		if lib.Name == name {
			return lib.Linkage, true
		}
	}
	return 0, false
}

// LDFLAGS renders the plan as linker flags: search directories first, then
// static archives, then dynamic libraries.
func (p Plan) LDFLAGS() []string {
	flags := make([]string, 0, len(p.SearchDirs)+len(p.Libraries)+2)
	for _, dir := range p.SearchDirs {
		flags = append(flags, "-L"+dir)
	}
	static, dynamic := p.Static(), p.Dynamic()
	if p.gnuLinker && len(static) > 0 {
		flags = append(flags, "-Wl,-Bstatic")
	}
	for _, name := range static {
		flags = append(flags, "-l"+name)
	}
	if p.gnuLinker && len(static) > 0 {
		flags = append(flags, "-Wl,-Bdynamic")
	}
	for _, name := range dynamic {
		flags = append(flags, "-l"+name)
	}
	return flags
}

// Env renders the plan as a CGO_LDFLAGS assignment.
func (p Plan) Env() string {
	return "CGO_LDFLAGS=" + strings.Join(p.LDFLAGS(), " ")
}

func (p Plan) String() string {
	parts := make([]string, len(p.Libraries))
	for i, lib := range p.Libraries {
		parts[i] = fmt.Sprintf("%s(%s)", lib.Name, lib.Linkage)
	}
	return fmt.Sprintf("%s: %s", p.GOOS, strings.Join(parts, ", "))
}

// Verify checks that every library in the plan can be resolved. The first
// missing library is reported as an apperrors.LinkError.
func (p Plan) Verify(loc Locator) error {
	for _, lib := range p.Libraries {
		var err error
		switch lib.Linkage {
		case Static:
			_, err = loc.FindStatic(p.GOOS, p.SearchDirs, lib.Name)
		case Dynamic:
			_, err = loc.FindDynamic(p.GOOS, lib.Name)
		}
		if err != nil {
			return apperrors.LinkError{
				Library: lib.Name,
				Reason:  fmt.Sprintf("%s library not found", lib.Linkage),
				Cause:   err,
			}
		}
	}
	return nil
}
