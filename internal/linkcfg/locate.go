package linkcfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by a Locator that cannot resolve a library.
var ErrNotFound = errors.New("library not found")

// Locator resolves library names to files on disk.
type Locator interface {
	FindStatic(goos string, dirs []string, name string) (string, error)
	FindDynamic(goos, name string) (string, error)
}

// FSLocator searches the filesystem. Dynamic libraries are looked up in
// LIBRARY_PATH, LD_LIBRARY_PATH and the usual system directories.
type FSLocator struct {
	// SystemDirs overrides the default system library directories.
	SystemDirs []string
	// Getenv overrides os.Getenv.
	Getenv func(string) string
}

var defaultSystemDirs = []string{
	"/usr/local/lib",
	"/usr/lib",
	"/usr/lib64",
	"/lib",
	"/lib64",
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
	"/usr/lib/gcc/x86_64-linux-gnu",
	"/opt/homebrew/lib",
}

// StaticArchiveName returns the archive file name for name on goos.
func StaticArchiveName(goos, name string) string {
	if goos == "windows" {
		return name + ".lib"
	}
	return "lib" + name + ".a"
}

func dynamicPatterns(goos, name string) []string {
	switch goos {
	case "darwin":
		return []string{"lib" + name + ".dylib", "lib" + name + ".*.dylib"}
	case "windows":
		return []string{name + ".dll", "lib" + name + ".dll", "lib" + name + "-*.dll"}
	}
	return []string{"lib" + name + ".so", "lib" + name + ".so.*"}
}

// FindStatic looks for the archive in dirs, in order.
func (l FSLocator) FindStatic(goos string, dirs []string, name string) (string, error) {
	file := StaticArchiveName(goos, name)
	for _, dir := range dirs {
		path := filepath.Join(dir, file)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNotFound, file, strings.Join(dirs, string(os.PathListSeparator)))
}

// FindDynamic looks for a shared object in the linker search path.
func (l FSLocator) FindDynamic(goos, name string) (string, error) {
	dirs := l.searchPath()
	for _, dir := range dirs {
		for _, pattern := range dynamicPatterns(goos, name) {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err == nil && len(matches) > 0 {
				return matches[0], nil
			}
		}
		// GCC keeps libgomp under versioned subdirectories.
		matches, _ := filepath.Glob(filepath.Join(dir, "*", dynamicPatterns(goos, name)[0]))
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (l FSLocator) searchPath() []string {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	var dirs []string
	for _, key := range []string{"LIBRARY_PATH", "LD_LIBRARY_PATH"} {
		for _, dir := range filepath.SplitList(getenv(key)) {
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	if l.SystemDirs != nil {
		return append(dirs, l.SystemDirs...)
	}
	return append(dirs, defaultSystemDirs...)
}
