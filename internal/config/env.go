// This file contains the environment variable and config file overrides.

package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/optix/internal/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Flag Utilities
// ─────────────────────────────────────────────────────────────────────────────

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// This is useful for aliased flags where either the short or long form may be used.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// override declares a single setting that can come from the environment or
// the config file. key is the environment suffix (after OPTIX_); its lower
// case form is the YAML key.
type override struct {
	key   string
	flags []string
	apply func(*AppConfig, string) error
}

func (o override) yamlKey() string { return strings.ToLower(o.key) }

// overrides is the declarative table of every overridable setting.
var overrides = []override{
	// Durations
	{"INTERVAL", []string{"interval"}, func(c *AppConfig, v string) (err error) {
		c.Interval, err = parseDuration(v)
		return err
	}},
	{"DURATION", []string{"duration"}, func(c *AppConfig, v string) (err error) {
		c.Duration, err = parseDuration(v)
		return err
	}},

	// Numeric
	{"ROWS", []string{"rows"}, func(c *AppConfig, v string) (err error) {
		c.Rows, err = strconv.Atoi(v)
		return err
	}},
	{"COLS", []string{"cols"}, func(c *AppConfig, v string) (err error) {
		c.Cols, err = strconv.Atoi(v)
		return err
	}},

	// Strings
	{"REPORT", []string{"report", "o"}, func(c *AppConfig, v string) error {
		c.Report = v
		return nil
	}},
	{"ADDR", []string{"addr"}, func(c *AppConfig, v string) error {
		c.Addr = v
		return nil
	}},
	{"BACKEND", []string{"backend"}, func(c *AppConfig, v string) error {
		c.Backend = v
		return nil
	}},
	{"SRC", []string{"src"}, func(c *AppConfig, v string) error {
		c.SourceDir = v
		return nil
	}},
	{"OUT", []string{"out"}, func(c *AppConfig, v string) error {
		c.OutDir = v
		return nil
	}},
	{"GOOS", []string{"goos"}, func(c *AppConfig, v string) error {
		c.GOOS = v
		return nil
	}},

	// Booleans
	{"BUILD", []string{"build"}, func(c *AppConfig, v string) (err error) {
		c.Build, err = parseBool(v)
		return err
	}},
	{"CHECK", []string{"check"}, func(c *AppConfig, v string) (err error) {
		c.Check, err = parseBool(v)
		return err
	}},
	{"JSON", []string{"json"}, func(c *AppConfig, v string) (err error) {
		c.JSON, err = parseBool(v)
		return err
	}},
	{"VERBOSE", []string{"v", "verbose"}, func(c *AppConfig, v string) (err error) {
		c.Verbose, err = parseBool(v)
		return err
	}},
	{"NO_COLOR", []string{"no-color"}, func(c *AppConfig, v string) (err error) {
		c.NoColor, err = parseBool(v)
		return err
	}},
}

// parseBool accepts "true", "1", "yes" as true and "false", "0", "no" as
// false (case-insensitive).
func parseBool(val string) (bool, error) {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", val)
}

// parseDuration accepts Go durations ("500ms", "1m30s") and bare numbers,
// which are read as seconds.
func parseDuration(val string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(val)
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > File > Defaults.
//
// Supported environment variables (all prefixed with OPTIX_):
//   - INTERVAL, DURATION, ROWS, COLS, REPORT, ADDR, BACKEND, SRC, OUT,
//     GOOS, BUILD, CHECK, JSON, VERBOSE, NO_COLOR
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) error {
	for _, o := range overrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.key); val != "" {
			if err := o.apply(config, val); err != nil {
				return apperrors.NewConfigError("invalid %s%s: %v", EnvPrefix, o.key, err)
			}
		}
	}
	return nil
}

// applyFileConfig loads the YAML config file, if one is named, and applies
// its keys for flags not set on the command line. Unknown keys are rejected.
func applyFileConfig(config *AppConfig, fs *flag.FlagSet) error {
	path := configFilePath(config, fs)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError("reading config file: %v", err)
	}
	return applyYAML(config, fs, data)
}

func applyYAML(config *AppConfig, fs *flag.FlagSet, data []byte) error {
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return apperrors.NewConfigError("parsing config file: %v", err)
	}

	known := make(map[string]override, len(overrides))
	for _, o := range overrides {
		known[o.yamlKey()] = o
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		o, ok := known[k]
		if !ok {
			return apperrors.NewConfigError("config file: unknown key %q", k)
		}
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if err := o.apply(config, fmt.Sprint(values[k])); err != nil {
			return apperrors.NewConfigError("config file: invalid %s: %v", k, err)
		}
	}
	return nil
}
