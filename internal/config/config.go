/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package config holds the settings of the gdbmi tool.
// Settings come from defaults, overlaid by TOML files and finally by command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/microsoft/gdbmi/internal/gdb"
	"github.com/microsoft/gdbmi/internal/mi"
	"github.com/microsoft/gdbmi/internal/stdio"
)

const (
	defaultGdbPath = "gdb"

	configDirName  = ".gdbmi"
	configFileName = "config.toml"

	// Newline substitute setting that keeps \n escapes from being decoded.
	NoNewlineSubstitute = "none"
)

var defaultGdbArgs = []string{"--interpreter=mi2", "-q"}

// Config stores the runtime settings.
type Config struct {
	GdbPath string

	// A full debugger command line, split using the platform quoting rules, for example `wsl gdb`.
	// When set it replaces GdbPath. GdbArgs are still appended.
	GdbCommandLine string

	GdbArgs []string
	WorkDir string
	Env     map[string]string

	StdoutMaxLineLength int
	StderrMaxLineLength int
	EmptyReadThreshold  int
	PollInterval        time.Duration
	DrainInterval       time.Duration
	DrainTimeout        time.Duration

	// A single character, or NoNewlineSubstitute.
	NewlineSubstitute string
	IgnoreInterrupt   bool
}

type fileConfig struct {
	Gdb     *gdbFileConfig     `toml:"gdb"`
	Session *sessionFileConfig `toml:"session"`
}

type gdbFileConfig struct {
	Path        *string           `toml:"path"`
	CommandLine *string           `toml:"command_line"`
	Args        *[]string         `toml:"args"`
	WorkDir     *string           `toml:"work_dir"`
	Env         map[string]string `toml:"env"`
}

type sessionFileConfig struct {
	StdoutMaxLineLength *int    `toml:"stdout_max_line_length"`
	StderrMaxLineLength *int    `toml:"stderr_max_line_length"`
	EmptyReadThreshold  *int    `toml:"empty_read_threshold"`
	PollInterval        *string `toml:"poll_interval"`
	DrainInterval       *string `toml:"drain_interval"`
	DrainTimeout        *string `toml:"drain_timeout"`
	NewlineSubstitute   *string `toml:"newline_substitute"`
	IgnoreInterrupt     *bool   `toml:"ignore_interrupt"`
}

func Defaults() Config {
	return Config{
		GdbPath:             defaultGdbPath,
		GdbArgs:             append([]string{}, defaultGdbArgs...),
		Env:                 map[string]string{},
		StdoutMaxLineLength: stdio.DefaultStdoutMaxLineLength,
		StderrMaxLineLength: stdio.DefaultStderrMaxLineLength,
		EmptyReadThreshold:  stdio.DefaultEmptyReadThreshold,
		PollInterval:        stdio.DefaultPollInterval,
		DrainInterval:       gdb.DefaultDrainInterval,
		DrainTimeout:        gdb.DefaultDrainTimeout,
		NewlineSubstitute:   "\n",
		IgnoreInterrupt:     true,
	}
}

// DefaultPaths returns the config files that Load() reads when no explicit file is given:
// ~/.gdbmi/config.toml, then .gdbmi/config.toml in the working directory.
func DefaultPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	return []string{
		filepath.Join(homeDir, configDirName, configFileName),
		filepath.Join(workingDir, configDirName, configFileName),
	}, nil
}

// Load starts with the defaults and overlays the given files in order. Files that do not exist are skipped.
func Load(paths ...string) (*Config, error) {
	cfg := Defaults()
	for _, path := range paths {
		if err := overlayFromFile(&cfg, path, false); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile overlays a file that must exist on top of the defaults and the default files.
func LoadFile(path string) (*Config, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	for _, p := range paths {
		if overlayErr := overlayFromFile(&cfg, p, false); overlayErr != nil {
			return nil, overlayErr
		}
	}
	if overlayErr := overlayFromFile(&cfg, path, true); overlayErr != nil {
		return nil, overlayErr
	}
	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, validateErr
	}
	return &cfg, nil
}

func overlayFromFile(cfg *Config, path string, required bool) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("stat config file %q: %w", path, err)
	}

	var decoded fileConfig
	md, err := toml.DecodeFile(path, &decoded)
	if err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("config file %q: unsupported keys %s", path, strings.Join(keys, ", "))
	}

	applyGdbOverrides(cfg, decoded.Gdb)
	return applySessionOverrides(cfg, decoded.Session, path)
}

func applyGdbOverrides(cfg *Config, decoded *gdbFileConfig) {
	if decoded == nil {
		return
	}
	if decoded.Path != nil {
		cfg.GdbPath = strings.TrimSpace(*decoded.Path)
	}
	if decoded.CommandLine != nil {
		cfg.GdbCommandLine = strings.TrimSpace(*decoded.CommandLine)
	}
	if decoded.Args != nil {
		cfg.GdbArgs = append([]string{}, (*decoded.Args)...)
	}
	if decoded.WorkDir != nil {
		cfg.WorkDir = strings.TrimSpace(*decoded.WorkDir)
	}
	if cfg.Env == nil {
		cfg.Env = map[string]string{}
	}
	for k, v := range decoded.Env {
		cfg.Env[k] = v
	}
}

func applySessionOverrides(cfg *Config, decoded *sessionFileConfig, path string) error {
	if decoded == nil {
		return nil
	}
	if decoded.StdoutMaxLineLength != nil {
		cfg.StdoutMaxLineLength = *decoded.StdoutMaxLineLength
	}
	if decoded.StderrMaxLineLength != nil {
		cfg.StderrMaxLineLength = *decoded.StderrMaxLineLength
	}
	if decoded.EmptyReadThreshold != nil {
		cfg.EmptyReadThreshold = *decoded.EmptyReadThreshold
	}
	if decoded.NewlineSubstitute != nil {
		cfg.NewlineSubstitute = *decoded.NewlineSubstitute
	}
	if decoded.IgnoreInterrupt != nil {
		cfg.IgnoreInterrupt = *decoded.IgnoreInterrupt
	}

	durations := []struct {
		value  *string
		key    string
		target *time.Duration
	}{
		{decoded.PollInterval, "poll_interval", &cfg.PollInterval},
		{decoded.DrainInterval, "drain_interval", &cfg.DrainInterval},
		{decoded.DrainTimeout, "drain_timeout", &cfg.DrainTimeout},
	}
	for _, d := range durations {
		if d.value == nil {
			continue
		}
		parsed, err := parseDuration(*d.value, d.key, path)
		if err != nil {
			return err
		}
		*d.target = parsed
	}
	return nil
}

func parseDuration(value, key, path string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s in %q: %w", key, path, err)
	}
	return parsed, nil
}

// Validate checks the settings that cannot be corrected silently.
func (c *Config) Validate() error {
	var errs []error
	if c.GdbPath == "" && c.GdbCommandLine == "" {
		errs = append(errs, errors.New("the debugger path must not be empty"))
	}
	if c.StdoutMaxLineLength < 0 || c.StderrMaxLineLength < 0 {
		errs = append(errs, errors.New("line length limits must not be negative"))
	}
	if c.PollInterval < 0 || c.DrainInterval < 0 || c.DrainTimeout < 0 {
		errs = append(errs, errors.New("intervals and timeouts must not be negative"))
	}
	if _, err := c.newlineSubstitute(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) newlineSubstitute() (rune, error) {
	switch {
	case c.NewlineSubstitute == "":
		return mi.DefaultNewlineSubstitute, nil
	case c.NewlineSubstitute == NoNewlineSubstitute:
		return mi.NoSubstitute, nil
	case utf8.RuneCountInString(c.NewlineSubstitute) == 1:
		r, _ := utf8.DecodeRuneInString(c.NewlineSubstitute)
		return r, nil
	default:
		return 0, fmt.Errorf("newline substitute must be a single character or %q, got %q", NoNewlineSubstitute, c.NewlineSubstitute)
	}
}

// SessionConfig maps the settings onto a debugger session configuration.
// Extra arguments (for example the program to debug) are appended after the configured debugger arguments.
func (c *Config) SessionConfig(extraArgs ...string) (gdb.SessionConfig, error) {
	if err := c.Validate(); err != nil {
		return gdb.SessionConfig{}, err
	}
	sub, _ := c.newlineSubstitute()

	var args []string
	if c.GdbCommandLine == "" {
		args = append(args, c.GdbPath)
	}
	args = append(args, c.GdbArgs...)
	args = append(args, extraArgs...)

	sc := gdb.DefaultSessionConfig()
	sc.Launch = gdb.LaunchSpec{
		Dir:         c.WorkDir,
		CommandLine: c.GdbCommandLine,
		Args:        args,
		Env:         c.envList(),
	}
	sc.StdoutMaxLineLength = c.StdoutMaxLineLength
	sc.StderrMaxLineLength = c.StderrMaxLineLength
	sc.EmptyReadThreshold = c.EmptyReadThreshold
	sc.PollInterval = c.PollInterval
	sc.DrainInterval = c.DrainInterval
	sc.DrainTimeout = c.DrainTimeout
	sc.NewlineSubstitute = sub
	sc.IgnoreInterrupt = c.IgnoreInterrupt
	return sc, nil
}

// Environment overlay in NAME=VALUE form, sorted by name. Nil if nothing is overridden.
func (c *Config) envList() []string {
	if len(c.Env) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Env))
	for name := range c.Env {
		names = append(names, name)
	}
	sort.Strings(names)

	env := make([]string, 0, len(names))
	for _, name := range names {
		env = append(env, name+"="+c.Env[name])
	}
	return env
}
