/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/gdbmi/internal/gdb"
	"github.com/microsoft/gdbmi/internal/mi"
	"github.com/microsoft/gdbmi/pkg/osutil"
)

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWhenFilesMissing(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Defaults(), *cfg)
}

func TestLoadOverlaysFilesInOrder(t *testing.T) {
	t.Parallel()

	global := writeConfigFile(t, `
[gdb]
path = "/usr/bin/gdb"
args = ["--interpreter=mi3"]

[gdb.env]
LANG = "C"
TERM = "dumb"

[session]
drain_timeout = "2s"
ignore_interrupt = false
`)
	project := writeConfigFile(t, `
[gdb]
work_dir = "/src/project"

[gdb.env]
TERM = "xterm"

[session]
poll_interval = "20ms"
stdout_max_line_length = 4096
newline_substitute = "none"
`)

	cfg, err := Load(global, project)
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/gdb", cfg.GdbPath)
	assert.Equal(t, []string{"--interpreter=mi3"}, cfg.GdbArgs)
	assert.Equal(t, "/src/project", cfg.WorkDir)
	assert.Equal(t, map[string]string{"LANG": "C", "TERM": "xterm"}, cfg.Env)
	assert.Equal(t, 2*time.Second, cfg.DrainTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 4096, cfg.StdoutMaxLineLength)
	assert.False(t, cfg.IgnoreInterrupt)

	// Values not present in any file keep their defaults.
	assert.Equal(t, Defaults().DrainInterval, cfg.DrainInterval)
	assert.Equal(t, Defaults().StderrMaxLineLength, cfg.StderrMaxLineLength)

	sc, err := cfg.SessionConfig("./a.out")
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/bin/gdb", "--interpreter=mi3", "./a.out"}, sc.Launch.Args)
	assert.Equal(t, "/src/project", sc.Launch.Dir)
	assert.Equal(t, []string{"LANG=C", "TERM=xterm"}, sc.Launch.Env)
	assert.Equal(t, mi.NoSubstitute, sc.NewlineSubstitute)
	assert.Equal(t, 2*time.Second, sc.DrainTimeout)
	assert.False(t, sc.IgnoreInterrupt)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	type testcase struct {
		description string
		content     string
	}

	testcases := []testcase{
		{"bad duration", "[session]\ndrain_timeout = \"soon\"\n"},
		{"unknown key", "[session]\nretries = 3\n"},
		{"bad newline substitute", "[session]\nnewline_substitute = \"ab\"\n"},
		{"empty gdb path", "[gdb]\npath = \" \"\n"},
		{"not toml", "[gdb\n"},
	}

	for _, tc := range testcases {
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfigFile(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestLoadFileRequiresFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestSessionConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	sc, err := cfg.SessionConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"gdb", "--interpreter=mi2", "-q"}, sc.Launch.Args)
	assert.Nil(t, sc.Launch.Env)
	assert.Equal(t, mi.DefaultNewlineSubstitute, sc.NewlineSubstitute)
	assert.True(t, sc.IgnoreInterrupt)

	cfg.NewlineSubstitute = "␤"
	sc, err = cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, '␤', sc.NewlineSubstitute)
}

func TestSessionConfigCommandLine(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfigFile(t, `
[gdb]
command_line = "'/opt/cross tools/bin/gdb' -nx"
`))
	require.NoError(t, err)
	assert.Equal(t, "'/opt/cross tools/bin/gdb' -nx", cfg.GdbCommandLine)

	sc, err := cfg.SessionConfig("./a.out")
	require.NoError(t, err)
	assert.Equal(t, "'/opt/cross tools/bin/gdb' -nx", sc.Launch.CommandLine)
	assert.Equal(t, []string{"--interpreter=mi2", "-q", "./a.out"}, sc.Launch.Args)

	if !osutil.IsWindows() {
		argv, argvErr := sc.Launch.Argv()
		require.NoError(t, argvErr)
		assert.Equal(t, []string{"/opt/cross tools/bin/gdb", "-nx", "--interpreter=mi2", "-q", "./a.out"}, argv)
	}
}

func TestSessionConfigUnterminatedCommandLine(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.GdbCommandLine = `gdb "-ex=break main`
	sc, err := cfg.SessionConfig()
	require.NoError(t, err)

	_, err = sc.Launch.Argv()
	require.True(t, gdb.IsLaunchError(err, gdb.QuoteError), "unexpected error: %v", err)
}
