/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/gdbmi/internal/config"
	"github.com/microsoft/gdbmi/internal/gdb"
	"github.com/microsoft/gdbmi/internal/mi"
	"github.com/microsoft/gdbmi/pkg/testutil"
)

func decodeLines(t *testing.T, out string) []map[string]any {
	var result []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "invalid JSON line: %s", line)
		result = append(result, m)
	}
	return result
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	cmd, err := NewParseCommand(testutil.NewLogForTesting(t.Name()))
	require.NoError(t, err)

	input := strings.Join([]string{
		`12^done,bkpt={number="1",func="main"}`,
		``,
		`~"Starting program\n"`,
		`*stopped,reason="exited-normally"`,
		`(gdb) `,
	}, "\n")
	out := &bytes.Buffer{}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	lines := decodeLines(t, out.String())
	require.Len(t, lines, 4)

	assert.Equal(t, float64(1), lines[0]["index"])
	assert.Equal(t, "result", lines[0]["kind"])
	assert.Equal(t, "12", lines[0]["token"])
	assert.Equal(t, "done", lines[0]["class"])
	args := lines[0]["args"].(map[string]any)
	assert.Equal(t, "main", args["bkpt"].(map[string]any)["func"])

	assert.Equal(t, "console-stream", lines[1]["kind"])
	assert.Equal(t, []any{"Starting program\n"}, lines[1]["args"])

	assert.Equal(t, "exec-async", lines[2]["kind"])
	assert.Equal(t, "prompt", lines[3]["kind"])
}

func TestParseCommandReportsMalformedLines(t *testing.T) {
	t.Parallel()

	cmd, err := NewParseCommand(testutil.NewLogForTesting(t.Name()))
	require.NoError(t, err)

	out := &bytes.Buffer{}
	cmd.SetIn(strings.NewReader("^done,x=\"\n^done,value=\"ok\"\n"))
	cmd.SetOut(out)
	cmd.SetArgs([]string{})

	err = cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 of 2 lines")

	lines := decodeLines(t, out.String())
	require.Len(t, lines, 2)
	assert.NotEmpty(t, lines[0]["error"])
	assert.Equal(t, "result", lines[0]["kind"])
	assert.Nil(t, lines[1]["error"])
}

func TestRunRoutesPrintRecordsAndTrackState(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	router := gdb.NewRouter(testutil.NewLogForTesting(t.Name()))
	queue := &queueRef{}
	q := gdb.NewCommandQueue(testutil.NewLogForTesting(t.Name()))
	queue.set(q)
	require.NoError(t, registerRoutes(router, newJsonLinePrinter(out), queue))

	for _, text := range []string{
		`*running,thread-id="all"`,
		`*stopped,reason="breakpoint-hit",thread-id="2",frame={level="0",func="main"}`,
		`5^done,value="42"`,
		`=thread-group-added,id="i1"`,
		`=some-new-notification,x="1"`,
		`~"hello\n"`,
	} {
		line, err := mi.ParseLine(text)
		require.NoError(t, err)
		require.True(t, router.Dispatch(line), "line was not routed: %s", text)
	}

	assert.True(t, q.Stopped())
	assert.Equal(t, "2", q.Thread())
	assert.Equal(t, "0", q.Frame())

	lines := decodeLines(t, out.String())
	require.Len(t, lines, 6)
	assert.Equal(t, "*running", lines[0]["record"])
	assert.Equal(t, "*stopped", lines[1]["record"])
	assert.Equal(t, "^done", lines[2]["record"])
	assert.Equal(t, "5", lines[2]["token"])
	assert.Equal(t, map[string]any{"value": "42"}, lines[2]["results"])
	assert.Equal(t, "=thread-group-added", lines[3]["record"])
	assert.Equal(t, "=", lines[4]["record"])
	assert.Equal(t, map[string]any{"stream": "console", "text": "hello\n"}, lines[5])
}

func TestPrintRoutes(t *testing.T) {
	t.Parallel()

	router := gdb.NewRouter(testutil.NewLogForTesting(t.Name()))
	require.NoError(t, registerRoutes(router, newJsonLinePrinter(&bytes.Buffer{}), &queueRef{}))

	out := &bytes.Buffer{}
	require.NoError(t, printRoutes(out, router.Routes()))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "PREFIX"))
	assert.Contains(t, text, "*stopped")
	assert.Contains(t, text, "=thread-selected")
	assert.Equal(t, len(router.Routes())+1, strings.Count(text, "\n"))
}

func TestRunFlagsOverrideConfiguration(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "run"}
	flags := &runFlags{}
	addRunFlags(cmd.Flags(), flags)
	require.NoError(t, cmd.Flags().Parse([]string{"--gdb", "/opt/gdb/bin/gdb", "--drain-timeout", "3s"}))

	cfg := config.Defaults()
	cfg.GdbCommandLine = "wsl gdb"
	cfg.WorkDir = "/src"
	applyRunFlags(cmd, &cfg, flags)

	assert.Equal(t, "/opt/gdb/bin/gdb", cfg.GdbPath)
	assert.Empty(t, cfg.GdbCommandLine)
	assert.Equal(t, "/src", cfg.WorkDir, "flags that were not given keep the configured value")
	assert.Equal(t, "3s", cfg.DrainTimeout.String())

	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/gdb/bin/gdb", "--interpreter=mi2", "-q"}, sc.Launch.Args)
}
