//go:build !windows

/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"bufio"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/microsoft/gdbmi/pkg/process"
	"github.com/microsoft/gdbmi/pkg/testutil"
)

const launchTestTimeout = 20 * time.Second

func newTestLauncher(t *testing.T) *OSLauncher {
	log := testutil.NewLogForTesting(t.Name())
	return NewOSLauncher(process.NewOSExecutor(log), log)
}

func TestLaunchConnectsStreams(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, launchTestTimeout)
	defer cancel()

	exitHandler, exitInfo := process.ExitInfoChannel()
	launched, err := newTestLauncher(t).Launch(ctx, LaunchSpec{
		CommandLine: `sh -c 'read x; echo "got $x"; echo "$GDBMI_TEST_VAR" >&2'`,
		Env:         []string{"GDBMI_TEST_VAR=from-env"},
		Stdio:       StdioAll,
	}, exitHandler)
	require.NoError(t, err)
	require.True(t, launched.Handle.Valid())
	launched.StartWaiting()
	defer func() { _ = launched.CloseStreams() }()

	_, err = launched.Stdin.Write([]byte("hello\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(launched.Stdout).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "got hello\n", line)

	errText, err := io.ReadAll(launched.Stderr)
	require.NoError(t, err)
	require.Equal(t, "from-env\n", string(errText))

	select {
	case info := <-exitInfo:
		require.Equal(t, int32(0), info.ExitCode)
	case <-ctx.Done():
		t.Fatal("process exit was not reported")
	}
}

func TestLaunchAppendsArgs(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, launchTestTimeout)
	defer cancel()

	exitHandler, exitInfo := process.ExitInfoChannel()
	launched, err := newTestLauncher(t).Launch(ctx, LaunchSpec{
		CommandLine: "echo",
		Args:        []string{"with space", "plain"},
		Stdio:       StdioOut,
	}, exitHandler)
	require.NoError(t, err)
	launched.StartWaiting()
	defer func() { _ = launched.CloseStreams() }()

	// Streams that were not requested are not handed out.
	require.Nil(t, launched.Stdin)
	require.Nil(t, launched.Stderr)

	out, err := io.ReadAll(launched.Stdout)
	require.NoError(t, err)
	require.Equal(t, "with space plain\n", string(out))
	<-exitInfo
}

func TestLaunchErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, launchTestTimeout)
	defer cancel()

	launcher := newTestLauncher(t)
	noExit := process.ProcessExitHandlerFunc(func(process.Pid_t, int32, error) {})

	_, err := launcher.Launch(ctx, LaunchSpec{Stdio: StdioAll}, noExit)
	require.True(t, IsLaunchError(err, InvalidArguments), "unexpected error: %v", err)

	_, err = launcher.Launch(ctx, LaunchSpec{CommandLine: `gdb -ex "break main`, Stdio: StdioAll}, noExit)
	require.True(t, IsLaunchError(err, QuoteError), "unexpected error: %v", err)

	_, err = launcher.Launch(ctx, LaunchSpec{CommandLine: "/nonexistent/gdbmi-test-binary --interpreter=mi2", Stdio: StdioAll}, noExit)
	require.True(t, IsLaunchError(err, SpawnFailed), "unexpected error: %v", err)
	require.Contains(t, err.Error(), "failed to start process")
}

func TestLaunchSpecArgv(t *testing.T) {
	t.Parallel()

	argv, err := LaunchSpec{CommandLine: `gdb --interpreter=mi2 -ex 'set print pretty on'`, Args: []string{"./a.out"}}.Argv()
	require.NoError(t, err)
	require.Equal(t, []string{"gdb", "--interpreter=mi2", "-ex", "set print pretty on", "./a.out"}, argv)

	argv, err = LaunchSpec{Args: []string{"gdb", "-q"}}.Argv()
	require.NoError(t, err)
	require.Equal(t, []string{"gdb", "-q"}, argv)

	require.Equal(t, `gdb -ex 'break main'`, JoinCommandLine("gdb", "-ex", "break main"))
}
