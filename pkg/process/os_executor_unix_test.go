//go:build !windows

/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
)

const testTimeout = 20 * time.Second

func TestRunToCompletionReportsExitCode(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	executor := NewOSExecutor(logr.Discard())
	exitCode, err := RunToCompletion(ctx, executor, exec.Command("sh", "-c", "exit 12"))
	require.NoError(t, err)
	require.Equal(t, int32(12), exitCode)
}

func TestStopProcessTerminatesLongRunningProcess(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	executor := NewOSExecutor(logr.Discard())
	executor.GracefulStopTimeout = 2 * time.Second

	exitHandler, exitInfo := ExitInfoChannel()
	handle, startWaiting, err := executor.StartProcess(ctx, exec.Command("sleep", "30"), exitHandler, CreationFlagNewProcessGroup)
	require.NoError(t, err)
	require.True(t, handle.Valid())
	startWaiting()

	start := time.Now()
	require.NoError(t, executor.StopProcess(handle))

	select {
	case info := <-exitInfo:
		require.Equal(t, handle.Pid, info.PID)
		require.NotEqual(t, int32(0), info.ExitCode)
	case <-ctx.Done():
		t.Fatal("process exit was not reported")
	}
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestContextCancellationStopsProcess(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	executor := NewOSExecutor(logr.Discard())

	exitHandler, exitInfo := ExitInfoChannel()
	_, startWaiting, err := executor.StartProcess(ctx, exec.Command("sleep", "30"), exitHandler, CreationFlagsNone)
	require.NoError(t, err)
	startWaiting()
	cancel()

	select {
	case info := <-exitInfo:
		require.ErrorIs(t, info.Err, context.Canceled)
	case <-time.After(testTimeout):
		t.Fatal("process exit was not reported after context cancellation")
	}
}

func TestStopProcessIgnoresExitedProcess(t *testing.T) {
	t.Parallel()

	executor := NewOSExecutor(logr.Discard())
	exitCode, err := RunToCompletion(context.Background(), executor, exec.Command("sh", "-c", "exit 0"))
	require.NoError(t, err)
	require.Equal(t, int32(0), exitCode)

	require.NoError(t, executor.StopProcess(NewProcessHandle(Pid_t(0x7ffffff0), time.Time{})))
}
