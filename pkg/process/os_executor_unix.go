//go:build !windows

/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func (e *OSExecutor) stopRootProcess(handle ProcessHandle) error {
	proc, err := FindProcess(handle)
	if err != nil {
		if errors.Is(err, ErrorProcessNotFound) {
			return nil
		}
		return fmt.Errorf("could not find process %d: %w", handle.Pid, err)
	}

	// Give the process a chance to gracefully exit.
	err = e.signalAndWaitForExit(proc, handle, unix.SIGTERM, e.GracefulStopTimeout)
	switch {
	case err == nil:
		e.log.V(1).Info("process stopped by SIGTERM", "pid", handle.Pid)
		return nil
	case !errors.Is(err, context.DeadlineExceeded):
		return err
	}

	err = e.signalAndWaitForExit(proc, handle, unix.SIGKILL, e.GracefulStopTimeout)
	switch {
	case err == nil:
		e.log.V(1).Info("process stopped by SIGKILL", "pid", handle.Pid)
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("process %d did not exit after SIGKILL: %w", handle.Pid, err)
	default:
		return err
	}
}

// Sends a given signal to a process and waits for it to exit.
// If the process does not exit within the timeout, the function returns context.DeadlineExceeded.
func (e *OSExecutor) signalAndWaitForExit(proc *os.Process, handle ProcessHandle, sig unix.Signal, timeout time.Duration) error {
	err := proc.Signal(sig)
	switch {
	case errors.Is(err, os.ErrProcessDone):
		return nil
	case err != nil:
		return fmt.Errorf("could not send signal %s to process %d: %w", unix.SignalName(sig), proc.Pid, err)
	}

	waitEnded := e.waitEndedChan(handle)
	if waitEnded == nil {
		// Not our child, so we cannot wait() on it; poll for its disappearance instead.
		return pollForExit(handle, timeout)
	}

	select {
	case <-waitEnded:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

func pollForExit(handle ProcessHandle, timeout time.Duration) error {
	const pollInterval = 50 * time.Millisecond
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		osPid, err := PidT_ToInt(handle.Pid)
		if err != nil {
			return err
		}
		if unix.Kill(osPid, 0) != nil {
			return nil
		}
		time.Sleep(pollInterval)
	}

	return context.DeadlineExceeded
}

func interruptProcess(pid Pid_t) error {
	osPid, err := PidT_ToInt(pid)
	if err != nil {
		return err
	}

	if killErr := unix.Kill(osPid, unix.SIGINT); killErr != nil {
		return fmt.Errorf("could not send SIGINT to process %d: %w", pid, killErr)
	}
	return nil
}
