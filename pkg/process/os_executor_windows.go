//go:build windows

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

	"golang.org/x/sys/windows"
)

func (e *OSExecutor) stopRootProcess(handle ProcessHandle) error {
	proc, err := FindProcess(handle)
	if err != nil {
		if errors.Is(err, ErrorProcessNotFound) {
			return nil
		}
		return fmt.Errorf("could not find process %d: %w", handle.Pid, err)
	}

	// Windows has no signals, and there is no universal way to "ask a process to stop",
	// so we just kill the process.
	e.log.V(1).Info("killing process", "pid", handle.Pid)
	if killErr := proc.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
		return killErr
	}

	waitEnded := e.waitEndedChan(handle)
	if waitEnded == nil {
		return nil
	}

	select {
	case <-waitEnded:
		return nil
	case <-time.After(e.GracefulStopTimeout):
		return fmt.Errorf("process %d did not exit after being killed: %w", handle.Pid, context.DeadlineExceeded)
	}
}

func interruptProcess(pid Pid_t) error {
	osPid, err := PidT_ToUint32(pid)
	if err != nil {
		return err
	}

	// CTRL_BREAK can only be delivered to a process group, see CreationFlagNewProcessGroup.
	if evtErr := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, osPid); evtErr != nil {
		return fmt.Errorf("could not send CTRL_BREAK to process %d: %w", pid, evtErr)
	}
	return nil
}
