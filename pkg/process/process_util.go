/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	ps "github.com/shirou/gopsutil/v4/process"
)

var (
	// Essentially the same as ps.ErrorProcessNotRunning, but we do not want to
	// expose the ps package outside of this package.
	ErrorProcessNotFound = errors.New("process does not exist")
)

// Identity times are compared with millisecond precision.
const ProcessIdentityTimeMaximumDifference = 2 * time.Millisecond

// Returns the handles of a given process and its descendants.
// The list is ordered starting with the root of the hierarchy, then the children, then the grandchildren etc.
func GetProcessTree(root ProcessHandle) ([]ProcessHandle, error) {
	rootProc, err := findPsProcess(root)
	if err != nil {
		return nil, err
	}

	tree := []ProcessHandle{}
	next := []*ps.Process{rootProc}

	for len(next) > 0 {
		current := next[0]
		next = next[1:]
		tree = append(tree, ProcessHandle{
			Pid:          Uint32_ToPidT(uint32(current.Pid)),
			IdentityTime: processIdentityTime(current),
		})

		children, childrenErr := current.Children()
		if childrenErr != nil {
			// If we fail to get the children, assume there are no children.
			children = nil
		}

		next = append(next, children...)
	}

	return tree, nil
}

// Runs the command as a child process to completion.
// Returns exit code, or error if the process could not be started/tracked for some reason.
//
// The context parameter is used to request cancellation of the process, but the call to RunToCompletion() will not return
// until the process exits and all its output is captured.
func RunToCompletion(ctx context.Context, executor Executor, cmd *exec.Cmd) (int32, error) {
	peh, pic := ExitInfoChannel()

	_, startWaitForProcessExit, err := executor.StartProcess(ctx, cmd, peh, CreationFlagsNone)
	if err != nil {
		return UnknownExitCode, err
	}

	startWaitForProcessExit()

	// Only exit when the process exits--do not exit merely because the context is cancelled.
	exitInfo := <-pic
	return exitInfo.ExitCode, exitInfo.Err
}

// Gets the raw start time for the process, used to verify process identity.
// This time should not be used for display purposes, but is stable across system clock changes.
func ProcessIdentityTime(pid Pid_t) time.Time {
	osPid, osPidErr := PidT_ToUint32(pid)
	if osPidErr != nil {
		return time.Time{}
	}

	proc, procErr := ps.NewProcess(int32(osPid))
	if procErr != nil {
		return time.Time{}
	}

	return processIdentityTime(proc)
}

func findPsProcess(handle ProcessHandle) (*ps.Process, error) {
	osPid, err := PidT_ToUint32(handle.Pid)
	if err != nil {
		return nil, err
	}

	proc, procErr := ps.NewProcess(int32(osPid))
	if procErr != nil {
		if errors.Is(procErr, ps.ErrorProcessNotRunning) {
			return nil, fmt.Errorf("process with pid %d does not exist: %w", handle.Pid, ErrorProcessNotFound)
		}
		return nil, procErr
	}

	if !hasExpectedIdentityTime(proc, handle.IdentityTime) {
		return nil, fmt.Errorf(
			"process start time mismatch, pid might have been reused: pid %d, expected identity time %s: %w",
			handle.Pid,
			handle.IdentityTime.Format(time.RFC3339Nano),
			ErrorProcessNotFound,
		)
	}

	return proc, nil
}

// Returns the process with the given handle. If the handle identity time is not zero,
// the process identity time is checked to match it.
func FindProcess(handle ProcessHandle) (*os.Process, error) {
	proc, err := findPsProcess(handle)
	if err != nil {
		return nil, err
	}

	return os.FindProcess(int(proc.Pid))
}

func hasExpectedIdentityTime(proc *ps.Process, expectedIdentityTime time.Time) bool {
	if expectedIdentityTime.IsZero() {
		return true
	}

	identityTime := processIdentityTime(proc)
	if identityTime.IsZero() {
		return true
	}
	return identityTime.Sub(expectedIdentityTime).Abs() <= ProcessIdentityTimeMaximumDifference
}

func Uint32_ToPidT(val uint32) Pid_t {
	// uint32 is always valid as a PID value (see convertPid()), and can always be converted to Pid_t, which is int64-based.
	return Pid_t(val)
}

func PidT_ToInt(val Pid_t) (int, error) {
	return convertPid[Pid_t, int](val)
}

func PidT_ToUint32(val Pid_t) (uint32, error) {
	return convertPid[Pid_t, uint32](val)
}

func convertPid[From ~int64 | ~uint64 | ~uint32, To ~int64 | ~int | ~uint32](val From) (To, error) {
	outOfRange := val < 0 || uint64(val) > math.MaxUint32
	if outOfRange {
		return 0, fmt.Errorf("value %d is out of range of valid process ID values", val)
	}
	return To(val), nil
}

// Checks if the error is associated with early exit of a process, which is often expected.
func IsEarlyProcessExitError(err error) bool {
	if err == nil {
		return false
	}

	var ee *exec.ExitError
	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, ErrorProcessNotFound) || errors.As(err, &ee) {
		return true
	}

	// Receiving ECHILD when calling wait() on the child process is expected,
	// (the parent process might have terminated them).
	var sysErr *os.SyscallError
	return errors.As(err, &sysErr) && strings.HasPrefix(sysErr.Syscall, "wait") && errors.Is(sysErr.Err, syscall.ECHILD)
}

// Returns the process exit code and execution error depending on the result of command wait call.
func getProcessExecResult(waitErr error, cmd *exec.Cmd) (int32, error) {
	var ee *exec.ExitError
	switch {
	case waitErr == nil && cmd.ProcessState != nil:
		return int32(cmd.ProcessState.ExitCode()), nil
	case errors.As(waitErr, &ee):
		return int32(ee.ExitCode()), nil
	case waitErr == nil:
		return UnknownExitCode, nil
	default:
		return UnknownExitCode, waitErr
	}
}

func init() {
	ps.EnableBootTimeCache(true)
}
