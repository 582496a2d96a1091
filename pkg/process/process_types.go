/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"context"
	"os/exec"
	"sync"
)

// Pid_t is the process ID type used throughout the module.
// It is wide enough to hold any valid OS process ID plus the UnknownPID marker.
type Pid_t int64

const (
	// A valid exit code of a process is a non-negative number. We use UnknownExitCode to indicate that we have not obtained the exit code yet.
	UnknownExitCode int32 = -1

	// Unknown PID code is used when the process is not started (or fails to start)
	UnknownPID Pid_t = -1
)

type ProcessCreationFlag uint32

const (
	CreationFlagsNone ProcessCreationFlag = 0

	// Puts the child into its own process group.
	// On Windows this is required for delivering CTRL_BREAK to the child.
	CreationFlagNewProcessGroup ProcessCreationFlag = 0x1
)

type Executor interface {
	// Starts the process described by given command instance.
	// When the passed context is cancelled, the process is automatically terminated.
	// Returns the process handle and a function that enables process exit notifications delivered to the exit handler.
	StartProcess(ctx context.Context, cmd *exec.Cmd, exitHandler ProcessExitHandler, flags ProcessCreationFlag) (ProcessHandle, func(), error)

	// Stops the process (and its descendants) identified by the handle.
	StopProcess(handle ProcessHandle) error

	// Asks the process to interrupt what it is doing (SIGINT on Unix, CTRL_BREAK on Windows).
	// The process keeps running.
	InterruptProcess(handle ProcessHandle) error
}

type ProcessExitHandler interface {
	// Indicates that process with a given PID has finished execution
	// If err is nil, the process exit code was properly captured and the exitCode value is valid
	// if err is not nil, there was a problem tracking the process and the exitCode value is not valid
	OnProcessExited(pid Pid_t, exitCode int32, err error)
}

// Make it easy to supply a function as a process exit handler.
type ProcessExitHandlerFunc func(Pid_t, int32, error)

func (f ProcessExitHandlerFunc) OnProcessExited(pid Pid_t, exitCode int32, err error) {
	f(pid, exitCode, err)
}

// The final status of a process, as delivered to a ProcessExitHandler.
type ProcessExitInfo struct {
	PID      Pid_t
	ExitCode int32
	Err      error
}

// ExitInfoChannel returns an exit handler that delivers the process status on the returned channel.
// The channel receives exactly one value and is closed afterwards; later notifications are ignored.
func ExitInfoChannel() (ProcessExitHandler, <-chan ProcessExitInfo) {
	c := make(chan ProcessExitInfo, 1)
	var once sync.Once
	handler := ProcessExitHandlerFunc(func(pid Pid_t, exitCode int32, err error) {
		once.Do(func() {
			c <- ProcessExitInfo{PID: pid, ExitCode: exitCode, Err: err}
			close(c)
		})
	})
	return handler, c
}
