/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/microsoft/gdbmi/pkg/resiliency"
)

const (
	// How long to wait for a process to exit after asking it nicely, before killing it.
	defaultGracefulStopTimeout = 5 * time.Second

	// How long to keep retrying stopping a descendant process.
	childStopTimeout = 2 * time.Second
)

type waitState struct {
	cmd       *exec.Cmd
	startOnce sync.Once
	waitErr   error         // Valid after waitEnded is closed
	waitEnded chan struct{} // Closed when cmd.Wait() returns
}

func (ws *waitState) startWaiting() {
	ws.startOnce.Do(func() {
		go func() {
			ws.waitErr = ws.cmd.Wait()
			close(ws.waitEnded)
		}()
	})
}

type OSExecutor struct {
	// Processes started by this executor that have not been reaped yet.
	procsWaiting map[ProcessHandle]*waitState
	lock         *sync.Mutex
	log          logr.Logger

	// How long StopProcess() waits after the graceful stop request before killing the process.
	GracefulStopTimeout time.Duration
}

func NewOSExecutor(log logr.Logger) *OSExecutor {
	return &OSExecutor{
		procsWaiting:        make(map[ProcessHandle]*waitState),
		lock:                &sync.Mutex{},
		log:                 log.WithName("os-executor"),
		GracefulStopTimeout: defaultGracefulStopTimeout,
	}
}

func (e *OSExecutor) StartProcess(ctx context.Context, cmd *exec.Cmd, handler ProcessExitHandler, flags ProcessCreationFlag) (ProcessHandle, func(), error) {
	applyCreationFlags(cmd, flags)

	if err := cmd.Start(); err != nil {
		return ProcessHandle{Pid: UnknownPID}, nil, err
	}

	handle := ProcessHandleFromCmd(cmd)
	ws := &waitState{
		cmd:       cmd,
		waitEnded: make(chan struct{}),
	}

	e.lock.Lock()
	e.procsWaiting[handle] = ws
	e.lock.Unlock()

	go func() {
		var stopErr error

		select {
		case <-ws.waitEnded:
			// The process exited before the context expired.

		case <-ctx.Done():
			stopErr = e.StopProcess(handle)
			if stopErr != nil && handler != nil {
				// There is no point waiting for the result if the process could not be stopped.
				e.forget(handle)
				handler.OnProcessExited(handle.Pid, UnknownExitCode, errors.Join(stopErr, ctx.Err()))
				return
			}
		}

		<-ws.waitEnded
		e.forget(handle)

		if handler != nil {
			exitCode, execErr := getProcessExecResult(ws.waitErr, cmd)
			handler.OnProcessExited(handle.Pid, exitCode, errors.Join(stopErr, execErr, ctx.Err()))
		}
	}()

	return handle, ws.startWaiting, nil
}

func (e *OSExecutor) StopProcess(handle ProcessHandle) error {
	tree, treeErr := GetProcessTree(handle)
	if treeErr != nil {
		if errors.Is(treeErr, ErrorProcessNotFound) {
			// Already gone (and possibly already reaped).
			return nil
		}
		return fmt.Errorf("could not get process tree for process %s: %w", handle, treeErr)
	}

	e.log.V(1).Info("stopping process tree", "root", handle.Pid, "tree", len(tree))

	// If the root process cannot be stopped, don't bother with the rest of the tree.
	if stopErr := e.stopRootProcess(handle); stopErr != nil {
		e.log.Error(stopErr, "could not stop root process", "root", handle.Pid)
		return stopErr
	}

	var childErrs []error
	for _, child := range tree[1:] {
		// Retry stopping the descendant process as we occasionally see transient "Access Denied" errors.
		childErr := resiliency.RetryExponentialWithTimeout(context.Background(), childStopTimeout, func() error {
			proc, findErr := FindProcess(child)
			if findErr != nil {
				if errors.Is(findErr, ErrorProcessNotFound) {
					return nil
				}
				return findErr
			}

			killErr := proc.Kill()
			if IsEarlyProcessExitError(killErr) {
				return nil
			}
			return killErr
		})
		if childErr != nil {
			childErrs = append(childErrs, childErr)
		}
	}

	if len(childErrs) > 0 {
		return fmt.Errorf("some child processes could not be stopped: %w", errors.Join(childErrs...))
	}
	return nil
}

func (e *OSExecutor) InterruptProcess(handle ProcessHandle) error {
	if _, findErr := findPsProcess(handle); findErr != nil {
		return findErr
	}

	e.log.V(1).Info("interrupting process", "pid", handle.Pid)
	return interruptProcess(handle.Pid)
}

// Returns the wait channel for a process started by this executor, or nil if the process is not tracked.
func (e *OSExecutor) waitEndedChan(handle ProcessHandle) <-chan struct{} {
	e.lock.Lock()
	defer e.lock.Unlock()

	ws, found := e.procsWaiting[handle]
	if !found {
		return nil
	}
	ws.startWaiting()
	return ws.waitEnded
}

func (e *OSExecutor) forget(handle ProcessHandle) {
	e.lock.Lock()
	defer e.lock.Unlock()
	delete(e.procsWaiting, handle)
}

var _ Executor = (*OSExecutor)(nil)
