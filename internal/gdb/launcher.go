/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/go-logr/logr"

	"github.com/microsoft/gdbmi/pkg/cmdline"
	"github.com/microsoft/gdbmi/pkg/osutil"
	"github.com/microsoft/gdbmi/pkg/process"
)

// StdioMask selects the standard streams of the child that are handed back to the caller.
type StdioMask uint8

const (
	StdioIn StdioMask = 1 << iota
	StdioOut
	StdioErr

	StdioAll = StdioIn | StdioOut | StdioErr
)

// LaunchSpec describes the debugger process to start.
type LaunchSpec struct {
	// Working directory of the process. Empty means the current directory.
	Dir string

	// Command line, split into arguments using the platform rules.
	CommandLine string

	// Arguments appended after the ones from CommandLine.
	Args []string

	// NAME=VALUE entries overlaid on the current environment. Nil means the environment is inherited as-is.
	Env []string

	// Streams returned to the caller. Pipes are created for all three streams regardless.
	Stdio StdioMask
}

// Argv returns the full argument vector, program first.
func (ls LaunchSpec) Argv() ([]string, error) {
	var argv []string
	if ls.CommandLine != "" {
		parsed, err := splitCommandLine(ls.CommandLine)
		if err != nil {
			return nil, &LaunchError{Kind: QuoteError, Message: err.Error(), Err: err}
		}
		argv = parsed
	}
	argv = append(argv, ls.Args...)

	if len(argv) == 0 || argv[0] == "" {
		return nil, &LaunchError{Kind: InvalidArguments, Message: "neither a command line nor program arguments were provided"}
	}
	return argv, nil
}

// Launched is a running debugger process with the requested standard streams.
type Launched struct {
	Handle process.ProcessHandle

	// Nil for streams that were not requested.
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser

	executor     process.Executor
	startWaiting func()
}

// NewLaunched assembles a Launched value; used by ProcessLauncher implementations.
func NewLaunched(
	handle process.ProcessHandle,
	executor process.Executor,
	startWaiting func(),
	stdin io.WriteCloser,
	stdout, stderr io.ReadCloser,
) *Launched {
	return &Launched{
		Handle:       handle,
		Stdin:        stdin,
		Stdout:       stdout,
		Stderr:       stderr,
		executor:     executor,
		startWaiting: startWaiting,
	}
}

// StartWaiting enables the exit notification passed to Launch().
func (l *Launched) StartWaiting() {
	if l.startWaiting != nil {
		l.startWaiting()
	}
}

// Stop terminates the process and its descendants.
func (l *Launched) Stop() error {
	return l.executor.StopProcess(l.Handle)
}

// Interrupt asks the debugger to interrupt the debuggee (SIGINT on Unix, CTRL_BREAK on Windows).
func (l *Launched) Interrupt() error {
	return l.executor.InterruptProcess(l.Handle)
}

// CloseStreams closes all stream ends held by the caller.
func (l *Launched) CloseStreams() error {
	var errs []error
	for _, c := range []io.Closer{l.Stdin, l.Stdout, l.Stderr} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type ProcessLauncher interface {
	// Starts the process. The exit handler is invoked once the process exits,
	// but only after Launched.StartWaiting() is called.
	Launch(ctx context.Context, spec LaunchSpec, exitHandler process.ProcessExitHandler) (*Launched, error)
}

// OSLauncher starts the debugger as a child process of the current process.
type OSLauncher struct {
	executor process.Executor
	log      logr.Logger
}

func NewOSLauncher(executor process.Executor, log logr.Logger) *OSLauncher {
	return &OSLauncher{
		executor: executor,
		log:      log.WithName("launcher"),
	}
}

// A pipe whose ends are handed to the parent and the child.
type stdioPipe struct {
	parent *os.File
	child  *os.File
}

func (l *OSLauncher) Launch(ctx context.Context, spec LaunchSpec, exitHandler process.ProcessExitHandler) (*Launched, error) {
	argv, argvErr := spec.Argv()
	if argvErr != nil {
		return nil, argvErr
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = spec.Dir
	if spec.Env != nil {
		cmd.Env = osutil.MergeEnv(os.Environ(), spec.Env)
	}

	// Every file in owned is closed on failure.
	var owned []*os.File
	closeOwned := func() {
		for _, f := range owned {
			_ = f.Close()
		}
	}

	makePipe := func(step string, childReads bool) (stdioPipe, error) {
		r, w, err := os.Pipe()
		if err != nil {
			closeOwned()
			return stdioPipe{}, spawnFailed(step, err)
		}
		owned = append(owned, r, w)
		if childReads {
			return stdioPipe{parent: w, child: r}, nil
		}
		return stdioPipe{parent: r, child: w}, nil
	}

	stdin, err := makePipe("create stdin pipe", true)
	if err != nil {
		return nil, err
	}
	stdout, err := makePipe("create stdout pipe", false)
	if err != nil {
		return nil, err
	}
	stderr, err := makePipe("create stderr pipe", false)
	if err != nil {
		return nil, err
	}

	cmd.Stdin = stdin.child
	cmd.Stdout = stdout.child
	cmd.Stderr = stderr.child

	handle, startWaiting, startErr := l.executor.StartProcess(ctx, cmd, exitHandler, launchCreationFlags)
	if startErr != nil {
		closeOwned()
		return nil, spawnFailed("start process", startErr)
	}

	// The child has its own copies now.
	for _, p := range []stdioPipe{stdin, stdout, stderr} {
		_ = p.child.Close()
	}

	launched := NewLaunched(handle, l.executor, startWaiting, nil, nil, nil)
	if spec.Stdio&StdioIn != 0 {
		launched.Stdin = stdin.parent
	} else {
		_ = stdin.parent.Close()
	}
	if spec.Stdio&StdioOut != 0 {
		launched.Stdout = stdout.parent
	} else {
		_ = stdout.parent.Close()
	}
	if spec.Stdio&StdioErr != 0 {
		launched.Stderr = stderr.parent
	} else {
		_ = stderr.parent.Close()
	}

	l.log.V(1).Info("Debugger process started", "Pid", handle.Pid, "Argv", argv)
	return launched, nil
}

// JoinCommandLine quotes the arguments using the platform rules, so that they can be passed as LaunchSpec.CommandLine.
func JoinCommandLine(args ...string) string {
	if osutil.IsWindows() {
		return cmdline.JoinWindows(args...)
	}
	return cmdline.JoinPosix(args...)
}

var _ ProcessLauncher = (*OSLauncher)(nil)
