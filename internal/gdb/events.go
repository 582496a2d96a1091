/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"fmt"

	"github.com/microsoft/gdbmi/pkg/process"
)

type EndKind int

const (
	// GDB exited after being asked to with -gdb-exit.
	EndClean EndKind = iota

	// The session was terminated with Session.Terminate().
	EndKilled

	// GDB exited on its own, or its channels failed.
	EndCrashed
)

func (k EndKind) String() string {
	switch k {
	case EndClean:
		return "clean"
	case EndKilled:
		return "killed"
	default:
		return "crashed"
	}
}

// EndReason describes why a session ended.
type EndReason struct {
	Kind EndKind

	// Exit code of the debugger process, or process.UnknownExitCode.
	ExitCode int32

	// Error reported while tracking the process, if any.
	Err error
}

func (r EndReason) String() string {
	switch {
	case r.Kind != EndCrashed:
		return r.Kind.String()
	case r.ExitCode == process.UnknownExitCode:
		return "debugger terminated unexpectedly"
	default:
		return fmt.Sprintf("debugger terminated unexpectedly with exit code %d", r.ExitCode)
	}
}

// Events receives session notifications. All callbacks are made from the session dispatch goroutine,
// in order, and never concurrently with route handlers. Nil callbacks are skipped.
type Events struct {
	// The session started; called before any line is dispatched.
	OnSessionStarted func(sessionID string)

	// The session ended. Called exactly once per started session, after all output was dispatched.
	OnSessionEnded func(reason EndReason)

	// Text that should be shown to the user as-is: debugger stderr, unparseable output, channel errors.
	OnDiagnostic func(text string)

	// GDB printed its prompt and no command results are owed.
	OnIdle func()
}

func (e Events) sessionStarted(id string) {
	if e.OnSessionStarted != nil {
		e.OnSessionStarted(id)
	}
}

func (e Events) sessionEnded(reason EndReason) {
	if e.OnSessionEnded != nil {
		e.OnSessionEnded(reason)
	}
}

func (e Events) diagnostic(text string) {
	if e.OnDiagnostic != nil {
		e.OnDiagnostic(text)
	}
}

func (e Events) idle() {
	if e.OnIdle != nil {
		e.OnIdle()
	}
}
