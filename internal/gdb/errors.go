/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"errors"
	"fmt"

	"github.com/microsoft/gdbmi/internal/mi"
	"github.com/microsoft/gdbmi/internal/stdio"
)

var (
	// ErrSessionBusy is returned when starting a session that is still active or being shut down.
	ErrSessionBusy = errors.New("debugger session is busy")

	// ErrSessionKilling is returned when submitting commands to a session that is shutting down.
	ErrSessionKilling = errors.New("debugger session is shutting down")

	// ErrSessionInactive is returned when using a session that is not running.
	ErrSessionInactive = errors.New("debugger session is not active")

	// ErrQueueClosed is returned when submitting commands after the command channel was closed or failed.
	ErrQueueClosed = errors.New("command queue is closed")

	// ErrInvalidCommand is returned when submitting a command that spans multiple lines or is empty.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrRouterFrozen is returned when registering a route after the router was frozen.
	ErrRouterFrozen = errors.New("routes cannot be added after the router is frozen")
)

type LaunchErrorKind int

const (
	InvalidArguments LaunchErrorKind = iota
	SpawnFailed
	QuoteError
)

func (k LaunchErrorKind) String() string {
	switch k {
	case InvalidArguments:
		return "InvalidArguments"
	case SpawnFailed:
		return "SpawnFailed"
	case QuoteError:
		return "QuoteError"
	default:
		return "Unknown"
	}
}

// LaunchError describes a failure to start the debugger process.
type LaunchError struct {
	Kind LaunchErrorKind

	// The step that failed, e.g. "create stdout pipe" or "start process". Only set for SpawnFailed.
	Step string

	// Human-readable description, including the platform error text.
	Message string

	Err error
}

func (e *LaunchError) Error() string {
	switch e.Kind {
	case SpawnFailed:
		return fmt.Sprintf("failed to %s: %s", e.Step, e.Message)
	case QuoteError:
		return fmt.Sprintf("could not parse the command line: %s", e.Message)
	default:
		return fmt.Sprintf("invalid launch arguments: %s", e.Message)
	}
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

func spawnFailed(step string, err error) *LaunchError {
	return &LaunchError{Kind: SpawnFailed, Step: step, Message: err.Error(), Err: err}
}

// IsLaunchError returns true if the error is a *LaunchError, optionally of one of the given kinds.
func IsLaunchError(err error, kinds ...LaunchErrorKind) bool {
	var le *LaunchError
	if !errors.As(err, &le) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if le.Kind == k {
			return true
		}
	}
	return false
}

// IsSessionError returns true if the error indicates the session is not in a state to accept the request.
func IsSessionError(err error) bool {
	return errors.Is(err, ErrSessionBusy) ||
		errors.Is(err, ErrSessionKilling) ||
		errors.Is(err, ErrSessionInactive)
}

// IsProtocolError returns true if the error describes malformed debugger output.
// Protocol errors are reported as diagnostics and never end the session.
func IsProtocolError(err error) bool {
	return mi.IsParseError(err) || stdio.IsProtocolError(err)
}
