/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"time"

	"github.com/microsoft/gdbmi/internal/mi"
	"github.com/microsoft/gdbmi/internal/stdio"
)

const (
	DefaultDrainInterval = 50 * time.Millisecond
	DefaultDrainTimeout  = 5 * time.Second
)

type SessionConfig struct {
	// The debugger process to start. Stdio is ignored; all three streams are always used.
	Launch LaunchSpec

	StdoutMaxLineLength int
	StderrMaxLineLength int

	// Consecutive empty reads after which a channel reader switches to polling, and the polling interval.
	EmptyReadThreshold int
	PollInterval       time.Duration

	// After the debugger exits, how often to check whether its output channels reached end of stream,
	// and how long to wait for them before ending the session anyway.
	DrainInterval time.Duration
	DrainTimeout  time.Duration

	// The character \n escapes in MI text decode to; mi.NoSubstitute turns them into parse errors.
	NewlineSubstitute rune

	// Ignore SIGINT in this process while a session is active, so that Ctrl-C only reaches the debugger.
	IgnoreInterrupt bool
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		StdoutMaxLineLength: stdio.DefaultStdoutMaxLineLength,
		StderrMaxLineLength: stdio.DefaultStderrMaxLineLength,
		EmptyReadThreshold:  stdio.DefaultEmptyReadThreshold,
		PollInterval:        stdio.DefaultPollInterval,
		DrainInterval:       DefaultDrainInterval,
		DrainTimeout:        DefaultDrainTimeout,
		NewlineSubstitute:   mi.DefaultNewlineSubstitute,
		IgnoreInterrupt:     true,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultSessionConfig()
	if c.StdoutMaxLineLength <= 0 {
		c.StdoutMaxLineLength = d.StdoutMaxLineLength
	}
	if c.StderrMaxLineLength <= 0 {
		c.StderrMaxLineLength = d.StderrMaxLineLength
	}
	if c.EmptyReadThreshold <= 0 {
		c.EmptyReadThreshold = d.EmptyReadThreshold
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = d.DrainInterval
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	if c.NewlineSubstitute == 0 {
		c.NewlineSubstitute = d.NewlineSubstitute
	}
	return c
}
