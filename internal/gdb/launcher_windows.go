//go:build windows

/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"github.com/microsoft/gdbmi/pkg/cmdline"
	"github.com/microsoft/gdbmi/pkg/process"
)

// CTRL_BREAK can only be delivered to a process group leader.
const launchCreationFlags = process.CreationFlagNewProcessGroup

func splitCommandLine(commandLine string) ([]string, error) {
	return cmdline.SplitWindows(commandLine)
}
