//go:build !windows

/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"github.com/microsoft/gdbmi/pkg/cmdline"
	"github.com/microsoft/gdbmi/pkg/process"
)

// GDB stays in the foreground process group, so a Ctrl-C typed in the terminal reaches it.
const launchCreationFlags = process.CreationFlagsNone

func splitCommandLine(commandLine string) ([]string, error) {
	return cmdline.SplitPosix(commandLine)
}
