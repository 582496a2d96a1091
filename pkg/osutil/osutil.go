/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package osutil

import "runtime"

var (
	lf   = []byte("\n")
	crlf = []byte("\r\n")
)

func CRLF() []byte {
	return crlf
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// Returns the platform line separator.
func LineSep() []byte {
	if IsWindows() {
		return crlf
	} else {
		return lf
	}
}
