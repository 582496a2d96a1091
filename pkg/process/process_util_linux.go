//go:build linux

/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"time"

	ps "github.com/shirou/gopsutil/v4/process"
)

func processIdentityTime(_ *ps.Process) time.Time {
	// Creation time on Linux has proved unreliable, particularly in containers. Rely on PID alone.
	return time.Time{}
}
