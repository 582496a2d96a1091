/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitInfoChannelDeliversOnce(t *testing.T) {
	t.Parallel()

	handler, exitInfo := ExitInfoChannel()
	trackingErr := errors.New("lost track of process")

	handler.OnProcessExited(Pid_t(321), 7, nil)
	handler.OnProcessExited(Pid_t(321), UnknownExitCode, trackingErr)

	info, ok := <-exitInfo
	require.True(t, ok)
	require.Equal(t, ProcessExitInfo{PID: Pid_t(321), ExitCode: 7}, info)

	_, ok = <-exitInfo
	require.False(t, ok, "the channel should be closed after the first notification")
}
