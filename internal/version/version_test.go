/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildTime(t *testing.T) {
	t.Parallel()

	bt, ok := buildTime("1700000000")
	require.True(t, ok)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), bt)

	bt, ok = buildTime("2024-05-01T10:00:00Z")
	require.True(t, ok)
	require.Equal(t, 2024, bt.Year())

	_, ok = buildTime("yesterday")
	require.False(t, ok)
	_, ok = buildTime("")
	require.False(t, ok)
}
