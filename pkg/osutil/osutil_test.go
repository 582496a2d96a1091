/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package osutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeEnv(t *testing.T) {
	t.Parallel()

	base := []string{"A=1", "B=2", "C=3"}
	overlay := []string{"B=20", "D=4"}

	merged := MergeEnv(base, overlay)
	assert.Equal(t, []string{"A=1", "C=3", "B=20", "D=4"}, merged)

	assert.Equal(t, base, MergeEnv(base, nil))
}

func TestEnvListToMap(t *testing.T) {
	t.Parallel()

	m := EnvListToMap([]string{"A=1", "B=x=y", "junk", "=nope", "A=2"})
	assert.Equal(t, map[string]string{"A": "2", "B": "x=y"}, m)
}

func TestEnvVarStringWithDefault(t *testing.T) {
	const name = "GDBMI_OSUTIL_TEST_VALUE"

	t.Setenv(name, "  ")
	assert.Equal(t, "fallback", EnvVarStringWithDefault(name, "fallback"))

	t.Setenv(name, "debug")
	assert.Equal(t, "debug", EnvVarStringWithDefault(name, "fallback"))
}

func TestLineSep(t *testing.T) {
	t.Parallel()

	if IsWindows() {
		assert.Equal(t, CRLF(), LineSep())
	} else {
		assert.Equal(t, []byte("\n"), LineSep())
	}
}
