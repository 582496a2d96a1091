/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package mi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordString(t *testing.T) {
	t.Parallel()

	const text = `{number="1",locations=[{addr="0x1"},{addr="0x2"}],what="a \"b\""}`
	v, err := defaultParser.ParseValue(text)
	require.NoError(t, err)
	require.Equal(t, text, v.String())
}

func TestRecordJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	v, err := defaultParser.ParseValue(`{z="1",a=["x","y"],m={k="v"},frames=[frame={level="0"},frame={level="1"}]}`)
	require.NoError(t, err)

	encoded, err := json.Marshal(v)
	require.NoError(t, err)
	require.Equal(t,
		`{"z":"1","a":["x","y"],"m":{"k":"v"},"frames":[{"frame":{"level":"0"}},{"frame":{"level":"1"}}]}`,
		string(encoded),
	)
}

func TestRecordWithout(t *testing.T) {
	t.Parallel()

	line, err := ParseLine(`5^done,value="1"`)
	require.NoError(t, err)

	args := line.Args.Without(TokenKey)
	require.Equal(t, 1, args.Len())
	require.Equal(t, "value", args.At(0).Name)

	// The original is not modified.
	require.Equal(t, 2, line.Args.Len())
}

func TestRecordFind(t *testing.T) {
	t.Parallel()

	line, err := ParseLine(`*stopped,reason="breakpoint-hit",frame={addr="0x1",func="main",args=[],file="m.c",line="7"},thread-id="1"`)
	require.NoError(t, err)

	v, found := line.Args.Find("frame.line")
	require.True(t, found)
	require.Equal(t, "7", v.Text())

	_, found = line.Args.Find("frame.nope")
	require.False(t, found)

	args, found := line.Args.Find("frame.args")
	require.True(t, found)
	require.True(t, args.IsList())
	require.Equal(t, 0, args.Len())
}
