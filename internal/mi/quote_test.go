/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package mi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuoteRoundTrip(t *testing.T) {
	t.Parallel()

	samples := []string{
		"",
		"plain",
		`say "hello"`,
		`C:\Users\dev\main.c`,
		"tab\tseparated\tvalues",
		"multi\nline\ntext\n",
		"\\n is not a newline",
		`trailing backslash\`,
		"mixed \"\\\t\n end",
		"unicode é ü 中",
	}

	for _, s := range samples {
		quoted := Quote(s, DefaultNewlineSubstitute)
		v, err := defaultParser.ParseValue(quoted)
		require.NoError(t, err, "sample %q quoted as %s", s, quoted)
		require.Equal(t, s, v.Text(), "sample %q quoted as %s", s, quoted)
		require.NotContains(t, quoted, "\n")
	}
}

func TestQuoteRoundTripWithCustomSubstitute(t *testing.T) {
	t.Parallel()

	const sub = '\r'
	p := NewParser(sub)

	for _, s := range []string{"one\rtwo", "\r", "tab\tand\rquote\""} {
		quoted := Quote(s, sub)
		v, err := p.ParseValue(quoted)
		require.NoError(t, err)
		require.Equal(t, s, v.Text())
	}
}

func TestQuoteWithoutSubstituteProducesUnparseableNewlines(t *testing.T) {
	t.Parallel()

	quoted := Quote("a\nb", NoSubstitute)
	require.Equal(t, `"a\nb"`, quoted)

	_, err := NewParser(NoSubstitute).ParseValue(quoted)
	require.True(t, IsParseError(err, EmbeddedNewline))
}
