/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package mi

import (
	"strings"
)

const (
	// The character that \n escapes decode to, unless configured otherwise.
	DefaultNewlineSubstitute rune = '\n'

	// Disables newline substitution: a \n escape inside a scalar is a parse error.
	NoSubstitute rune = -1
)

// Quote encodes s as an MI quoted scalar.
// Backslash, double quote and tab are escaped; the newline substitute character (and a real newline,
// which can never appear inside a line) are written as \n, so that parsing with the same substitute
// yields s back.
func Quote(s string, newlineSubstitute rune) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, c := range s {
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\n' || (newlineSubstitute != NoSubstitute && c == newlineSubstitute):
			b.WriteString(`\n`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
