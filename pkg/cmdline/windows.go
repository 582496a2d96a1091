/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package cmdline

import (
	"strings"
)

// SplitWindows splits a command line into arguments following the Microsoft C runtime rules:
//   - arguments are separated by spaces or tabs outside of double quotes,
//   - 2n backslashes followed by a double quote produce n backslashes and the quote toggles quoting,
//   - 2n+1 backslashes followed by a double quote produce n backslashes and a literal quote,
//   - backslashes not followed by a double quote are literal,
//   - inside quotes, two consecutive double quotes produce a literal quote.
//
// Unlike the C runtime, a quote that is never closed is reported as an error.
func SplitWindows(commandLine string) ([]string, error) {
	var args []string
	var current strings.Builder
	inArg := false
	inQuotes := false
	quotePos := -1
	backslashes := 0

	flushBackslashes := func() {
		current.WriteString(strings.Repeat("\\", backslashes))
		backslashes = 0
	}

	for i := 0; i < len(commandLine); i++ {
		c := commandLine[i]

		switch {
		case c == '\\':
			backslashes++
			inArg = true

		case c == '"':
			current.WriteString(strings.Repeat("\\", backslashes/2))
			escaped := backslashes%2 == 1
			backslashes = 0
			inArg = true

			switch {
			case escaped:
				current.WriteByte('"')
			case inQuotes && i+1 < len(commandLine) && commandLine[i+1] == '"':
				current.WriteByte('"')
				i++
			case inQuotes:
				inQuotes = false
			default:
				inQuotes = true
				quotePos = i
			}

		case (c == ' ' || c == '\t') && !inQuotes:
			flushBackslashes()
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}

		default:
			flushBackslashes()
			current.WriteByte(c)
			inArg = true
		}
	}

	if inQuotes {
		return nil, &QuoteError{Pos: quotePos, Quote: '"'}
	}

	flushBackslashes()
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}

// QuoteWindows returns the argument quoted so that SplitWindows() (and the C runtime) yield it back unchanged.
func QuoteWindows(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\v\"") {
		return arg
	}

	var b strings.Builder
	b.WriteByte('"')
	backslashes := 0
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		switch c {
		case '\\':
			backslashes++
		case '"':
			// Escape all preceding backslashes and the quote itself.
			b.WriteString(strings.Repeat("\\", 2*backslashes+1))
			b.WriteByte('"')
			backslashes = 0
		default:
			b.WriteString(strings.Repeat("\\", backslashes))
			b.WriteByte(c)
			backslashes = 0
		}
	}
	// Backslashes before the closing quote must be doubled.
	b.WriteString(strings.Repeat("\\", 2*backslashes))
	b.WriteByte('"')
	return b.String()
}

// JoinWindows quotes the arguments and joins them with spaces.
func JoinWindows(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = QuoteWindows(a)
	}
	return strings.Join(quoted, " ")
}
