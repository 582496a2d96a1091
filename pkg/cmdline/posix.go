/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package cmdline

import (
	"errors"

	"github.com/kballard/go-shellquote"
)

// SplitPosix splits a command line the way a POSIX shell would split a simple command
// (no variable expansion, globbing or redirection).
func SplitPosix(commandLine string) ([]string, error) {
	words, err := shellquote.Split(commandLine)
	switch {
	case err == nil:
		return words, nil
	case errors.Is(err, shellquote.UnterminatedSingleQuoteError),
		errors.Is(err, shellquote.UnterminatedDoubleQuoteError),
		errors.Is(err, shellquote.UnterminatedEscapeError):
		pos, quote := unterminatedPosix(commandLine)
		return nil, &QuoteError{Pos: pos, Quote: quote}
	default:
		return nil, err
	}
}

// QuotePosix returns the argument quoted so that SplitPosix() yields it back unchanged.
func QuotePosix(arg string) string {
	return shellquote.Join(arg)
}

// JoinPosix quotes the arguments and joins them with spaces.
func JoinPosix(args ...string) string {
	return shellquote.Join(args...)
}

// Finds the position of the quote (or escape) that is left open at the end of the command line.
func unterminatedPosix(s string) (int, rune) {
	var quote rune
	openPos := -1

	for i := 0; i < len(s); i++ {
		c := rune(s[i])
		switch {
		case quote == '\'':
			if c == '\'' {
				quote = 0
			}
		case c == '\\':
			if i == len(s)-1 {
				return i, '\\'
			}
			i++ // The escaped character has no special meaning.
		case quote == '"':
			if c == '"' {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			openPos = i
		}
	}

	if quote == 0 {
		return len(s), 0
	}
	return openPos, quote
}
