/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package mi

import (
	"errors"
	"fmt"
)

type ParseErrorKind int

const (
	UnterminatedQuote ParseErrorKind = iota
	MalformedComposite
	MissingEquals
	EmbeddedNewline
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnterminatedQuote:
		return "unterminated quote"
	case MalformedComposite:
		return "malformed composite"
	case MissingEquals:
		return "missing '='"
	case EmbeddedNewline:
		return "embedded newline"
	default:
		return "unknown parse error"
	}
}

// ParseError describes a line that does not conform to the MI grammar.
type ParseError struct {
	Kind ParseErrorKind

	// Zero-based byte offset into the parsed text (after the token was stripped).
	Pos int

	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s at position %d", e.Kind, e.Pos)
	}
	return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Pos, e.Detail)
}

// IsParseError returns true if the error is a *ParseError, optionally of one of the given kinds.
func IsParseError(err error, kinds ...ParseErrorKind) bool {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if pe.Kind == k {
			return true
		}
	}
	return false
}
