/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package cmdline

import (
	"errors"
	"fmt"
)

// QuoteError is returned when a command line contains a quote that is never closed.
type QuoteError struct {
	// Zero-based byte offset of the opening quote (or the dangling escape character).
	Pos int

	// The quote character: ', " or \ for a trailing escape.
	Quote rune
}

func (e *QuoteError) Error() string {
	if e.Quote == '\\' {
		return fmt.Sprintf("unterminated escape at position %d", e.Pos)
	}
	return fmt.Sprintf("unterminated %c quote starting at position %d", e.Quote, e.Pos)
}

func IsQuoteError(err error) bool {
	var qe *QuoteError
	return errors.As(err, &qe)
}
