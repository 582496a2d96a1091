/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package mi

import (
	"strings"
)

type LineKind int

const (
	ResultRecord  LineKind = iota // ^done, ^running, ^connected, ^error, ^exit
	ExecAsync                     // *running, *stopped
	StatusAsync                   // +download
	NotifyAsync                   // =thread-created, =breakpoint-modified ...
	ConsoleStream                 // ~"text"
	TargetStream                  // @"text"
	LogStream                     // &"text"
	Prompt                        // (gdb)
	Text                          // anything else, e.g. output of the debuggee sharing the terminal
)

func (k LineKind) String() string {
	switch k {
	case ResultRecord:
		return "result"
	case ExecAsync:
		return "exec-async"
	case StatusAsync:
		return "status-async"
	case NotifyAsync:
		return "notify-async"
	case ConsoleStream:
		return "console-stream"
	case TargetStream:
		return "target-stream"
	case LogStream:
		return "log-stream"
	case Prompt:
		return "prompt"
	default:
		return "text"
	}
}

func (k LineKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// The synthetic entry under which the token of a result record is re-attached to its results.
const TokenKey = "=token"

// The text of the MI prompt line, without the trailing space.
const PromptText = "(gdb)"

// Line is one parsed line of MI output.
type Line struct {
	// The token stripped from the beginning of the line, normalized (no leading zeros).
	Token    string `json:"token,omitempty"`
	HasToken bool   `json:"-"`

	Kind LineKind `json:"kind"`

	// Record class, e.g. "done" or "stopped". Empty for stream records, the prompt and plain text.
	Class string `json:"class,omitempty"`

	// The line text after the token.
	Residual string `json:"-"`

	// Top-level results. Stream records have a single bare scalar entry with the decoded text.
	// Result records with a token carry it in an additional TokenKey entry.
	Args Record `json:"args"`
}

// StreamText returns the decoded text of a stream record.
func (l *Line) StreamText() string {
	if l.Args.Len() == 0 {
		return ""
	}
	return l.Args.At(0).Value.Text()
}

func (l *Line) IsStream() bool {
	return l.Kind == ConsoleStream || l.Kind == TargetStream || l.Kind == LogStream
}

// StripToken splits a line into its leading token (a run of ASCII digits) and the remaining text.
// The token is returned without leading zeros ("042" yields "42"; "000" yields "0").
// The residual never starts with a digit, so stripping it again finds no token.
func StripToken(text string) (token string, residual string, hasToken bool) {
	i := 0
	for i < len(text) && isDigit(text[i]) {
		i++
	}
	if i == 0 {
		return "", text, false
	}

	token = strings.TrimLeft(text[:i], "0")
	if token == "" {
		token = "0"
	}
	return token, text[i:], true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
