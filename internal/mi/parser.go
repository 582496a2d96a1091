/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package mi

import (
	"fmt"
	"strings"
)

// Parser turns MI text into records. The zero value uses the default newline substitute.
type Parser struct {
	// The character \n escapes inside scalars decode to.
	// Zero means DefaultNewlineSubstitute; NoSubstitute makes such escapes a parse error.
	NewlineSubstitute rune
}

func NewParser(newlineSubstitute rune) *Parser {
	return &Parser{NewlineSubstitute: newlineSubstitute}
}

var defaultParser = &Parser{}

// ParseLine parses a line using the default newline substitute.
func ParseLine(text string) (*Line, error) {
	return defaultParser.ParseLine(text)
}

// ParseLine strips the token from the line, classifies it and parses its results.
// Trailing whitespace (including a line terminator) is ignored.
//
// If the results cannot be parsed, the returned Line still carries the token, kind, class and residual text
// (so that callers can account for the record), but its Args are empty, and the returned error is a *ParseError.
func (p *Parser) ParseLine(text string) (*Line, error) {
	text = strings.TrimRight(text, " \t\r\n")
	token, residual, hasToken := StripToken(text)
	line := &Line{
		Token:    token,
		HasToken: hasToken,
		Residual: residual,
		Kind:     Text,
		Args:     NewTuple(),
	}

	if residual == PromptText {
		line.Kind = Prompt
		return line, nil
	}
	if residual == "" {
		return line, nil
	}

	c := &cursor{text: residual, pos: 1, sub: p.substitute()}

	switch residual[0] {
	case '^', '*', '+', '=':
		line.Kind = recordKinds[residual[0]]
		line.Class = c.readName()
		if line.Class == "" {
			return line, c.errorf(MalformedComposite, "record class expected")
		}

		var entries []Entry
		if !c.eof() {
			if c.peek() != ',' {
				return line, c.errorf(MalformedComposite, "unexpected %q after record class", c.peek())
			}
			c.pos++

			var err error
			entries, err = c.parseResults(true, 0)
			if err != nil {
				return line, err
			}
		}

		if hasToken && line.Kind == ResultRecord {
			entries = append([]Entry{Named(TokenKey, NewScalar(token))}, entries...)
		}
		line.Args = NewTuple(entries...)

	case '~', '@', '&':
		line.Kind = recordKinds[residual[0]]
		if c.eof() || c.peek() != '"' {
			return line, c.errorf(MalformedComposite, "stream record text must be quoted")
		}
		v, err := c.parseScalar()
		if err != nil {
			return line, err
		}
		if !c.eof() {
			return line, c.errorf(MalformedComposite, "unexpected text after stream record")
		}
		line.Args = NewTuple(Bare(v))
	}

	return line, nil
}

// ParseValue parses a single MI value (scalar, tuple or list) that spans the whole text.
func (p *Parser) ParseValue(text string) (Record, error) {
	c := &cursor{text: text, sub: p.substitute()}
	v, err := c.parseValue()
	if err != nil {
		return Record{}, err
	}
	if !c.eof() {
		return Record{}, c.errorf(MalformedComposite, "unexpected text after value")
	}
	return v, nil
}

func (p *Parser) substitute() rune {
	if p.NewlineSubstitute == 0 {
		return DefaultNewlineSubstitute
	}
	return p.NewlineSubstitute
}

var recordKinds = map[byte]LineKind{
	'^': ResultRecord,
	'*': ExecAsync,
	'+': StatusAsync,
	'=': NotifyAsync,
	'~': ConsoleStream,
	'@': TargetStream,
	'&': LogStream,
}

// The name of the top-level entry that is dropped from records (GDB -enable-timings output).
const timeEntryName = "time"

type cursor struct {
	text string
	pos  int
	sub  rune
}

func (c *cursor) eof() bool {
	return c.pos >= len(c.text)
}

func (c *cursor) peek() byte {
	return c.text[c.pos]
}

func (c *cursor) errorf(kind ParseErrorKind, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Pos: c.pos, Detail: fmt.Sprintf(format, args...)}
}

// Parses a comma-separated sequence of entries up to the terminator (which is consumed).
// A zero terminator means the end of the text.
func (c *cursor) parseResults(topLevel bool, terminator byte) ([]Entry, error) {
	entries := []Entry{}

	if terminator != 0 && !c.eof() && c.peek() == terminator {
		c.pos++
		return entries, nil
	}

	for {
		e, err := c.parseEntry()
		if err != nil {
			return nil, err
		}
		if !(topLevel && e.Name == timeEntryName) {
			entries = append(entries, e)
		}

		switch {
		case c.eof() && terminator == 0:
			return entries, nil
		case c.eof():
			return nil, c.errorf(MalformedComposite, "missing %q", terminator)
		case c.peek() == ',':
			c.pos++
		case terminator != 0 && c.peek() == terminator:
			c.pos++
			return entries, nil
		default:
			return nil, c.errorf(MalformedComposite, "unexpected %q", c.peek())
		}
	}
}

func (c *cursor) parseEntry() (Entry, error) {
	if c.eof() || !isNameStart(c.peek()) {
		v, err := c.parseValue()
		return Bare(v), err
	}

	name := c.readName()
	if c.eof() || c.peek() != '=' {
		return Entry{}, c.errorf(MissingEquals, "after %q", name)
	}
	c.pos++

	v, err := c.parseValue()
	if err != nil {
		return Entry{}, err
	}
	return Named(name, v), nil
}

func (c *cursor) parseValue() (Record, error) {
	if c.eof() {
		return Record{}, c.errorf(MalformedComposite, "value expected")
	}

	switch c.peek() {
	case '"':
		return c.parseScalar()

	case '{':
		c.pos++
		entries, err := c.parseResults(false, '}')
		if err != nil {
			return Record{}, err
		}
		return NewTuple(entries...), nil

	case '[':
		c.pos++
		entries, err := c.parseResults(false, ']')
		if err != nil {
			return Record{}, err
		}
		return NewList(entries...), nil

	default:
		return Record{}, c.errorf(MalformedComposite, "unexpected %q, value expected", c.peek())
	}
}

func (c *cursor) parseScalar() (Record, error) {
	start := c.pos
	c.pos++ // Opening quote

	var b strings.Builder
	for c.pos < len(c.text) {
		ch := c.text[c.pos]

		switch {
		case ch == '"':
			c.pos++
			return NewScalar(b.String()), nil

		case ch == '\\' && c.pos+1 < len(c.text):
			next := c.text[c.pos+1]
			switch next {
			case '\\', '"':
				b.WriteByte(next)
			case 'n', 'N':
				if c.sub == NoSubstitute {
					return Record{}, c.errorf(EmbeddedNewline, "escaped newline inside quoted text")
				}
				b.WriteRune(c.sub)
			case 't', 'T':
				b.WriteByte('\t')
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			c.pos += 2

		default:
			b.WriteByte(ch)
			c.pos++
		}
	}

	return Record{}, &ParseError{Kind: UnterminatedQuote, Pos: start}
}

// Reads an identifier; returns empty string if there is none at the current position.
func (c *cursor) readName() string {
	start := c.pos
	if c.eof() || !isNameStart(c.peek()) {
		return ""
	}
	c.pos++
	for !c.eof() && isNameChar(c.peek()) {
		c.pos++
	}
	return c.text[start:c.pos]
}

func isNameStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || isDigit(ch) || ch == '.' || ch == '-'
}
