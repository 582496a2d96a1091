/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package mi

import (
	"bytes"
	"encoding/json"
	"strings"
)

type RecordKind int

const (
	KindScalar RecordKind = iota
	KindComposite
)

// Record is a parsed MI value: either a scalar (decoded text) or a composite (ordered entries).
// Tuples and lists both parse to composites; the list flag only affects rendering.
// Records are immutable once parsed.
type Record struct {
	kind    RecordKind
	text    string
	entries []Entry
	list    bool
}

// Entry is one element of a composite. Name is empty for bare values.
type Entry struct {
	Name  string
	Value Record
}

func NewScalar(text string) Record {
	return Record{kind: KindScalar, text: text}
}

func NewTuple(entries ...Entry) Record {
	return Record{kind: KindComposite, entries: entries}
}

func NewList(entries ...Entry) Record {
	return Record{kind: KindComposite, entries: entries, list: true}
}

func Named(name string, value Record) Entry {
	return Entry{Name: name, Value: value}
}

func Bare(value Record) Entry {
	return Entry{Value: value}
}

func (r Record) Kind() RecordKind {
	return r.kind
}

func (r Record) IsScalar() bool {
	return r.kind == KindScalar
}

func (r Record) IsComposite() bool {
	return r.kind == KindComposite
}

func (r Record) IsList() bool {
	return r.kind == KindComposite && r.list
}

// Text returns the decoded text of a scalar, or empty string for composites.
func (r Record) Text() string {
	return r.text
}

// Len returns the number of entries of a composite (zero for scalars).
func (r Record) Len() int {
	return len(r.entries)
}

// Entries returns the entries of a composite in source order. The returned slice must not be modified.
func (r Record) Entries() []Entry {
	return r.entries
}

// At returns the i-th entry of a composite.
func (r Record) At(i int) Entry {
	return r.entries[i]
}

// Get returns the value of the first entry with the given name.
func (r Record) Get(name string) (Record, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Record{}, false
}

// GetText is a shortcut for Get(name).Text(); it returns empty string if the entry does not exist.
func (r Record) GetText(name string) string {
	v, _ := r.Get(name)
	return v.Text()
}

// Has reports whether the composite has an entry with the given name.
func (r Record) Has(name string) bool {
	_, found := r.Get(name)
	return found
}

// Find follows a dot-separated path of entry names, e.g. "frame.line".
// Names that themselves contain dots (GDB uses a few, like "thread-group.id") are not addressable this way;
// use Get() on the parent instead.
func (r Record) Find(path string) (Record, bool) {
	current := r
	for _, name := range strings.Split(path, ".") {
		next, found := current.Get(name)
		if !found {
			return Record{}, false
		}
		current = next
	}
	return current, true
}

// Without returns a copy of the composite with all entries named name removed.
func (r Record) Without(name string) Record {
	if !r.Has(name) {
		return r
	}

	retval := Record{kind: r.kind, list: r.list, entries: make([]Entry, 0, len(r.entries)-1)}
	for _, e := range r.entries {
		if e.Name != name {
			retval.entries = append(retval.entries, e)
		}
	}
	return retval
}

// String renders the record in MI syntax.
func (r Record) String() string {
	var b strings.Builder
	r.writeTo(&b)
	return b.String()
}

func (r Record) writeTo(b *strings.Builder) {
	if r.kind == KindScalar {
		b.WriteString(Quote(r.text, DefaultNewlineSubstitute))
		return
	}

	opening, closing := byte('{'), byte('}')
	if r.list {
		opening, closing = '[', ']'
	}
	b.WriteByte(opening)
	writeEntries(b, r.entries)
	b.WriteByte(closing)
}

func writeEntries(b *strings.Builder, entries []Entry) {
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		if e.Name != "" {
			b.WriteString(e.Name)
			b.WriteByte('=')
		}
		e.Value.writeTo(b)
	}
}

// MarshalJSON renders scalars as JSON strings, tuples of named entries as JSON objects (keys in source order)
// and everything else as JSON arrays. Named entries inside arrays become single-key objects.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r Record) writeJSON(buf *bytes.Buffer) error {
	if r.kind == KindScalar {
		return writeJSONString(buf, r.text)
	}

	if !r.list && allNamed(r.entries) {
		buf.WriteByte('{')
		for i, e := range r.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONMember(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	}

	buf.WriteByte('[')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if e.Name == "" {
			if err := e.Value.writeJSON(buf); err != nil {
				return err
			}
			continue
		}
		buf.WriteByte('{')
		if err := writeJSONMember(buf, e); err != nil {
			return err
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return nil
}

func writeJSONMember(buf *bytes.Buffer, e Entry) error {
	if err := writeJSONString(buf, e.Name); err != nil {
		return err
	}
	buf.WriteByte(':')
	return e.Value.writeJSON(buf)
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

func allNamed(entries []Entry) bool {
	for _, e := range entries {
		if e.Name == "" {
			return false
		}
	}
	return true
}

var _ json.Marshaler = Record{}
