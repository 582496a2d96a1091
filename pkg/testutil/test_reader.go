/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package testutil

import (
	"io"
	"sync"
)

// The maximum number of pending entries in the timeline
const bufferSize = 4096

type readResult struct {
	data []byte
	err  error
}

// TestReader is an io.ReadCloser that returns a scripted sequence of read results.
// Each AddChunk(), AddEmptyRead() or AddError() entry is returned by exactly one Read() call,
// which makes it possible to exercise readers with specific read boundaries.
// When the timeline is exhausted, Read() blocks until more entries are added or the reader is closed.
type TestReader struct {
	timeline  chan readResult
	closeOnce sync.Once
	closed    chan struct{}

	// Remainder of a chunk that did not fit into the caller's buffer.
	rest []byte
	lock sync.Mutex
}

func NewTestReader() *TestReader {
	return &TestReader{
		timeline: make(chan readResult, bufferSize),
		closed:   make(chan struct{}),
	}
}

func (tr *TestReader) AddChunk(chunks ...string) {
	for _, c := range chunks {
		tr.timeline <- readResult{data: []byte(c)}
	}
}

// Adds n reads that return no data and no error.
func (tr *TestReader) AddEmptyRead(n int) {
	for range n {
		tr.timeline <- readResult{}
	}
}

// Adds a read that returns the given error. If err is nil, io.EOF is used.
func (tr *TestReader) AddError(err error) {
	if err == nil {
		err = io.EOF
	}
	tr.timeline <- readResult{err: err}
}

func (tr *TestReader) Read(p []byte) (int, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	if len(tr.rest) > 0 {
		n := copy(p, tr.rest)
		tr.rest = tr.rest[n:]
		return n, nil
	}

	select {
	case entry := <-tr.timeline:
		if entry.err != nil {
			return 0, entry.err
		}
		n := copy(p, entry.data)
		tr.rest = entry.data[n:]
		return n, nil
	case <-tr.closed:
		return 0, io.EOF
	}
}

func (tr *TestReader) Close() error {
	tr.closeOnce.Do(func() { close(tr.closed) })
	return nil
}

var _ io.ReadCloser = (*TestReader)(nil)
