/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package testutil

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// BufferWriter is an io.WriteCloser that records everything written to it, together with
// the boundaries and timestamps of individual Write() calls.
// A write error can be injected with FailWith(); all subsequent writes return that error.
// All methods are goroutine-safe.
type BufferWriter struct {
	data     []byte
	chunks   []Chunk
	lock     *sync.Mutex
	maxSize  int
	closed   bool
	failWith error
	written  chan struct{}
}

type Chunk struct {
	Offset    int
	Length    int
	Timestamp time.Time
}

var ErrBufferFull = errors.New("buffer is full")

// Creates a new BufferWriter. If maxSize is zero, the buffer size is not limited.
// Otherwise writes that do not fit are truncated and return ErrBufferFull.
func NewBufferWriter(maxSize int) *BufferWriter {
	return &BufferWriter{
		lock:    &sync.Mutex{},
		maxSize: maxSize,
		written: make(chan struct{}, 1),
	}
}

func (bw *BufferWriter) Write(p []byte) (int, error) {
	bw.lock.Lock()
	defer bw.lock.Unlock()

	switch {
	case bw.failWith != nil:
		return 0, bw.failWith
	case bw.closed:
		return 0, io.ErrClosedPipe
	}

	toWrite := p
	var err error
	if bw.maxSize > 0 && len(bw.data)+len(p) > bw.maxSize {
		toWrite = p[:bw.maxSize-len(bw.data)]
		err = ErrBufferFull
	}

	if len(toWrite) > 0 {
		bw.chunks = append(bw.chunks, Chunk{
			Offset:    len(bw.data),
			Length:    len(toWrite),
			Timestamp: time.Now(),
		})
		bw.data = append(bw.data, toWrite...)
	}

	select {
	case bw.written <- struct{}{}:
	default:
	}

	return len(toWrite), err
}

// Makes all subsequent writes fail with the given error.
func (bw *BufferWriter) FailWith(err error) {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	bw.failWith = err
}

func (bw *BufferWriter) Bytes() []byte {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return bytes.Clone(bw.data)
}

func (bw *BufferWriter) String() string {
	return string(bw.Bytes())
}

func (bw *BufferWriter) Close() error {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	bw.closed = true
	return nil
}

func (bw *BufferWriter) Closed() bool {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return bw.closed
}

func (bw *BufferWriter) Chunks() []Chunk {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	if bw.chunks == nil {
		return nil
	}
	return append([]Chunk{}, bw.chunks...)
}

// Returns a channel that receives a value (coalesced) after each Write() call.
func (bw *BufferWriter) Written() <-chan struct{} {
	return bw.written
}

var _ io.WriteCloser = (*BufferWriter)(nil)
