/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package stdio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/microsoft/gdbmi/pkg/resiliency"
)

// How long to wait before retrying a write that would block.
const wouldBlockRetryDelay = 10 * time.Millisecond

var ErrWriterClosed = errors.New("writer is closed")

type WriterOptions struct {
	// Used for logging.
	Name string

	// Called after each flush attempt with the bytes that were written (possibly none) and the write error, if any.
	// Calls are sequential and follow the order of the data.
	OnFlushed func(flushed []byte, err error)

	// Called once when the channel fails permanently.
	OnFailed func(err error)
}

// Writer buffers outgoing data and flushes it to a byte channel without blocking the caller.
//
// Write() appends to the pending buffer. If no flush is in flight, a one-shot flush goroutine ("watcher")
// is started. The watcher writes a snapshot of the pending data, consumes what was written, and if more data
// is pending by then, starts a new watcher. Data is written in the order it was submitted.
// A write error is permanent: the pending data is kept, no more watchers are started and further writes fail.
type Writer struct {
	target io.Writer
	opts   WriterOptions
	log    logr.Logger

	lock     *sync.Mutex
	pending  *bytes.Buffer
	flushing bool
	idle     chan struct{} // Closed when no watcher is in flight
	err      error
	closed   bool
}

func NewWriter(target io.Writer, opts WriterOptions, log logr.Logger) *Writer {
	idle := make(chan struct{})
	close(idle)

	return &Writer{
		target:  target,
		opts:    opts,
		log:     log.WithValues("Channel", opts.Name),
		lock:    &sync.Mutex{},
		pending: new(bytes.Buffer),
		idle:    idle,
	}
}

// Write queues p for writing. It never blocks on the underlying channel.
func (w *Writer) Write(p []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	switch {
	case w.closed:
		return 0, ErrWriterClosed
	case w.err != nil:
		return 0, w.err
	}

	n, _ := w.pending.Write(p) // bytes.Buffer.Write() always returns nil error
	if !w.flushing {
		w.flushing = true
		w.idle = make(chan struct{})
		w.arm(0)
	}
	return n, nil
}

// PendingBytes returns the number of bytes queued but not written yet.
func (w *Writer) PendingBytes() int {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.pending.Len()
}

// Consume removes n bytes from the beginning of the pending buffer.
// Used by the watcher to report how much was written.
func (w *Writer) Consume(n int) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.pending.Next(n)
}

// Err returns the permanent write error, if any.
func (w *Writer) Err() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.err
}

// Flush waits until all pending data is written, the writer fails, or the context is done.
func (w *Writer) Flush(ctx context.Context) error {
	w.lock.Lock()
	idle := w.idle
	w.lock.Unlock()

	select {
	case <-idle:
		return w.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the writer. Pending data is dropped. If the target is an io.Closer, it is closed too.
func (w *Writer) Close() error {
	w.lock.Lock()
	if w.closed {
		w.lock.Unlock()
		return nil
	}
	w.closed = true
	w.pending.Reset()
	w.lock.Unlock()

	if c, isCloser := w.target.(io.Closer); isCloser {
		return c.Close()
	}
	return nil
}

// Starts a new watcher. Must be called with the lock held.
func (w *Writer) arm(delay time.Duration) {
	if delay > 0 {
		time.AfterFunc(delay, w.watch)
	} else {
		go w.watch()
	}
}

func (w *Writer) watch() {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			w.fail(resiliency.MakePanicError(panicVal, w.log))
		}
	}()

	w.lock.Lock()
	if w.closed {
		w.finishFlushing()
		w.lock.Unlock()
		return
	}
	snapshot := bytes.Clone(w.pending.Bytes())
	w.lock.Unlock()

	n, writeErr := w.target.Write(snapshot)
	if n < 0 || n > len(snapshot) {
		n = 0
	}
	w.Consume(n)

	wouldBlock := isWouldBlock(writeErr)
	if wouldBlock {
		writeErr = nil
	} else if writeErr == nil && n < len(snapshot) {
		writeErr = io.ErrShortWrite
	}
	writeErr = classifyChannelError(writeErr)

	if w.opts.OnFlushed != nil {
		w.opts.OnFlushed(snapshot[:n], writeErr)
	}

	if writeErr != nil {
		w.fail(writeErr)
		return
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	switch {
	case w.closed || w.pending.Len() == 0:
		w.finishFlushing()
	case wouldBlock:
		w.arm(wouldBlockRetryDelay)
	default:
		w.log.V(2).Info("More data pending, re-arming", "Pending", w.pending.Len())
		w.arm(0)
	}
}

func (w *Writer) fail(err error) {
	w.lock.Lock()
	notify := !w.closed && w.err == nil
	if w.err == nil {
		w.err = err
	}
	w.finishFlushing()
	w.lock.Unlock()

	if notify {
		w.log.Error(err, "Write failed, no more data will be written")
		if w.opts.OnFailed != nil {
			w.opts.OnFailed(err)
		}
	}
}

// Must be called with the lock held.
func (w *Writer) finishFlushing() {
	if w.flushing {
		w.flushing = false
		close(w.idle)
	}
}

var _ io.WriteCloser = (*Writer)(nil)
