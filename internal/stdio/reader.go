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
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/microsoft/gdbmi/pkg/resiliency"
)

const (
	DefaultStdoutMaxLineLength = 1024 * 1024
	DefaultStderrMaxLineLength = 64 * 1024
	DefaultChunkSize           = 4 * 1024
	DefaultEmptyReadThreshold  = 200
	DefaultPollInterval        = 50 * time.Millisecond

	readBufferSize = 32 * 1024

	// If the line buffer grows larger than this, it is dropped after delivery instead of being reused.
	lineRecycleThreshold = 64 * 1024
)

type Framing int

const (
	// Deliver one line at a time.
	FramingLines Framing = iota

	// Deliver data as it arrives, up to ChunkSize bytes at a time.
	FramingChunked
)

type Mode int32

const (
	// The reader issues the next read as soon as the previous one completes.
	ModeReadiness Mode = iota

	// The reader issues reads on a fixed timer. Entered after too many consecutive empty reads; never left.
	ModePolling
)

func (m Mode) String() string {
	if m == ModePolling {
		return "polling"
	}
	return "readiness"
}

// Condition describes the state of the channel at the time of a callback invocation.
type Condition uint8

const (
	ConditionData  Condition = 1 << iota // The callback carries data
	ConditionEOF                         // The channel reached end of stream
	ConditionError                       // The channel failed
)

func (c Condition) Has(flag Condition) bool {
	return c&flag != 0
}

// Terminal reports whether the condition ends the stream (no further callbacks will be made).
func (c Condition) Terminal() bool {
	return c.Has(ConditionEOF) || c.Has(ConditionError)
}

// ReadCallback receives data from a Reader.
//
// In line mode data holds one line without the line terminator; err wraps ErrBinaryZero, ErrLineTooLong or both
// if the line is malformed. When cond is terminal, err holds io.EOF or the channel error, and data holds
// the partial line accumulated before the stream ended (possibly empty).
//
// The data slice is only valid for the duration of the call. Returning false stops the reader.
type ReadCallback func(data []byte, cond Condition, err error) bool

type ReaderOptions struct {
	// Used for logging.
	Name string

	Framing Framing

	// Line mode only. Zero means DefaultStdoutMaxLineLength.
	MaxLineLength int

	// Chunked mode only. Zero means DefaultChunkSize.
	ChunkSize int

	// Number of consecutive reads returning no data that switches the reader to polling mode.
	// Zero means DefaultEmptyReadThreshold.
	EmptyReadThreshold int

	// Read interval in polling mode. Zero means DefaultPollInterval.
	PollInterval time.Duration
}

func (o ReaderOptions) withDefaults() ReaderOptions {
	if o.MaxLineLength <= 0 {
		o.MaxLineLength = DefaultStdoutMaxLineLength
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.EmptyReadThreshold <= 0 {
		o.EmptyReadThreshold = DefaultEmptyReadThreshold
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// Reader reads from a byte channel on a dedicated goroutine and delivers lines (or chunks) to a callback.
// Callbacks are made sequentially from the reader goroutine.
type Reader struct {
	source    io.Reader
	opts      ReaderOptions
	callback  ReadCallback
	log       logr.Logger
	mode      *atomic.Int32
	startOnce *sync.Once
	done      chan struct{}

	// Reader goroutine state
	line       []byte
	discarding bool // Skipping the remainder of an overlong line
	emptyReads int
}

func NewReader(source io.Reader, opts ReaderOptions, callback ReadCallback, log logr.Logger) *Reader {
	opts = opts.withDefaults()
	return &Reader{
		source:    source,
		opts:      opts,
		callback:  callback,
		log:       log.WithValues("Channel", opts.Name),
		mode:      &atomic.Int32{},
		startOnce: &sync.Once{},
		done:      make(chan struct{}),
	}
}

// Start begins reading. Cancelling the context stops the reader before its next read;
// a read that is already blocked is only interrupted by closing the source.
func (r *Reader) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.run(ctx)
	})
}

// Done returns a channel that is closed when the reader goroutine exits.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

func (r *Reader) Mode() Mode {
	return Mode(r.mode.Load())
}

func (r *Reader) run(ctx context.Context) {
	defer close(r.done)
	defer func() {
		if panicVal := recover(); panicVal != nil {
			_ = resiliency.MakePanicError(panicVal, r.log)
		}
	}()

	bufSize := readBufferSize
	if r.opts.Framing == FramingChunked {
		bufSize = r.opts.ChunkSize
	}
	buf := make([]byte, bufSize)

	var pollTimer *time.Ticker
	defer func() {
		if pollTimer != nil {
			pollTimer.Stop()
		}
	}()

	for {
		if pollTimer != nil {
			select {
			case <-pollTimer.C:
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			r.finish(ConditionError, ctx.Err())
			return
		}

		n, err := r.source.Read(buf)

		if n > 0 {
			r.emptyReads = 0
			if !r.consume(buf[:n]) {
				r.log.V(1).Info("Reader callback unregistered the channel")
				return
			}
		}

		switch {
		case err == nil && n > 0:
			continue

		case err == nil, isWouldBlock(err):
			if n > 0 {
				continue
			}
			r.emptyReads++
			if r.emptyReads >= r.opts.EmptyReadThreshold && pollTimer == nil {
				r.log.V(1).Info("Too many empty reads, switching to polling",
					"EmptyReads", r.emptyReads,
					"PollInterval", r.opts.PollInterval,
				)
				r.mode.Store(int32(ModePolling))
				pollTimer = time.NewTicker(r.opts.PollInterval)
			}

		case errors.Is(err, io.EOF):
			r.finish(ConditionEOF, io.EOF)
			return

		default:
			r.finish(ConditionError, classifyChannelError(err))
			return
		}
	}
}

// Processes newly read data. Returns false if the callback asked to stop.
func (r *Reader) consume(data []byte) bool {
	if r.opts.Framing == FramingChunked {
		return r.callback(data, ConditionData, nil)
	}

	for len(data) > 0 {
		eol := bytes.IndexByte(data, '\n')

		if r.discarding {
			if eol < 0 {
				return true
			}
			data = data[eol+1:]
			r.discarding = false
			continue
		}

		segment := data
		if eol >= 0 {
			segment = data[:eol]
		}

		room := r.opts.MaxLineLength - len(r.line)
		if len(segment) > room {
			r.line = append(r.line, segment[:room]...)
			r.log.V(1).Info("Line too long, truncating", "MaxLineLength", r.opts.MaxLineLength)
			if !r.deliverLine(ConditionData, ErrLineTooLong) {
				return false
			}
			if eol >= 0 {
				data = data[eol+1:]
			} else {
				r.discarding = true
				data = nil
			}
			continue
		}

		r.line = append(r.line, segment...)
		if eol < 0 {
			return true
		}
		data = data[eol+1:]

		if !r.deliverLine(ConditionData, nil) {
			return false
		}
	}

	return true
}

func (r *Reader) deliverLine(cond Condition, err error) bool {
	line := bytes.TrimSuffix(r.line, []byte{'\r'})
	if bytes.IndexByte(line, 0) >= 0 {
		err = errors.Join(ErrBinaryZero, err)
	}
	return r.deliver(line, cond, err)
}

func (r *Reader) deliver(data []byte, cond Condition, err error) bool {
	retval := r.callback(data, cond, err)
	if cap(r.line) > lineRecycleThreshold {
		r.line = nil
	} else {
		r.line = r.line[:0]
	}
	return retval
}

// Makes the terminal delivery, flushing a partial line if there is one.
func (r *Reader) finish(cond Condition, err error) {
	r.log.V(1).Info("Channel reached end of stream", "Error", err)

	if r.opts.Framing == FramingLines && len(r.line) > 0 && !r.discarding {
		_ = r.deliverLine(cond|ConditionData, err)
		return
	}
	_ = r.deliver(nil, cond, err)
}
