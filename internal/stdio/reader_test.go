/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package stdio

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/microsoft/gdbmi/pkg/testutil"
)

const defaultReaderTestTimeout = 10 * time.Second

type delivery struct {
	data string
	cond Condition
	err  error
}

// Collects reader callbacks for inspection.
type deliveryRecorder struct {
	lock       sync.Mutex
	deliveries []delivery
	stopAfter  int // If non-zero, the callback returns false after this many deliveries
}

func (dr *deliveryRecorder) callback(data []byte, cond Condition, err error) bool {
	dr.lock.Lock()
	defer dr.lock.Unlock()
	dr.deliveries = append(dr.deliveries, delivery{data: string(data), cond: cond, err: err})
	return dr.stopAfter == 0 || len(dr.deliveries) < dr.stopAfter
}

func (dr *deliveryRecorder) get() []delivery {
	dr.lock.Lock()
	defer dr.lock.Unlock()
	return append([]delivery{}, dr.deliveries...)
}

func runReader(t *testing.T, tr *testutil.TestReader, opts ReaderOptions) (*Reader, *deliveryRecorder) {
	ctx, cancel := testutil.GetTestContext(t, defaultReaderTestTimeout)
	t.Cleanup(cancel)

	rec := &deliveryRecorder{}
	r := NewReader(tr, opts, rec.callback, testutil.NewLogForTesting(t.Name()))
	r.Start(ctx)

	t.Cleanup(func() {
		_ = tr.Close()
		<-r.Done()
	})
	return r, rec
}

func waitDone(t *testing.T, r *Reader) {
	select {
	case <-r.Done():
	case <-time.After(defaultReaderTestTimeout):
		t.Fatal("reader did not finish in time")
	}
}

func TestReaderReassemblesLinesAcrossReads(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddChunk("ab", "c\n", "de\n")
	tr.AddError(io.EOF)

	r, rec := runReader(t, tr, ReaderOptions{Name: "stdout"})
	waitDone(t, r)

	deliveries := rec.get()
	require.Len(t, deliveries, 3)
	require.Equal(t, delivery{data: "abc", cond: ConditionData}, deliveries[0])
	require.Equal(t, delivery{data: "de", cond: ConditionData}, deliveries[1])

	// Terminal delivery is always made, empty if there is no partial line.
	require.Equal(t, "", deliveries[2].data)
	require.True(t, deliveries[2].cond.Has(ConditionEOF))
	require.False(t, deliveries[2].cond.Has(ConditionData))
	require.ErrorIs(t, deliveries[2].err, io.EOF)
}

func TestReaderStripsCarriageReturn(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddChunk("^done\r\n(gdb) \r\n", "a\rb\n")
	tr.AddError(io.EOF)

	r, rec := runReader(t, tr, ReaderOptions{})
	waitDone(t, r)

	deliveries := rec.get()
	require.Len(t, deliveries, 4)
	require.Equal(t, "^done", deliveries[0].data)
	require.Equal(t, "(gdb) ", deliveries[1].data)
	require.Equal(t, "a\rb", deliveries[2].data)
}

func TestReaderFlushesPartialLineOnError(t *testing.T) {
	t.Parallel()

	broken := errors.New("pipe broke")
	tr := testutil.NewTestReader()
	tr.AddChunk("complete\n", "partial")
	tr.AddError(broken)

	r, rec := runReader(t, tr, ReaderOptions{})
	waitDone(t, r)

	deliveries := rec.get()
	require.Len(t, deliveries, 2)
	require.Equal(t, "complete", deliveries[0].data)

	last := deliveries[1]
	require.Equal(t, "partial", last.data)
	require.True(t, last.cond.Has(ConditionData))
	require.True(t, last.cond.Has(ConditionError))
	require.True(t, last.cond.Terminal())
	require.ErrorIs(t, last.err, broken)
	require.ErrorIs(t, last.err, ErrChannelFailed)
}

func TestReaderFlushesPartialLineOnEOF(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddChunk("(gdb) ")
	tr.AddError(io.EOF)

	r, rec := runReader(t, tr, ReaderOptions{})
	waitDone(t, r)

	deliveries := rec.get()
	require.Len(t, deliveries, 1)
	require.Equal(t, "(gdb) ", deliveries[0].data)
	require.Equal(t, ConditionData|ConditionEOF, deliveries[0].cond)
}

func TestReaderReportsBinaryZero(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddChunk("bad\x00line\n", "good\n")
	tr.AddError(io.EOF)

	r, rec := runReader(t, tr, ReaderOptions{})
	waitDone(t, r)

	deliveries := rec.get()
	require.Len(t, deliveries, 3)
	require.Equal(t, "bad\x00line", deliveries[0].data)
	require.ErrorIs(t, deliveries[0].err, ErrBinaryZero)
	require.Contains(t, deliveries[0].err.Error(), "binary zero encountered")
	require.True(t, IsProtocolError(deliveries[0].err))

	require.Equal(t, "good", deliveries[1].data)
	require.NoError(t, deliveries[1].err)
}

func TestReaderTruncatesOverlongLines(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddChunk("0123456789", "abcdef", "ghi\nnext\n")
	tr.AddChunk(strings.Repeat("x", 8), "\n")
	tr.AddError(io.EOF)

	r, rec := runReader(t, tr, ReaderOptions{MaxLineLength: 8})
	waitDone(t, r)

	deliveries := rec.get()
	require.Len(t, deliveries, 4)

	require.Equal(t, "01234567", deliveries[0].data)
	require.ErrorIs(t, deliveries[0].err, ErrLineTooLong)

	// The remainder of the long line is discarded.
	require.Equal(t, "next", deliveries[1].data)
	require.NoError(t, deliveries[1].err)

	// A line of exactly the maximum length is fine.
	require.Equal(t, "xxxxxxxx", deliveries[2].data)
	require.NoError(t, deliveries[2].err)

	require.True(t, deliveries[3].cond.Has(ConditionEOF))
}

func TestReaderReportsBinaryZeroInTruncatedLine(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddChunk("ab\x00defghijk\n", "ok\n")
	tr.AddError(io.EOF)

	r, rec := runReader(t, tr, ReaderOptions{MaxLineLength: 8})
	waitDone(t, r)

	deliveries := rec.get()
	require.Len(t, deliveries, 3)

	require.Equal(t, "ab\x00defgh", deliveries[0].data)
	require.ErrorIs(t, deliveries[0].err, ErrLineTooLong)
	require.ErrorIs(t, deliveries[0].err, ErrBinaryZero)

	require.Equal(t, "ok", deliveries[1].data)
	require.NoError(t, deliveries[1].err)
}

func TestReaderChunkedFraming(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddChunk("0123456789", "ab\ncd")
	tr.AddError(io.EOF)

	r, rec := runReader(t, tr, ReaderOptions{Framing: FramingChunked, ChunkSize: 4})
	waitDone(t, r)

	var data strings.Builder
	deliveries := rec.get()
	for _, d := range deliveries[:len(deliveries)-1] {
		require.LessOrEqual(t, len(d.data), 4)
		require.Equal(t, ConditionData, d.cond)
		data.WriteString(d.data)
	}
	require.Equal(t, "0123456789ab\ncd", data.String())
	require.True(t, deliveries[len(deliveries)-1].cond.Has(ConditionEOF))
}

func TestReaderSwitchesToPollingAfterEmptyReads(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddEmptyRead(5)
	tr.AddChunk("still works\n")
	tr.AddError(io.EOF)

	r, rec := runReader(t, tr, ReaderOptions{EmptyReadThreshold: 5, PollInterval: 5 * time.Millisecond})
	waitDone(t, r)

	require.Equal(t, ModePolling, r.Mode())
	deliveries := rec.get()
	require.Len(t, deliveries, 2)
	require.Equal(t, "still works", deliveries[0].data)
}

func TestReaderStaysInReadinessModeBelowThreshold(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddEmptyRead(4)
	tr.AddChunk("x\n")
	tr.AddEmptyRead(4)
	tr.AddError(io.EOF)

	r, _ := runReader(t, tr, ReaderOptions{EmptyReadThreshold: 5})
	waitDone(t, r)

	require.Equal(t, ModeReadiness, r.Mode())
}

func TestReaderStopsWhenCallbackReturnsFalse(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, defaultReaderTestTimeout)
	defer cancel()

	tr := testutil.NewTestReader()
	defer tr.Close()
	tr.AddChunk("one\ntwo\nthree\n")

	rec := &deliveryRecorder{stopAfter: 2}
	r := NewReader(tr, ReaderOptions{}, rec.callback, testutil.NewLogForTesting(t.Name()))
	r.Start(ctx)
	waitDone(t, r)

	deliveries := rec.get()
	require.Len(t, deliveries, 2)
	require.Equal(t, "two", deliveries[1].data)
}

func TestReaderReportsClosedChannel(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTestReader()
	tr.AddError(io.ErrClosedPipe)

	r, rec := runReader(t, tr, ReaderOptions{})
	waitDone(t, r)

	deliveries := rec.get()
	require.Len(t, deliveries, 1)
	require.True(t, deliveries[0].cond.Has(ConditionError))
	require.ErrorIs(t, deliveries[0].err, ErrChannelClosed)
	require.True(t, IsChannelError(deliveries[0].err))
}
