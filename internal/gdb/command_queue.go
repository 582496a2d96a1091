/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/microsoft/gdbmi/internal/mi"
	"github.com/microsoft/gdbmi/internal/stdio"
)

// Scope says which execution context qualifiers are added to a command.
type Scope int

const (
	// The command is sent as-is.
	ScopeNone Scope = iota

	// The command gets --thread <id> if a thread is selected.
	ScopeThread

	// The command gets --thread <id>, and --frame <id> if the debuggee is stopped and a frame is known.
	ScopeFrame
)

// The command that asks GDB to exit.
const gdbExitCommand = "-gdb-exit"

// Hooks the owning session installs when it opens the queue.
type queueHooks struct {
	// A command was written to the pending buffer.
	submitted func()

	// The -gdb-exit command was submitted.
	exitRequested func()

	// The command channel failed permanently.
	failed func(err error)
}

// CommandQueue serializes outgoing commands to the debugger.
// Commands are decorated with thread/frame qualifiers, terminated with a newline and handed to a stdio.Writer,
// which flushes them in submission order.
// The queue also counts result records owed by the debugger: one per flushed command line,
// minus one per result record received.
type CommandQueue struct {
	lock    *sync.Mutex
	writer  *stdio.Writer
	refusal error // If set, submits fail with this error.
	hooks   queueHooks

	thread  string
	frame   string
	stopped bool

	owed *resultsOwed
	log  logr.Logger
}

// Counts result records owed by the debugger.
// A result can be parsed before the writer reports the flush of its command (the reader and the writer run
// on different goroutines). Such early results are remembered and offset against the next flush.
type resultsOwed struct {
	lock  sync.Mutex
	owed  int
	early int
}

func (ro *resultsOwed) flushed(lines int) {
	ro.lock.Lock()
	defer ro.lock.Unlock()
	absorbed := min(lines, ro.early)
	ro.early -= absorbed
	ro.owed += lines - absorbed
}

func (ro *resultsOwed) received() {
	ro.lock.Lock()
	defer ro.lock.Unlock()
	if ro.owed > 0 {
		ro.owed--
	} else {
		ro.early++
	}
}

func (ro *resultsOwed) get() int {
	ro.lock.Lock()
	defer ro.lock.Unlock()
	return ro.owed
}

func (ro *resultsOwed) reset() {
	ro.lock.Lock()
	defer ro.lock.Unlock()
	ro.owed = 0
	ro.early = 0
}

func NewCommandQueue(log logr.Logger) *CommandQueue {
	return &CommandQueue{
		lock:    &sync.Mutex{},
		refusal: ErrQueueClosed,
		owed:    &resultsOwed{},
		log:     log.WithName("command-queue"),
	}
}

// Submit queues a command. It does not wait for the command to be written.
func (q *CommandQueue) Submit(scope Scope, text string) error {
	return q.SubmitToken(scope, "", text)
}

// SubmitToken queues a command prefixed with the given token. GDB echoes the token on the result record.
func (q *CommandQueue) SubmitToken(scope Scope, token string, text string) error {
	text = strings.TrimRight(text, "\r\n")
	textToken, bare := splitTextToken(text)
	if strings.TrimSpace(bare) == "" || strings.ContainsAny(text, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, text)
	}

	q.lock.Lock()
	if q.refusal != nil {
		err := q.refusal
		q.lock.Unlock()
		return err
	}

	line := token + textToken + q.decorate(scope, bare) + "\n"
	if _, writeErr := q.writer.Write([]byte(line)); writeErr != nil {
		q.lock.Unlock()
		return fmt.Errorf("%w: %w", ErrQueueClosed, writeErr)
	}

	isExit := commandName(bare) == gdbExitCommand
	if isExit {
		q.refusal = ErrSessionKilling
	}
	hooks := q.hooks
	q.lock.Unlock()

	q.log.V(2).Info("Command queued", "Command", strings.TrimSuffix(line, "\n"))

	if hooks.submitted != nil {
		hooks.submitted()
	}
	if isExit && hooks.exitRequested != nil {
		hooks.exitRequested()
	}
	return nil
}

// Inserts the thread/frame qualifiers after the command name. Must be called with the lock held.
func (q *CommandQueue) decorate(scope Scope, text string) string {
	if scope == ScopeNone || q.thread == "" {
		return text
	}

	name := commandName(text)
	rest := text[len(name):]

	var b strings.Builder
	b.WriteString(name)
	b.WriteString(" --thread ")
	b.WriteString(q.thread)
	if scope == ScopeFrame && q.stopped && q.frame != "" {
		b.WriteString(" --frame ")
		b.WriteString(q.frame)
	}
	b.WriteString(rest)
	return b.String()
}

// Separates a token written as part of the command text ("5-gdb-exit") from the command itself.
// Leading blanks are dropped.
func splitTextToken(text string) (textToken string, bare string) {
	text = strings.TrimLeft(text, " \t")
	_, bare, _ = mi.StripToken(text)
	return text[:len(text)-len(bare)], bare
}

func commandName(text string) string {
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		return text[:i]
	}
	return text
}

// SetThread selects the thread used for thread-scoped commands. Empty string clears the selection.
func (q *CommandQueue) SetThread(id string) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.thread = id
}

// SetFrame selects the frame used for frame-scoped commands. Empty string clears the selection.
func (q *CommandQueue) SetFrame(id string) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.frame = id
}

// SetStopped records whether the debuggee is stopped. Frame qualifiers are only added while it is.
func (q *CommandQueue) SetStopped(stopped bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.stopped = stopped
}

func (q *CommandQueue) Thread() string {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.thread
}

func (q *CommandQueue) Frame() string {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.frame
}

func (q *CommandQueue) Stopped() bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.stopped
}

// ResultsOwed returns the number of flushed commands that have not been answered with a result record yet.
func (q *CommandQueue) ResultsOwed() int {
	return q.owed.get()
}

// ResultReceived records a result record; the owed count never goes below zero.
func (q *CommandQueue) ResultReceived() {
	q.owed.received()
}

// PendingBytes returns the number of command bytes not written to the debugger yet.
func (q *CommandQueue) PendingBytes() int {
	q.lock.Lock()
	w := q.writer
	q.lock.Unlock()

	if w == nil {
		return 0
	}
	return w.PendingBytes()
}

// Opens the queue for a new session, writing commands to the given channel.
func (q *CommandQueue) open(channel io.Writer, hooks queueHooks) {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.writer = stdio.NewWriter(channel, stdio.WriterOptions{
		Name:      "stdin",
		OnFlushed: q.onFlushed,
		OnFailed:  q.onFailed,
	}, q.log)
	q.hooks = hooks
	q.refusal = nil
	q.owed.reset()
}

// Stops accepting commands; submits fail with the given error from now on.
func (q *CommandQueue) refuse(err error) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.refusal == nil {
		q.refusal = err
	}
}

// Closes the command channel and resets the queue state.
func (q *CommandQueue) close() error {
	q.lock.Lock()
	w := q.writer
	q.writer = nil
	q.refusal = ErrQueueClosed
	q.hooks = queueHooks{}
	q.thread = ""
	q.frame = ""
	q.stopped = false
	q.lock.Unlock()

	q.owed.reset()
	if w != nil {
		return w.Close()
	}
	return nil
}

func (q *CommandQueue) onFlushed(flushed []byte, _ error) {
	if lines := bytes.Count(flushed, []byte{'\n'}); lines > 0 {
		q.owed.flushed(lines)
	}
}

func (q *CommandQueue) onFailed(err error) {
	q.lock.Lock()
	q.refusal = fmt.Errorf("%w: %w", ErrQueueClosed, err)
	failed := q.hooks.failed
	q.lock.Unlock()

	if failed != nil {
		failed(err)
	}
}
