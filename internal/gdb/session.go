/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package gdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/smallnest/chanx"

	"github.com/microsoft/gdbmi/internal/mi"
	"github.com/microsoft/gdbmi/internal/stdio"
	"github.com/microsoft/gdbmi/pkg/process"
	"github.com/microsoft/gdbmi/pkg/resiliency"
)

type State int32

const (
	StateInactive State = iota
	StateActive
	StateKilling
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateKilling:
		return "Killing"
	default:
		return "Inactive"
	}
}

// Console output kept by the session is capped at this size; older output is dropped.
const maxSessionOutput = 1024 * 1024

type eventKind int

const (
	eventStarted eventKind = iota
	eventOutputLine
	eventErrorLine
	eventChannelDone
	eventProcessExited
	eventWriteFailed
	eventDrainTick
)

type sessionEvent struct {
	kind    eventKind
	channel string
	text    string
	err     error
	exit    process.ProcessExitInfo
}

// State of a single debugger run, from Start() until the session ends.
type sessionRun struct {
	id       string
	log      logr.Logger
	launched *Launched
	inbox    *chanx.UnboundedChan[sessionEvent]
	cancel   context.CancelFunc
	finished chan struct{}
	reason   EndReason // Valid after finished is closed

	// Protected by the session lock
	exitRequested bool
	killRequested bool

	idle                  *atomic.Bool
	waitingForFirstPrompt *atomic.Bool

	// Only accessed by the dispatch goroutine
	openChannels    int
	exited          bool
	exitInfo        process.ProcessExitInfo
	drainDeadline   time.Time
	drainTimerArmed bool
}

// Session owns a debugger process, its channels, the command queue and the parser state.
// At most one debugger run is active per Session; a new one can be started once the previous one ended.
type Session struct {
	cfg      SessionConfig
	launcher ProcessLauncher
	router   *Router
	queue    *CommandQueue
	parser   *mi.Parser
	events   Events
	log      logr.Logger

	lock       *sync.Mutex
	state      State
	run        *sessionRun
	lastReason *EndReason

	outputLock *sync.Mutex
	output     []byte
}

func NewSession(cfg SessionConfig, launcher ProcessLauncher, router *Router, events Events, log logr.Logger) *Session {
	cfg = cfg.withDefaults()
	log = log.WithName("session")

	return &Session{
		cfg:        cfg,
		launcher:   launcher,
		router:     router,
		queue:      NewCommandQueue(log),
		parser:     mi.NewParser(cfg.NewlineSubstitute),
		events:     events,
		log:        log,
		lock:       &sync.Mutex{},
		state:      StateInactive,
		outputLock: &sync.Mutex{},
	}
}

// Start launches the debugger. It fails with ErrSessionBusy unless the session is inactive,
// and with a *LaunchError if the debugger cannot be started (the session stays inactive).
// Cancelling the context terminates the session.
func (s *Session) Start(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state != StateInactive {
		return fmt.Errorf("%w: session is %s", ErrSessionBusy, s.state)
	}

	s.router.Freeze()

	runCtx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	run := &sessionRun{
		id:                    id,
		log:                   s.log.WithValues("SessionID", id),
		inbox:                 chanx.NewUnboundedChan[sessionEvent](runCtx, 16),
		cancel:                cancel,
		finished:              make(chan struct{}),
		idle:                  &atomic.Bool{},
		waitingForFirstPrompt: &atomic.Bool{},
	}

	spec := s.cfg.Launch
	spec.Stdio = StdioAll
	exitHandler := process.ProcessExitHandlerFunc(func(pid process.Pid_t, exitCode int32, err error) {
		s.post(run, sessionEvent{
			kind: eventProcessExited,
			exit: process.ProcessExitInfo{PID: pid, ExitCode: exitCode, Err: err},
		})
	})

	launched, launchErr := s.launcher.Launch(runCtx, spec, exitHandler)
	if launchErr != nil {
		cancel()
		s.log.Error(launchErr, "Could not start the debugger")
		return launchErr
	}
	run.launched = launched

	s.clearOutput()
	run.waitingForFirstPrompt.Store(true)
	if s.cfg.IgnoreInterrupt {
		signal.Ignore(os.Interrupt)
	}

	s.queue.open(launched.Stdin, queueHooks{
		submitted:     func() { run.idle.Store(false) },
		exitRequested: func() { s.exitRequested(run) },
		failed:        func(err error) { s.post(run, sessionEvent{kind: eventWriteFailed, err: err}) },
	})

	// Queued before any reader can post, so OnSessionStarted precedes everything else.
	s.post(run, sessionEvent{kind: eventStarted})

	if launched.Stdout != nil {
		run.openChannels++
		s.startReader(runCtx, run, "stdout", launched.Stdout, s.cfg.StdoutMaxLineLength, eventOutputLine)
	}
	if launched.Stderr != nil {
		run.openChannels++
		s.startReader(runCtx, run, "stderr", launched.Stderr, s.cfg.StderrMaxLineLength, eventErrorLine)
	}

	s.state = StateActive
	s.run = run
	go s.dispatch(run)
	launched.StartWaiting()

	stopTerminating := context.AfterFunc(ctx, func() {
		run.log.V(1).Info("Session context is done, terminating")
		_ = s.terminateRun(run)
	})
	go func() {
		<-run.finished
		stopTerminating()
	}()

	return nil
}

func (s *Session) startReader(ctx context.Context, run *sessionRun, name string, source io.Reader, maxLineLength int, kind eventKind) {
	opts := stdio.ReaderOptions{
		Name:               name,
		Framing:            stdio.FramingLines,
		MaxLineLength:      maxLineLength,
		EmptyReadThreshold: s.cfg.EmptyReadThreshold,
		PollInterval:       s.cfg.PollInterval,
	}

	reader := stdio.NewReader(source, opts, func(data []byte, cond stdio.Condition, err error) bool {
		if cond.Has(stdio.ConditionData) && (len(data) > 0 || !cond.Terminal()) {
			ev := sessionEvent{kind: kind, channel: name, text: string(data)}
			if stdio.IsProtocolError(err) {
				ev.err = err
			}
			s.post(run, ev)
		}
		if cond.Terminal() {
			s.post(run, sessionEvent{kind: eventChannelDone, channel: name, err: err})
		}
		return true
	}, run.log)

	reader.Start(ctx)
}

func (s *Session) post(run *sessionRun, ev sessionEvent) {
	select {
	case run.inbox.In <- ev:
	case <-run.finished:
		// The session has ended; late events (e.g. from readers unblocked by closing the channels) are dropped.
	}
}

func (s *Session) dispatch(run *sessionRun) {
	for ev := range run.inbox.Out {
		if s.handleEvent(run, ev) {
			return
		}
	}
}

// Handles one event. Returns true if the session ended.
func (s *Session) handleEvent(run *sessionRun, ev sessionEvent) (ended bool) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			err := resiliency.MakePanicError(panicVal, run.log)
			s.events.diagnostic(fmt.Sprintf("Internal error while processing debugger output: %v", err))
			ended = false
		}
	}()

	switch ev.kind {
	case eventStarted:
		run.log.Info("Debugger session started", "Pid", run.launched.Handle.Pid)
		s.events.sessionStarted(run.id)

	case eventOutputLine:
		s.processOutputLine(run, ev)

	case eventErrorLine:
		if ev.err != nil {
			s.events.diagnostic(fmt.Sprintf("%v: %s", ev.err, ev.text))
		} else {
			s.events.diagnostic(ev.text)
		}

	case eventChannelDone:
		run.openChannels--
		if ev.err != nil && !errors.Is(ev.err, io.EOF) && !run.exited {
			run.log.Error(ev.err, "Debugger channel failed", "Channel", ev.channel)
			s.events.diagnostic(fmt.Sprintf("Debugger %s failed: %v", ev.channel, ev.err))
			s.abort(run)
		} else {
			run.log.V(1).Info("Debugger channel closed", "Channel", ev.channel)
		}
		return s.tryFinalize(run)

	case eventProcessExited:
		run.exited = true
		run.exitInfo = ev.exit
		run.log.V(1).Info("Debugger process exited", "ExitCode", ev.exit.ExitCode, "Error", ev.exit.Err)
		return s.tryFinalize(run)

	case eventWriteFailed:
		s.events.diagnostic(fmt.Sprintf("Could not send commands to the debugger: %v", ev.err))
		s.abort(run)

	case eventDrainTick:
		run.drainTimerArmed = false
		return s.tryFinalize(run)
	}

	return false
}

func (s *Session) processOutputLine(run *sessionRun, ev sessionEvent) {
	if ev.err != nil {
		run.log.V(1).Info("Malformed debugger output", "Error", ev.err.Error())
		s.events.diagnostic(fmt.Sprintf("Malformed debugger output (%v): %q", ev.err, ev.text))
		return
	}

	line, parseErr := s.parser.ParseLine(ev.text)
	if line.Kind == mi.ResultRecord {
		s.queue.ResultReceived()
	}
	if parseErr != nil {
		run.log.V(1).Info("Could not parse debugger output", "Line", ev.text, "Error", parseErr.Error())
		s.events.diagnostic(fmt.Sprintf("Could not parse debugger output (%v): %s", parseErr, ev.text))
		return
	}

	switch line.Kind {
	case mi.Prompt:
		run.waitingForFirstPrompt.Store(false)
		if s.queue.ResultsOwed() == 0 && s.queue.PendingBytes() == 0 {
			run.idle.Store(true)
			s.events.idle()
		}
	case mi.ConsoleStream:
		s.appendOutput(line.StreamText())
	}

	s.router.Dispatch(line)
}

// Called when -gdb-exit was queued. The session ends cleanly once the debugger exits.
func (s *Session) exitRequested(run *sessionRun) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.run == run && s.state == StateActive {
		s.state = StateKilling
		run.exitRequested = true
		run.log.V(1).Info("Debugger exit requested")
	}
}

// Moves the session to Killing because of a channel failure and stops the debugger.
func (s *Session) abort(run *sessionRun) {
	s.lock.Lock()
	if s.run != run || s.state != StateActive {
		s.lock.Unlock()
		return
	}
	s.state = StateKilling
	s.lock.Unlock()

	s.queue.refuse(ErrSessionKilling)
	go func() {
		if stopErr := run.launched.Stop(); stopErr != nil {
			run.log.Error(stopErr, "Could not stop the debugger process")
		}
	}()
}

// Ends the session if the process exited and all output was drained. Returns true if the session ended.
func (s *Session) tryFinalize(run *sessionRun) bool {
	if !run.exited {
		return false
	}

	if run.openChannels > 0 {
		now := time.Now()
		if run.drainDeadline.IsZero() {
			run.drainDeadline = now.Add(s.cfg.DrainTimeout)
		}
		if now.Before(run.drainDeadline) {
			if !run.drainTimerArmed {
				run.drainTimerArmed = true
				time.AfterFunc(s.cfg.DrainInterval, func() {
					s.post(run, sessionEvent{kind: eventDrainTick})
				})
			}
			return false
		}

		// Typically means the debuggee inherited the channels and is still running.
		run.log.Info("Debugger output channels are still open after the process exited, ending the session",
			"OpenChannels", run.openChannels,
			"DrainTimeout", s.cfg.DrainTimeout,
		)
	}

	s.finalize(run)
	return true
}

func (s *Session) finalize(run *sessionRun) {
	if closeErr := s.queue.close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		run.log.V(1).Info("Error closing debugger stdin", "Error", closeErr.Error())
	}
	if closeErr := run.launched.CloseStreams(); closeErr != nil {
		run.log.V(1).Info("Error closing debugger channels", "Error", closeErr.Error())
	}
	if s.cfg.IgnoreInterrupt {
		signal.Reset(os.Interrupt)
	}

	s.lock.Lock()
	reason := EndReason{ExitCode: run.exitInfo.ExitCode, Err: run.exitInfo.Err}
	switch {
	case run.killRequested:
		reason.Kind = EndKilled
	case run.exitRequested:
		reason.Kind = EndClean
	default:
		reason.Kind = EndCrashed
	}
	s.state = StateInactive
	s.run = nil
	s.lastReason = &reason
	s.lock.Unlock()

	run.reason = reason
	run.log.Info("Debugger session ended", "Reason", reason.String())
	s.events.sessionEnded(reason)

	close(run.finished)
	run.cancel()
}

// Terminate stops the debugger process. The session ends (with EndKilled) once the process exit is observed.
func (s *Session) Terminate() error {
	s.lock.Lock()
	run := s.run
	s.lock.Unlock()

	if run == nil {
		return ErrSessionInactive
	}
	return s.terminateRun(run)
}

func (s *Session) terminateRun(run *sessionRun) error {
	s.lock.Lock()
	if s.run != run {
		s.lock.Unlock()
		return ErrSessionInactive
	}
	run.killRequested = true
	s.state = StateKilling
	s.lock.Unlock()

	s.queue.refuse(ErrSessionKilling)
	run.log.Info("Terminating debugger session")

	if stopErr := run.launched.Stop(); stopErr != nil {
		return fmt.Errorf("could not stop the debugger process: %w", stopErr)
	}
	return nil
}

// Interrupt asks the debugger to interrupt the running debuggee. The session stays active.
func (s *Session) Interrupt() error {
	s.lock.Lock()
	run := s.run
	state := s.state
	s.lock.Unlock()

	if run == nil || state != StateActive {
		return ErrSessionInactive
	}
	return run.launched.Interrupt()
}

// Submit queues a command for the debugger. Submitting -gdb-exit moves the session to Killing.
func (s *Session) Submit(scope Scope, text string) error {
	return s.SubmitToken(scope, "", text)
}

// SubmitToken queues a command prefixed with a token, which GDB echoes on the corresponding result record.
func (s *Session) SubmitToken(scope Scope, token string, text string) error {
	switch s.State() {
	case StateInactive:
		return ErrSessionInactive
	case StateKilling:
		return ErrSessionKilling
	}
	return s.queue.SubmitToken(scope, token, text)
}

// Wait blocks until the current debugger run ends and returns the reason.
// If no run is active, it returns the reason of the last run, or ErrSessionInactive if there was none.
func (s *Session) Wait(ctx context.Context) (EndReason, error) {
	s.lock.Lock()
	run := s.run
	last := s.lastReason
	s.lock.Unlock()

	if run == nil {
		if last == nil {
			return EndReason{}, ErrSessionInactive
		}
		return *last, nil
	}

	select {
	case <-run.finished:
		return run.reason, nil
	case <-ctx.Done():
		return EndReason{}, ctx.Err()
	}
}

func (s *Session) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// ID returns the identifier of the current run, or empty string if the session is inactive.
func (s *Session) ID() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.run == nil {
		return ""
	}
	return s.run.id
}

// Pid returns the process ID of the debugger, or process.UnknownPID if the session is inactive.
func (s *Session) Pid() process.Pid_t {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.run == nil {
		return process.UnknownPID
	}
	return s.run.launched.Handle.Pid
}

// Idle reports whether GDB printed its prompt with no command results owed, and nothing was submitted since.
func (s *Session) Idle() bool {
	s.lock.Lock()
	run := s.run
	s.lock.Unlock()
	return run != nil && run.idle.Load()
}

// WaitingForFirstPrompt reports whether the debugger has not printed its first prompt yet.
func (s *Session) WaitingForFirstPrompt() bool {
	s.lock.Lock()
	run := s.run
	s.lock.Unlock()
	return run != nil && run.waitingForFirstPrompt.Load()
}

// Queue returns the command queue, for feature code that tracks the selected thread and frame.
func (s *Session) Queue() *CommandQueue {
	return s.queue
}

func (s *Session) Router() *Router {
	return s.router
}

// Output returns the console stream text of the current (or last) run.
func (s *Session) Output() string {
	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	return string(s.output)
}

func (s *Session) clearOutput() {
	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	s.output = nil
}

func (s *Session) appendOutput(text string) {
	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	s.output = append(s.output, text...)
	if excess := len(s.output) - maxSessionOutput; excess > 0 {
		// Drop whole lines where possible.
		cut := excess
		if nl := strings.IndexByte(string(s.output[excess:]), '\n'); nl >= 0 {
			cut += nl + 1
		}
		s.output = append([]byte(nil), s.output[cut:]...)
	}
}
