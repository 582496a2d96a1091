/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"sync/atomic"

	"github.com/microsoft/gdbmi/internal/gdb"
	"github.com/microsoft/gdbmi/internal/mi"
)

// The session creates its command queue; routes are registered before the session exists.
type queueRef struct {
	queue atomic.Pointer[gdb.CommandQueue]
}

func (qr *queueRef) set(q *gdb.CommandQueue) {
	qr.queue.Store(q)
}

func (qr *queueRef) get() *gdb.CommandQueue {
	return qr.queue.Load()
}

type printedRecord struct {
	Record  string    `json:"record"`
	Token   string    `json:"token,omitempty"`
	Results mi.Record `json:"results"`
}

type printedStream struct {
	Stream string `json:"stream"`
	Text   string `json:"text"`
}

var knownRecords = []string{
	"^done", "^running", "^connected", "^error", "^exit",
	"*stopped", "*running",
	"=thread-group-added", "=thread-group-removed", "=thread-group-started", "=thread-group-exited",
	"=thread-created", "=thread-exited", "=thread-selected",
	"=library-loaded", "=library-unloaded",
	"=breakpoint-created", "=breakpoint-modified", "=breakpoint-deleted",
	"=cmd-param-changed", "=memory-changed",
	"+download",
}

var streamNames = map[string]string{
	"~": "console",
	"@": "target",
	"&": "log",
}

// Registers the routes used by "gdbmi run": execution state tracking first, then printing of every record kind.
func registerRoutes(router *gdb.Router, printer *jsonLinePrinter, queue *queueRef) error {
	type route struct {
		prefix  string
		shape   gdb.TokenShape
		minArgs int
		handler gdb.Handler
	}

	printRecord := func(prefix string) gdb.Handler {
		return func(args mi.Record, token string, _ bool) {
			_ = printer.Print(printedRecord{Record: prefix, Token: token, Results: args})
		}
	}
	printStream := func(prefix string) gdb.Handler {
		return func(args mi.Record, _ string, _ bool) {
			text := ""
			if args.Len() > 0 {
				text = args.At(0).Value.Text()
			}
			_ = printer.Print(printedStream{Stream: streamNames[prefix], Text: text})
		}
	}

	routes := []route{
		{"*stopped", gdb.ShapeWildcard, 1, func(args mi.Record, token string, hasToken bool) {
			if q := queue.get(); q != nil {
				q.SetStopped(true)
				if thread := args.GetText("thread-id"); thread != "" {
					q.SetThread(thread)
				}
				if level, found := args.Find("frame.level"); found {
					q.SetFrame(level.Text())
				}
			}
			printRecord("*stopped")(args, token, hasToken)
		}},
		{"*running", gdb.ShapeWildcard, 0, func(args mi.Record, token string, hasToken bool) {
			if q := queue.get(); q != nil {
				q.SetStopped(false)
				q.SetFrame("")
			}
			printRecord("*running")(args, token, hasToken)
		}},
		{"=thread-selected", gdb.ShapeWildcard, 1, func(args mi.Record, token string, hasToken bool) {
			if q := queue.get(); q != nil {
				q.SetThread(args.GetText("id"))
				if level, found := args.Find("frame.level"); found {
					q.SetFrame(level.Text())
				}
			}
			printRecord("=thread-selected")(args, token, hasToken)
		}},
	}

	// Known classes first, so that the printed record names the class; then a catch-all per record kind.
	for _, prefix := range knownRecords {
		routes = append(routes, route{prefix, gdb.ShapeWildcard, 0, printRecord(prefix)})
	}
	for _, prefix := range []string{"^", "*", "+", "="} {
		routes = append(routes, route{prefix, gdb.ShapeWildcard, 0, printRecord(prefix)})
	}
	for _, prefix := range []string{"~", "@", "&"} {
		routes = append(routes, route{prefix, gdb.ShapeWildcard, 1, printStream(prefix)})
	}

	for _, r := range routes {
		if err := router.On(r.prefix, r.shape, r.minArgs, r.handler); err != nil {
			return err
		}
	}
	return nil
}
