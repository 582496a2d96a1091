/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package gdb drives a GDB process over the MI protocol.
//
// A Session launches GDB with redirected standard streams, reassembles its output into lines,
// parses every line into an mi.Line and dispatches it through a Router to handlers registered by feature code.
// Commands are submitted through the CommandQueue, which decorates them with thread/frame qualifiers
// and tracks how many result records are still owed by GDB.
//
// All inbound events (output lines, end of stream, process exit, write failures) are processed
// in order by a single dispatch goroutine per session, so route handlers and session events never run concurrently.
package gdb
