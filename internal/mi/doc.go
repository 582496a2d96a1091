/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package mi parses lines of the GDB/MI (machine interface) protocol.
//
// Every line GDB writes in MI mode is one of:
//
//	[token]^class[,results]     result record, terminates a command
//	[token]*class[,results]     exec async record (running, stopped)
//	[token]+class[,results]     status async record
//	[token]=class[,results]     notify async record
//	~"text" @"text" &"text"      console, target and log stream records
//	(gdb)                        prompt
//
// ParseLine() strips the token, classifies the line and parses its results into a Record tree.
// Only the constructs GDB actually emits are supported: quoted strings with C-like escapes,
// tuples ({...}) and lists ([...]) of name=value or bare value entries.
package mi
