/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package cmdline converts between command line strings and argument vectors.
//
// Two rule sets are provided: POSIX shell-like rules (quotes, backslash escapes) and the rules
// used by the Microsoft C runtime to build argv from a Windows command line. All functions are pure
// and available on every platform; callers pick the rule set that matches the target OS.
package cmdline
