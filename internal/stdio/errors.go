/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package stdio implements asynchronous line reassembly and write-back over the standard streams of a child process.
package stdio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
)

var (
	// A line contained a NUL byte. The line is still delivered.
	ErrBinaryZero = errors.New("binary zero encountered")

	// A line exceeded the maximum line length. The beginning of the line is delivered, the rest is discarded.
	ErrLineTooLong = errors.New("line too long")

	// The channel was closed (by us) while in use.
	ErrChannelClosed = errors.New("channel closed")

	// The channel failed with an unexpected error.
	ErrChannelFailed = errors.New("channel failed")
)

// IsProtocolError returns true for errors that describe malformed data, as opposed to a broken channel.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrBinaryZero) || errors.Is(err, ErrLineTooLong)
}

// IsChannelError returns true if the error means the channel is no longer usable.
func IsChannelError(err error) bool {
	return errors.Is(err, ErrChannelClosed) || errors.Is(err, ErrChannelFailed)
}

// Would-block conditions are not errors: the operation should simply be retried later.
func isWouldBlock(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

func classifyChannelError(err error) error {
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return err
	case errors.Is(err, os.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return fmt.Errorf("%w: %w", ErrChannelClosed, err)
	default:
		return fmt.Errorf("%w: %w", ErrChannelFailed, err)
	}
}
