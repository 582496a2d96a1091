/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package resiliency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
)

func TestRetryExponentialWithTimeoutSucceedsEventually(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := RetryExponentialWithTimeout(context.Background(), 5*time.Second, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryExponentialWithTimeoutStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	attempts := 0
	permanentErr := errors.New("access denied")
	err := RetryExponentialWithTimeout(context.Background(), 5*time.Second, func() error {
		attempts++
		return Permanent(permanentErr)
	})

	require.ErrorIs(t, err, permanentErr)
	require.Equal(t, 1, attempts)
}

func TestRetryExponentialWithTimeoutReportsLastError(t *testing.T) {
	t.Parallel()

	lastErr := errors.New("still failing")
	err := RetryExponentialWithTimeout(context.Background(), 200*time.Millisecond, func() error {
		return lastErr
	})

	require.ErrorIs(t, err, lastErr)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMakePanicError(t *testing.T) {
	t.Parallel()

	require.NoError(t, MakePanicError(nil, logr.Discard()))

	err := MakePanicError("boom", logr.Discard())
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}
