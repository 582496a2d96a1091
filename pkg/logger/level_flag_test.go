/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package logger

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestStringToLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input     string
		expected  zapcore.Level
		expectErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"trace", TraceLevel, false},
		{"2", zapcore.Level(-2), false},
		{"1000", zapcore.WarnLevel, true},
		{"0", zapcore.WarnLevel, true},
		{"chatty", zapcore.WarnLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			level, err := StringToLevel(tt.input, zapcore.WarnLevel)
			if tt.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFlagIsRegistered(t *testing.T) {
	t.Parallel()

	var observed zapcore.Level = zapcore.InfoLevel
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	levelVal := NewLevelFlagValue(func(level zapcore.Level) { observed = level })
	fs.VarP(&levelVal, verbosityFlagName, verbosityFlagShortName, "")

	require.NoError(t, fs.Parse([]string{"-v=debug"}))
	require.Equal(t, zapcore.DebugLevel, observed)
	require.Equal(t, "debug", levelVal.String())

	require.Error(t, fs.Parse([]string{"-v=loud"}))
	require.Equal(t, zapcore.DebugLevel, observed)
}
