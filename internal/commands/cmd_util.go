/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"bufio"
	"os"
	"strings"

	"github.com/microsoft/gdbmi/internal/config"
	"github.com/microsoft/gdbmi/pkg/logger"
	"github.com/microsoft/gdbmi/pkg/osutil"
)

// ErrorExit reports the error, flushes the logs and exits the program with the given code.
func ErrorExit(log *logger.Logger, err error, code int) {
	log.Error(err, "Command failed")
	os.Stderr.WriteString(err.Error() + string(osutil.LineSep()))
	log.Flush()
	os.Exit(code)
}

// Appends the platform line separator.
func withNewline(b []byte) []byte {
	return append(b, osutil.LineSep()...)
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	if flags.configFile != "" {
		return config.LoadFile(flags.configFile)
	}
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, err
	}
	return config.Load(paths...)
}

// Reads non-empty lines from a reader until EOF.
func scanLines(r *bufio.Scanner, handle func(line string) error) error {
	for r.Scan() {
		line := strings.TrimRight(r.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := handle(line); err != nil {
			return err
		}
	}
	return r.Err()
}
