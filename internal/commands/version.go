/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/microsoft/gdbmi/internal/version"
	"github.com/microsoft/gdbmi/pkg/process"
)

const (
	gdbVersionTimeout = 10 * time.Second

	// If set, the value of this variable will be written to the log as one of the first log messages.
	GDBMI_LOGGING_CONTEXT = "GDBMI_LOGGING_CONTEXT"
)

func NewVersionCommand(log logr.Logger, flags *rootFlags) (*cobra.Command, error) {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Prints version information",
		Long:  `Prints version information of gdbmi and of the configured debugger.`,
		RunE:  getVersion(log, flags),
		Args:  cobra.NoArgs,
	}

	return versionCmd, nil
}

func getVersion(log logr.Logger, flags *rootFlags) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log = log.WithName("version")

		v := version.Version()
		if cfg, cfgErr := loadConfig(flags); cfgErr != nil {
			log.V(1).Info("Could not load configuration, skipping debugger version", "Error", cfgErr.Error())
		} else if gdbVersion, gdbErr := debuggerVersion(cmd.Context(), cfg.GdbPath, log); gdbErr != nil {
			log.V(1).Info("Could not determine debugger version", "Error", gdbErr.Error())
		} else {
			v.Gdb = gdbVersion
		}

		versionStr, err := json.Marshal(v)
		if err != nil {
			log.Error(err, "Could not serialize version information")
			return err
		}
		_, err = cmd.OutOrStdout().Write(withNewline(versionStr))
		return err
	}
}

// Runs "<gdb> --version" and returns the first line of its output.
func debuggerVersion(ctx context.Context, gdbPath string, log logr.Logger) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, gdbVersionTimeout)
	defer cancel()

	out := &bytes.Buffer{}
	cmd := exec.Command(gdbPath, "--version")
	cmd.Stdout = out

	exitCode, err := process.RunToCompletion(ctx, process.NewOSExecutor(log), cmd)
	if err != nil {
		return "", err
	}
	if exitCode != 0 {
		return "", fmt.Errorf("%s --version exited with code %d", gdbPath, exitCode)
	}

	firstLine, _, _ := strings.Cut(out.String(), "\n")
	return strings.TrimSpace(firstLine), nil
}

func LogVersion(log logr.Logger, programStartMsg string) func(_ *cobra.Command, _ []string) {
	return func(_ *cobra.Command, _ []string) {
		launchPath, pathErr := os.Executable()
		if pathErr != nil {
			launchPath = os.Args[0]
		}

		log.V(1).Info(programStartMsg,
			"PID", os.Getpid(),
			"Exe", launchPath,
			"Args", os.Args[1:],
			"Version", version.Version().Version,
		)

		logContext, found := os.LookupEnv(GDBMI_LOGGING_CONTEXT)
		if found && len(logContext) > 0 {
			log.V(1).Info(logContext)
		}
	}
}
