/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/microsoft/gdbmi/pkg/logger"
)

// Flags shared by the subcommands.
type rootFlags struct {
	configFile string
}

func NewRootCmd(log *logger.Logger) (*cobra.Command, error) {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "gdbmi",
		Short: "Runs GDB under its machine interface and prints the records it produces",
		Long: `gdbmi drives GDB through the GDB/MI protocol.

	It starts GDB as a child process, sends it MI commands and routes the records
	GDB prints back (results, async notifications, console output) to handlers.`,
		SilenceUsage:     true,
		SilenceErrors:    true,
		PersistentPreRun: LogVersion(log.Logger, "gdbmi starting"),
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			log.Flush()
		},
	}

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to a TOML configuration file. If not set, ~/.gdbmi/config.toml and ./.gdbmi/config.toml are used if they exist.")
	log.AddLevelFlag(rootCmd.PersistentFlags())

	var err error
	var cmd *cobra.Command

	if cmd, err = NewRunCommand(log.Logger, flags); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'run' command: %w", err)
	}

	if cmd, err = NewParseCommand(log.Logger); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'parse' command: %w", err)
	}

	if cmd, err = NewVersionCommand(log.Logger, flags); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'version' command: %w", err)
	}

	return rootCmd, nil
}
