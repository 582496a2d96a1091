/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/microsoft/gdbmi/internal/config"
	"github.com/microsoft/gdbmi/internal/gdb"
	"github.com/microsoft/gdbmi/internal/mi"
	"github.com/microsoft/gdbmi/pkg/process"
)

type runFlags struct {
	gdbPath      string
	workDir      string
	drainTimeout time.Duration
	listRoutes   bool
}

func NewRunCommand(log logr.Logger, rootFlags *rootFlags) (*cobra.Command, error) {
	flags := &runFlags{}

	runCmd := &cobra.Command{
		Use:   "run [-- program [args...]]",
		Short: "Starts a GDB session and forwards commands from standard input",
		Long: `Starts GDB in MI mode. Every line read from standard input is sent to GDB as a command,
prefixed with a sequential token. Records printed by GDB are written to standard output as JSON,
one per line. At the end of input, gdbmi asks GDB to exit.

Arguments after "--" are passed to GDB after the configured debugger arguments.`,
		RunE: runSession(log, rootFlags, flags),
	}

	addRunFlags(runCmd.Flags(), flags)

	return runCmd, nil
}

func addRunFlags(fs *pflag.FlagSet, flags *runFlags) {
	fs.StringVar(&flags.gdbPath, "gdb", "", "Path to the GDB executable. Overrides the configured path and command line.")
	fs.StringVar(&flags.workDir, "work-dir", "", "Working directory of GDB. Overrides the configuration file.")
	fs.DurationVar(&flags.drainTimeout, "drain-timeout", 0, "How long to wait for GDB output channels to close after GDB exits. Overrides the configuration file.")
	fs.BoolVar(&flags.listRoutes, "list-routes", false, "Print the record routes and exit without starting GDB.")
}

func runSession(log logr.Logger, rootFlags *rootFlags, flags *runFlags) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log = log.WithName("run")

		cfg, cfgErr := loadConfig(rootFlags)
		if cfgErr != nil {
			log.Error(cfgErr, "Could not load configuration")
			return cfgErr
		}
		applyRunFlags(cmd, cfg, flags)

		sessionCfg, sessionCfgErr := cfg.SessionConfig(args...)
		if sessionCfgErr != nil {
			return sessionCfgErr
		}

		printer := newJsonLinePrinter(cmd.OutOrStdout())
		router := gdb.NewRouter(log)
		queue := &queueRef{}
		if routeErr := registerRoutes(router, printer, queue); routeErr != nil {
			return routeErr
		}

		if flags.listRoutes {
			return printRoutes(cmd.OutOrStdout(), router.Routes())
		}

		events := gdb.Events{
			OnSessionStarted: func(id string) {
				log.V(1).Info("Session started", "SessionID", id)
			},
			OnDiagnostic: func(text string) {
				_ = printer.Print(map[string]string{"diagnostic": text})
			},
		}

		if argv, argvErr := sessionCfg.Launch.Argv(); argvErr == nil {
			log.V(1).Info("Starting debugger", "CommandLine", gdb.JoinCommandLine(argv...))
		}

		launcher := gdb.NewOSLauncher(process.NewOSExecutor(log), log)
		session := gdb.NewSession(sessionCfg, launcher, router, events, log)
		queue.set(session.Queue())

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if startErr := session.Start(ctx); startErr != nil {
			return startErr
		}

		go forwardCommands(cmd.InOrStdin(), session, log)

		reason, waitErr := session.Wait(ctx)
		if waitErr != nil {
			return waitErr
		}
		log.V(1).Info("Session ended", "Reason", reason.String())
		if reason.Kind == gdb.EndCrashed {
			return errors.New(reason.String())
		}
		return nil
	}
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags *runFlags) {
	if cmd.Flags().Changed("gdb") {
		cfg.GdbPath = flags.gdbPath
		cfg.GdbCommandLine = ""
	}
	if cmd.Flags().Changed("work-dir") {
		cfg.WorkDir = flags.workDir
	}
	if cmd.Flags().Changed("drain-timeout") {
		cfg.DrainTimeout = flags.drainTimeout
	}
}

// Sends every input line to the debugger. Lines that already start with a token are sent as-is.
func forwardCommands(input io.Reader, session *gdb.Session, log logr.Logger) {
	var nextToken atomic.Uint64
	scanner := bufio.NewScanner(input)

	err := scanLines(scanner, func(line string) error {
		var submitErr error
		if token, _, hasToken := mi.StripToken(line); hasToken && token != "" {
			submitErr = session.Submit(gdb.ScopeNone, line)
		} else {
			submitErr = session.SubmitToken(gdb.ScopeNone, strconv.FormatUint(nextToken.Add(1), 10), line)
		}

		switch {
		case submitErr == nil:
			return nil
		case gdb.IsSessionError(submitErr):
			return submitErr
		default:
			log.Error(submitErr, "Command was not sent", "Command", line)
			return nil
		}
	})
	if err != nil && !gdb.IsSessionError(err) {
		log.Error(err, "Could not read commands")
	}

	if session.State() == gdb.StateActive {
		if exitErr := session.Submit(gdb.ScopeNone, "-gdb-exit"); exitErr != nil {
			log.V(1).Info("Could not ask the debugger to exit", "Error", exitErr.Error())
		}
	}
}

func printRoutes(w io.Writer, routes []gdb.Route) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PREFIX\tTOKEN\tMIN ARGS")
	for _, r := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Prefix, r.Shape, r.MinArgs)
	}
	return tw.Flush()
}
