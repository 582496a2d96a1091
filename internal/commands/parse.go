/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/microsoft/gdbmi/internal/mi"
)

type parseFlags struct {
	noNewlineSubstitute bool
}

type parsedLine struct {
	// Position among the non-empty input lines, starting at 1.
	Index int `json:"index"`
	*mi.Line
	Error string `json:"error,omitempty"`
}

func NewParseCommand(log logr.Logger) (*cobra.Command, error) {
	flags := &parseFlags{}

	parseCmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parses GDB/MI output and prints the records as JSON",
		Long: `Parses GDB/MI output lines from a file (or standard input) and prints one JSON object per line,
with the record kind, token, class and results. Results keep the order GDB printed them in.`,
		RunE: parseRecords(log, flags),
		Args: cobra.MaximumNArgs(1),
	}

	parseCmd.Flags().BoolVar(&flags.noNewlineSubstitute, "no-newline-substitute", false, "Treat \\n escapes in quoted text as parse errors instead of decoding them.")

	return parseCmd, nil
}

func parseRecords(log logr.Logger, flags *parseFlags) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log = log.WithName("parse")

		var input io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				log.Error(err, "Could not open input file", "Path", args[0])
				return err
			}
			defer f.Close()
			input = f
		}

		substitute := mi.DefaultNewlineSubstitute
		if flags.noNewlineSubstitute {
			substitute = mi.NoSubstitute
		}

		count, failed, err := parseStream(input, mi.NewParser(substitute), newJsonLinePrinter(cmd.OutOrStdout()))
		if err != nil {
			return err
		}

		log.V(1).Info("Parsing finished", "Lines", count, "Failed", failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d lines could not be parsed", failed, count)
		}
		return nil
	}
}

func parseStream(input io.Reader, parser *mi.Parser, printer *jsonLinePrinter) (int, int, error) {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	count, failed := 0, 0
	err := scanLines(scanner, func(text string) error {
		count++

		line, parseErr := parser.ParseLine(text)
		out := parsedLine{Index: count, Line: line}
		if parseErr != nil {
			failed++
			out.Error = parseErr.Error()
		}
		return printer.Print(out)
	})
	return count, failed, err
}
