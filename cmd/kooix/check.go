package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [entry]",
	Short: "Parse and semantically check a program (include mode)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entry, err := resolveEntry(args)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUsage)
		}

		s := sessionFor(entry)
		ok := s.Check(entry)
		printDiagnostics(cmd, s)
		if !ok {
			os.Exit(exitDiagnostics)
		}
	},
}
